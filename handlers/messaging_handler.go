package handlers

import (
	"context"
	"errors"
	"fmt"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/websocket"
)

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
	Content    string `json:"content" validate:"required,max=5000"`
}

// GetUnlockStatus reports whether the patient and doctor may chat.
func GetUnlockStatus(c *fiber.Ctx) error {
	patientID, err := uuidParam(c, "userId", "user ID")
	if err != nil {
		return apperr.Respond(c, err)
	}
	doctorID, err := uuidParam(c, "doctorId", "doctor ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	unlocked, err := svc.Messaging.Unlocked(c.UserContext(), patientID, doctorID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"unlocked": unlocked})
}

func SendMessage(c *fiber.Ctx) error {
	senderID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	receiverID, _ := uuid.Parse(req.ReceiverID)

	msg, err := svc.Messaging.Send(c.UserContext(), senderID, role, receiverID, req.Content)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

func GetConversations(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	conversations, err := svc.Messaging.Conversations(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

func GetConversationMessages(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	conversationID, err := uuidParam(c, "conversationId", "conversation ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	messages, pagination, err := svc.Messaging.Messages(c.UserContext(), userID, conversationID,
		queryInt(c, "page", 1), queryInt(c, "limit", 50))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages, "pagination": pagination})
}

func MarkConversationRead(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	conversationID, err := uuidParam(c, "conversationId", "conversation ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	n, err := svc.Messaging.MarkRead(c.UserContext(), userID, conversationID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Messages marked as read", "updated": n})
}

func DeleteMessage(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	messageID, err := uuidParam(c, "messageId", "message ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	if err := svc.Messaging.Delete(c.UserContext(), userID, messageID); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted successfully"})
}

func GetUnreadMessageCount(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	n, err := svc.Messaging.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"unreadCount": n})
}

func SearchMessages(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	messages, err := svc.Messaging.Search(c.UserContext(), userID, c.Query("q"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

type socketFrame struct {
	Type       string `json:"type"`
	Token      string `json:"token,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	Content    string `json:"content,omitempty"`
}

// ServeWs authenticates the socket with its first frame, then accepts "message" and
// "ping" frames. After registration every write goes through the hub.
func ServeWs(c *websocketcontrib.Conn) {
	var auth socketFrame
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		logger.Log.Warn().Err(err).Msg("⚠️ WebSocket auth failed: invalid or missing auth message")
		_ = c.WriteJSON(fiber.Map{"type": "error", "error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(auth.Token)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("⚠️ WebSocket auth failed: invalid token")
		_ = c.WriteJSON(fiber.Map{"type": "error", "error": "Invalid token"})
		c.Close()
		return
	}
	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"type": "error", "error": "Invalid user ID"})
		c.Close()
		return
	}
	role, _ := claims["role"].(string)

	client := &websocket.Client{UserID: userID, Conn: c}
	websocket.Register <- client
	defer func() {
		websocket.Unregister <- client
		c.Close()
	}()
	websocket.Reply(userID, "auth_success", fiber.Map{"user_id": userID})

	for {
		var in socketFrame
		if err := c.ReadJSON(&in); err != nil {
			if websocketcontrib.IsUnexpectedCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				logger.Log.Warn().Err(err).Str("user_id", userID.String()).Msg("⚠️ WebSocket read error")
			}
			return
		}

		switch in.Type {
		case "ping":
			websocket.Reply(userID, "pong", nil)
		case "message":
			receiverID, err := uuid.Parse(in.ReceiverID)
			if err != nil {
				websocket.Reply(userID, "error", fiber.Map{"error": "Invalid receiver ID"})
				continue
			}
			msg, err := svc.Messaging.Send(context.Background(), userID, role, receiverID, in.Content)
			if err != nil {
				var appErr *apperr.Error
				if errors.As(err, &appErr) {
					websocket.Reply(userID, "error", fiber.Map{"error": appErr.Message})
				} else {
					websocket.Reply(userID, "error", fiber.Map{"error": "Failed to send message"})
				}
				continue
			}
			websocket.Reply(userID, "message_sent", msg)
		default:
			websocket.Reply(userID, "error", fiber.Map{"error": "Unknown frame type"})
		}
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
