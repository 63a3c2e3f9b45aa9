package notifications

import (
	"errors"
	"fmt"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/telecare/telehealth_api/logger"
)

// Pusher delivers a mobile push to a set of device tokens.
type Pusher interface {
	Push(tokens []string, title, body string, data map[string]any) error
}

type ExpoPusher struct {
	client *expo.PushClient
}

func NewExpoPusher() *ExpoPusher {
	return &ExpoPusher{client: expo.NewPushClient(nil)}
}

var ErrNoValidTokens = errors.New("no valid push tokens found")

// ValidToken reports whether token is a well-formed Expo push token.
func ValidToken(token string) bool {
	_, err := expo.NewExponentPushToken(token)
	return err == nil
}

func (p *ExpoPusher) Push(tokens []string, title, body string, data map[string]any) error {
	var valid []expo.ExponentPushToken
	for _, t := range tokens {
		pt, err := expo.NewExponentPushToken(t)
		if err != nil {
			logger.Log.Warn().Str("token", t).Err(err).Msg("⚠️ Invalid push token format")
			continue
		}
		valid = append(valid, pt)
	}
	if len(valid) == 0 {
		return ErrNoValidTokens
	}

	var stringData map[string]string
	if data != nil {
		stringData = make(map[string]string, len(data))
		for k, v := range data {
			stringData[k] = fmt.Sprintf("%v", v)
		}
	}

	response, err := p.client.Publish(&expo.PushMessage{
		To:       valid,
		Body:     body,
		Title:    title,
		Sound:    "default",
		Priority: expo.DefaultPriority,
		Data:     stringData,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	if err := response.ValidateResponse(); err != nil {
		return fmt.Errorf("push rejected: %w", err)
	}
	return nil
}
