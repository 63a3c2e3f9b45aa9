package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/services"
)

type CreateBlogRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
}

type UpdateBlogRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Content     *string   `json:"content"`
	Images      *[]string `json:"images"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

func blogQuery(c *fiber.Ctx) (services.BlogQuery, error) {
	doctorID, err := optionalUUID(c.Query("doctorId"), "doctor ID")
	if err != nil {
		return services.BlogQuery{}, err
	}
	return services.BlogQuery{
		Search:   c.Query("search"),
		Tag:      c.Query("tag"),
		DoctorID: doctorID,
		Status:   c.Query("status"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 10),
	}, nil
}

func GetBlogs(c *fiber.Ctx) error {
	q, err := blogQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	page, err := svc.Blogs.List(c.UserContext(), q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

func GetMyBlogs(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	q, err := blogQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	page, err := svc.Blogs.Mine(c.UserContext(), doctorID, q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

func GetBlog(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id", "blog ID")
	if err != nil {
		return apperr.Respond(c, err)
	}
	blog, err := svc.Blogs.Get(c.UserContext(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"blog": blog})
}

func CreateBlog(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateBlogRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}

	blog, err := svc.Blogs.Create(c.UserContext(), doctorID, services.BlogInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Images:      req.Images,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Blog created successfully", "blog": blog})
}

func UpdateBlog(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id", "blog ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req UpdateBlogRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}

	blog, err := svc.Blogs.Update(c.UserContext(), doctorID, id, services.BlogUpdate{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Images:      req.Images,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blog updated successfully", "blog": blog})
}

func DeleteBlog(c *fiber.Ctx) error {
	doctorID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id", "blog ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	if err := svc.Blogs.Delete(c.UserContext(), doctorID, id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blog deleted successfully"})
}

func ToggleBlogLike(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id", "blog ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	liked, count, err := svc.Blogs.ToggleLike(c.UserContext(), userID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	msg := "Blog unliked"
	if liked {
		msg = "Blog liked"
	}
	return c.JSON(fiber.Map{"message": msg, "liked": liked, "like_count": count})
}

func AddBlogComment(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id", "blog ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	comment, err := svc.Blogs.AddComment(c.UserContext(), userID, id, req.Content)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Comment added", "comment": comment})
}

func UpdateBlogComment(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	blogID, err := uuidParam(c, "blogId", "blog ID")
	if err != nil {
		return apperr.Respond(c, err)
	}
	commentID, err := uuidParam(c, "commentId", "comment ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	comment, err := svc.Blogs.UpdateComment(c.UserContext(), userID, blogID, commentID, req.Content)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment updated", "comment": comment})
}

func DeleteBlogComment(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	blogID, err := uuidParam(c, "blogId", "blog ID")
	if err != nil {
		return apperr.Respond(c, err)
	}
	commentID, err := uuidParam(c, "commentId", "comment ID")
	if err != nil {
		return apperr.Respond(c, err)
	}

	if err := svc.Blogs.DeleteComment(c.UserContext(), userID, blogID, commentID); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
