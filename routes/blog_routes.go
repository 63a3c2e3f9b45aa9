package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/middleware"
)

func BlogRoutes(app *fiber.App) {
	api := app.Group("/api/v1")
	blogs := api.Group("/blogs")

	doctor := []fiber.Handler{middleware.Protected(), middleware.DoctorRequired()}
	// before /:id so "mine" is not read as a blog id
	blogs.Get("/mine", append(doctor, handlers.GetMyBlogs)...)

	blogs.Get("", handlers.GetBlogs)
	blogs.Get("/:id", handlers.GetBlog)

	blogs.Post("/:id/like", middleware.Protected(), handlers.ToggleBlogLike)
	blogs.Post("/:id/comments", middleware.Protected(), handlers.AddBlogComment)
	blogs.Patch("/:blogId/comments/:commentId", middleware.Protected(), handlers.UpdateBlogComment)
	blogs.Delete("/:blogId/comments/:commentId", middleware.Protected(), handlers.DeleteBlogComment)

	blogs.Post("", append(doctor, handlers.CreateBlog)...)
	blogs.Put("/:id", append(doctor, handlers.UpdateBlog)...)
	blogs.Delete("/:id", append(doctor, handlers.DeleteBlog)...)
}
