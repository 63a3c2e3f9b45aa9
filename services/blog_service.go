package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/apperr"
	"github.com/telecare/telehealth_api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImageRemover deletes uploaded images that a blog no longer references.
type ImageRemover interface {
	Remove(ctx context.Context, urls []string)
}

// BlogService is the doctors' article board with likes and comments.
type BlogService struct {
	db     *gorm.DB
	images ImageRemover
	outbox *Outbox
}

// NewBlogService wires the board; images may be nil when no image host is configured.
func NewBlogService(db *gorm.DB, images ImageRemover, outbox *Outbox) *BlogService {
	return &BlogService{db: db, images: images, outbox: outbox}
}

const (
	maxBlogImages        = 3
	maxBlogCommentLength = 500
)

type BlogInput struct {
	Title       string
	Description string
	Content     string
	Images      []string
	Tags        []string
	Status      string
}

// BlogUpdate holds the fields to change; nil means keep.
type BlogUpdate struct {
	Title       *string
	Description *string
	Content     *string
	Images      *[]string
	Tags        *[]string
	Status      *string
}

type BlogQuery struct {
	Search   string
	Tag      string
	DoctorID *uuid.UUID
	// Status is honoured only when listing a doctor's own blogs.
	Status string
	Page   int
	Limit  int
}

type BlogPage struct {
	Blogs      []models.Blog `json:"blogs"`
	Pagination Pagination    `json:"pagination"`
}

func checkBlogText(title, description, content string) error {
	if n := len([]rune(title)); n < 5 || n > 200 {
		return apperr.Validation("Title must be between 5 and 200 characters")
	}
	if n := len([]rune(description)); n < 10 || n > 500 {
		return apperr.Validation("Description must be between 10 and 500 characters")
	}
	if len([]rune(content)) < 100 {
		return apperr.Validation("Content must be at least 100 characters")
	}
	return nil
}

func validBlogStatus(s string) bool {
	return s == models.BlogDraft || s == models.BlogPublished || s == models.BlogArchived
}

func cleanImages(images []string) ([]string, error) {
	if len(images) > maxBlogImages {
		return nil, apperr.Validation(fmt.Sprintf("A blog can have at most %d images", maxBlogImages))
	}
	out := make([]string, 0, len(images))
	for _, raw := range images {
		raw = strings.TrimSpace(raw)
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperr.Validation("Invalid image URL")
		}
		out = append(out, raw)
	}
	return out, nil
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (s *BlogService) Create(ctx context.Context, doctorID uuid.UUID, in BlogInput) (*models.Blog, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if err := checkBlogText(title, description, in.Content); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.BlogPublished
	}
	if !validBlogStatus(status) {
		return nil, apperr.Validation("Status must be draft, published or archived")
	}
	images, err := cleanImages(in.Images)
	if err != nil {
		return nil, err
	}
	imagesJSON, err := jsonList(images)
	if err != nil {
		return nil, apperr.Validation("Invalid images")
	}
	tagsJSON, err := jsonList(cleanTags(in.Tags))
	if err != nil {
		return nil, apperr.Validation("Invalid tags")
	}

	blog := &models.Blog{
		DoctorID:    doctorID,
		Title:       title,
		Description: description,
		Content:     in.Content,
		Images:      imagesJSON,
		Tags:        tagsJSON,
		Status:      status,
	}
	if err := s.db.WithContext(ctx).Create(blog).Error; err != nil {
		return nil, apperr.Internal("Failed to create blog", err)
	}
	return s.load(ctx, blog.ID)
}

// List pages published blogs, newest first.
func (s *BlogService) List(ctx context.Context, q BlogQuery) (*BlogPage, error) {
	q.Status = models.BlogPublished
	return s.list(ctx, q)
}

// Mine pages the doctor's own blogs in any status, or only q.Status when set.
func (s *BlogService) Mine(ctx context.Context, doctorID uuid.UUID, q BlogQuery) (*BlogPage, error) {
	if q.Status != "" && !validBlogStatus(q.Status) {
		return nil, apperr.Validation("Status must be draft, published or archived")
	}
	q.DoctorID = &doctorID
	return s.list(ctx, q)
}

func (s *BlogService) list(ctx context.Context, q BlogQuery) (*BlogPage, error) {
	page, limit := normalizePage(q.Page, q.Limit, 10, 50)

	db := s.db.WithContext(ctx).Model(&models.Blog{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		like := "%" + search + "%"
		db = db.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if tag := strings.TrimSpace(q.Tag); tag != "" {
		db = db.Where(datatypes.JSONArrayQuery("tags").Contains(tag))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch blogs", err)
	}
	var blogs []models.Blog
	if err := db.Preload("Doctor").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&blogs).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch blogs", err)
	}
	if err := s.fillCounts(ctx, blogs); err != nil {
		return nil, err
	}
	return &BlogPage{Blogs: blogs, Pagination: NewPagination(total, page, limit)}, nil
}

func (s *BlogService) fillCounts(ctx context.Context, blogs []models.Blog) error {
	if len(blogs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(blogs))
	for i, b := range blogs {
		ids[i] = b.ID
	}

	type row struct {
		BlogID uuid.UUID
		Count  int64
	}
	count := func(model any) (map[uuid.UUID]int64, error) {
		var rows []row
		err := s.db.WithContext(ctx).Model(model).
			Select("blog_id, count(*) as count").
			Where("blog_id IN ?", ids).
			Group("blog_id").
			Scan(&rows).Error
		out := make(map[uuid.UUID]int64, len(rows))
		for _, r := range rows {
			out[r.BlogID] = r.Count
		}
		return out, err
	}

	likes, err := count(&models.BlogLike{})
	if err != nil {
		return apperr.Internal("Failed to count likes", err)
	}
	comments, err := count(&models.BlogComment{})
	if err != nil {
		return apperr.Internal("Failed to count comments", err)
	}
	for i := range blogs {
		blogs[i].LikeCount = likes[blogs[i].ID]
		blogs[i].CommentCount = comments[blogs[i].ID]
	}
	return nil
}

// Get returns a published blog with its comments and counts one more view.
func (s *BlogService) Get(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	res := s.db.WithContext(ctx).Model(&models.Blog{}).
		Where("id = ? AND status = ?", id, models.BlogPublished).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return nil, apperr.Internal("Failed to load blog", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Blog not found")
	}
	return s.load(ctx, id)
}

func (s *BlogService) load(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var blog models.Blog
	err := s.db.WithContext(ctx).
		Preload("Doctor").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.User").
		First(&blog, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "Blog not found")
	}
	blogs := []models.Blog{blog}
	if err := s.fillCounts(ctx, blogs); err != nil {
		return nil, err
	}
	return &blogs[0], nil
}

// owned loads a blog for a write by its author.
func (s *BlogService) owned(tx *gorm.DB, doctorID, id uuid.UUID, action string) (*models.Blog, error) {
	var blog models.Blog
	if err := tx.First(&blog, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Blog not found")
	}
	if blog.DoctorID != doctorID {
		return nil, apperr.Authorization(fmt.Sprintf("You do not have permission to %s this blog", action))
	}
	return &blog, nil
}

func (s *BlogService) Update(ctx context.Context, doctorID, id uuid.UUID, in BlogUpdate) (*models.Blog, error) {
	var removed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blog, err := s.owned(tx, doctorID, id, "edit")
		if err != nil {
			return err
		}

		title, description, content := blog.Title, blog.Description, blog.Content
		if in.Title != nil {
			title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			description = strings.TrimSpace(*in.Description)
		}
		if in.Content != nil {
			content = *in.Content
		}
		if err := checkBlogText(title, description, content); err != nil {
			return err
		}
		updates := map[string]any{"title": title, "description": description, "content": content}

		if in.Status != nil {
			if !validBlogStatus(*in.Status) {
				return apperr.Validation("Status must be draft, published or archived")
			}
			updates["status"] = *in.Status
		}
		if in.Tags != nil {
			tags, err := jsonList(cleanTags(*in.Tags))
			if err != nil {
				return apperr.Validation("Invalid tags")
			}
			updates["tags"] = tags
		}
		if in.Images != nil {
			images, err := cleanImages(*in.Images)
			if err != nil {
				return err
			}
			encoded, err := jsonList(images)
			if err != nil {
				return apperr.Validation("Invalid images")
			}
			updates["images"] = encoded
			removed = dropped(stringList(blog.Images), images)
		}

		if err := tx.Model(&models.Blog{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return apperr.Internal("Failed to update blog", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.removeImages(ctx, removed)
	return s.load(ctx, id)
}

func (s *BlogService) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	var images []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blog, err := s.owned(tx, doctorID, id, "delete")
		if err != nil {
			return err
		}
		images = stringList(blog.Images)

		if err := tx.Where("blog_id = ?", id).Delete(&models.BlogLike{}).Error; err != nil {
			return apperr.Internal("Failed to delete blog", err)
		}
		if err := tx.Where("blog_id = ?", id).Delete(&models.BlogComment{}).Error; err != nil {
			return apperr.Internal("Failed to delete blog", err)
		}
		if err := tx.Delete(&models.Blog{}, "id = ?", id).Error; err != nil {
			return apperr.Internal("Failed to delete blog", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.removeImages(ctx, images)
	return nil
}

func (s *BlogService) removeImages(ctx context.Context, urls []string) {
	if s.images != nil && len(urls) > 0 {
		s.images.Remove(ctx, urls)
	}
}

// ToggleLike likes the blog, or takes the like back when userID already liked it.
func (s *BlogService) ToggleLike(ctx context.Context, userID, id uuid.UUID) (bool, int64, error) {
	liked := false
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := published(tx, id); err != nil {
			return err
		}

		res := tx.Where("blog_id = ? AND user_id = ?", id, userID).Delete(&models.BlogLike{})
		if res.Error != nil {
			return apperr.Internal("Failed to update like", res.Error)
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.BlogLike{BlogID: id, UserID: userID}).Error; err != nil {
				return apperr.Internal("Failed to update like", err)
			}
			liked = true
		}
		return tx.Model(&models.BlogLike{}).Where("blog_id = ?", id).Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func published(tx *gorm.DB, id uuid.UUID) (*models.Blog, error) {
	var blog models.Blog
	if err := tx.First(&blog, "id = ? AND status = ?", id, models.BlogPublished).Error; err != nil {
		return nil, notFoundOr(err, "Blog not found")
	}
	return &blog, nil
}

func checkComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("Comment content is required")
	}
	if len([]rune(content)) > maxBlogCommentLength {
		return "", apperr.Validation(fmt.Sprintf("Comment must be at most %d characters", maxBlogCommentLength))
	}
	return content, nil
}

// AddComment posts a comment and lets the author know when someone else wrote it.
func (s *BlogService) AddComment(ctx context.Context, userID, blogID uuid.UUID, content string) (*models.BlogComment, error) {
	content, err := checkComment(content)
	if err != nil {
		return nil, err
	}

	comment := &models.BlogComment{BlogID: blogID, UserID: userID, Content: content}
	notified := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blog, err := published(tx, blogID)
		if err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return apperr.Internal("Failed to add comment", err)
		}
		if blog.DoctorID == userID {
			return nil
		}
		notified = true
		return s.outbox.Enqueue(tx, Notice{
			RecipientID: blog.DoctorID,
			Type:        models.NotifyBlogComment,
			Message:     fmt.Sprintf("New comment on \"%s\"", blog.Title),
			Data:        map[string]any{"blog_id": blogID.String(), "comment_id": comment.ID.String()},
			Realtime:    true,
		})
	})
	if err != nil {
		return nil, err
	}
	if notified {
		s.outbox.Flush()
	}
	return s.comment(ctx, comment.ID)
}

func (s *BlogService) comment(ctx context.Context, id uuid.UUID) (*models.BlogComment, error) {
	var c models.BlogComment
	if err := s.db.WithContext(ctx).Preload("User").First(&c, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Comment not found")
	}
	return &c, nil
}

// authored loads a comment on blogID for a write by its author.
func authored(tx *gorm.DB, userID, blogID, commentID uuid.UUID, action string) (*models.BlogComment, error) {
	if err := tx.First(&models.Blog{}, "id = ?", blogID).Error; err != nil {
		return nil, notFoundOr(err, "Blog not found")
	}
	var c models.BlogComment
	if err := tx.First(&c, "id = ? AND blog_id = ?", commentID, blogID).Error; err != nil {
		return nil, notFoundOr(err, "Comment not found")
	}
	if c.UserID != userID {
		return nil, apperr.Authorization(fmt.Sprintf("You do not have permission to %s this comment", action))
	}
	return &c, nil
}

func (s *BlogService) UpdateComment(ctx context.Context, userID, blogID, commentID uuid.UUID, content string) (*models.BlogComment, error) {
	content, err := checkComment(content)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := authored(tx, userID, blogID, commentID, "edit")
		if err != nil {
			return err
		}
		if err := tx.Model(c).Update("content", content).Error; err != nil {
			return apperr.Internal("Failed to update comment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.comment(ctx, commentID)
}

func (s *BlogService) DeleteComment(ctx context.Context, userID, blogID, commentID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := authored(tx, userID, blogID, commentID, "delete")
		if err != nil {
			return err
		}
		if err := tx.Delete(c).Error; err != nil {
			return apperr.Internal("Failed to delete comment", err)
		}
		return nil
	})
}

func stringList(raw datatypes.JSON) []string {
	var out []string
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// dropped returns the entries of before that are missing from after.
func dropped(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, a := range after {
		keep[a] = true
	}
	var out []string
	for _, b := range before {
		if !keep[b] {
			out = append(out, b)
		}
	}
	return out
}
