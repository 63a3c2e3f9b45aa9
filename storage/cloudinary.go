// Package storage talks to Cloudinary, where avatars, certificates and blog images live.
package storage

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/logger"
)

type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStoreFromConfig() (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return nil, err
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Remove deletes each image by its delivery URL. Failures are logged, not returned.
func (s *CloudinaryStore) Remove(ctx context.Context, urls []string) {
	for _, u := range urls {
		id, ok := PublicID(u)
		if !ok {
			logger.Log.Warn().Str("url", u).Msg("⚠️ Not a Cloudinary image URL, skipping delete")
			continue
		}
		res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id})
		if err != nil {
			logger.Log.Error().Err(err).Str("public_id", id).Msg("🔥 Failed to delete image")
			continue
		}
		if res.Error.Message != "" {
			logger.Log.Error().Str("public_id", id).Str("reason", res.Error.Message).Msg("🔥 Failed to delete image")
		}
	}
}

var versionSegment = regexp.MustCompile(`^v[0-9]+$`)

// PublicID extracts the asset id from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v1712/telecare/blogs/cover.jpg.
func PublicID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	_, rest, found := strings.Cut(u.Path, "/upload/")
	if !found || rest == "" {
		return "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) > 1 && versionSegment.MatchString(parts[0]) {
		parts = parts[1:]
	}
	id := strings.Join(parts, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", false
	}
	return id, true
}
