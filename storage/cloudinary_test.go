package storage

import "testing"

func TestPublicID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1712345/telecare/blogs/cover.jpg", "telecare/blogs/cover", true},
		{"https://res.cloudinary.com/demo/image/upload/telecare/avatars/me.png", "telecare/avatars/me", true},
		{"https://res.cloudinary.com/demo/image/upload/v1/sample", "sample", true},
		{"https://example.com/images/cover.jpg", "", false},
		{"https://res.cloudinary.com/demo/image/upload/", "", false},
		{"://bad", "", false},
	}
	for _, tt := range tests {
		got, ok := PublicID(tt.url)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("PublicID(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}
