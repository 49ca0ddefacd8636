package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		expected MIME
		want     bool
	}{
		{"PNG", "image/png", ImagePNG, true},
		{"JPEG", "image/jpeg", ImageJPEG, true},
		{"GIF", "image/gif", ImageGIF, true},
		{"Mismatch", "image/png", ImageJPEG, false},
		{"Invalid MIME", "not a mime", ImagePNG, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Matches(tt.detected, tt.expected)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestIsImage(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		want     MIME
		ok       bool
	}{
		{"PNG", "image/png", ImagePNG, true},
		{"WebP", "image/webp", ImageWebP, true},
		{"JPEG", "image/jpeg", ImageJPEG, true},
		{"SVG with charset", "image/svg+xml; charset=utf-8", "image/svg+xml", false},
		{"BMP", "image/bmp", "image/bmp", false},
		{"Plain text", "text/plain; charset=utf-8", "text/plain", false},
		{"PDF", "application/pdf", "application/pdf", false},
		{"Invalid MIME", "not a mime", Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, ok := IsImage(tt.detected)
			req.Equal(tt.ok, ok)
			req.Equal(tt.want, got)
		})
	}
}
