package mimetypes

import (
	"mime"
	"slices"
)

type MIME string

const (
	Unknown   MIME = "unknown"
	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"
)

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// RasterImages are the only image types accepted for upload.
// Scriptable formats such as SVG are excluded.
var RasterImages = []MIME{ImagePNG, ImageJPEG, ImageGIF, ImageWebP}

// IsImage reports whether detected is one of RasterImages, parameters ignored.
func IsImage(detected string) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return MIME(mt), slices.Contains(RasterImages, MIME(mt))
}
