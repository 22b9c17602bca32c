package server

import (
	"mime"
	"strings"
)

// isImageContentType accepts image/* with or without parameters
func isImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}
