package processor

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
)

// imageExtensions are the file types accepted from local paths
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
	".webp": true,
}

// ValidateImagePath checks that path is an existing regular file with an
// image extension
func ValidateImagePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("File not found - %s", path)
		}
		return fmt.Errorf("cannot access %s: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
		return errors.NewUnsupportedFormatError("", filepath.Ext(path))
	}

	return nil
}

// ProcessFile validates and processes a lab report image from disk
func ProcessFile(ctx context.Context, p Processor, path string, maxFileSize int64) (*ProcessResult, error) {
	if err := ValidateImagePath(path); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if maxFileSize > 0 && info.Size() > maxFileSize {
		return nil, errors.NewFileTooLargeError(jobID, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return p.Process(ctx, &ProcessRequest{
		JobID:      jobID,
		Filename:   filepath.Base(path),
		MimeType:   mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		FileBuffer: data,
	})
}
