package tryon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoImage is returned when saving a result that carries no image.
var ErrNoImage = errors.New("result has no image")

// Storage persists generated images. Implementations can wrap existing
// storage clients (GCS, S3, etc.) or write to the local filesystem.
type Storage interface {
	// SaveFile saves image data under path and returns where it can be found.
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult contains information about a saved image.
type StorageResult struct {
	// URL is where the image can be accessed (a file path for DirStorage)
	URL string

	// Path is the storage path/key where the image was saved
	Path string

	// Size is the number of bytes saved
	Size int
}

// SaveToStorage saves the image of a result as name plus an extension
// derived from the image MIME type.
func SaveToStorage(ctx context.Context, storage Storage, result *GenerationResult, name string) (*StorageResult, error) {
	if storage == nil {
		return nil, ErrStorageNotConfigured
	}
	if result.Empty() {
		return nil, ErrNoImage
	}

	img := result.Image
	path := strings.TrimSuffix(name, filepath.Ext(name)) + "." + extensionFromMIME(img.MIMEType)

	url, err := storage.SaveFile(ctx, img.Data, path, img.MIMEType)
	if err != nil {
		return nil, err
	}

	return &StorageResult{
		URL:  url,
		Path: path,
		Size: len(img.Data),
	}, nil
}

// DirStorage writes images below a local directory.
type DirStorage struct {
	Root string
}

// NewDirStorage creates the directory if needed.
func NewDirStorage(root string) (*DirStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &DirStorage{Root: root}, nil
}

func (s *DirStorage) SaveFile(ctx context.Context, data []byte, path string, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean("/" + path)
	full := filepath.Join(s.Root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", full, err)
	}
	return full, nil
}

// SuggestedFilename is the download name for a composite, e.g. "tryon-front.png".
// A zero angle names the model image.
func SuggestedFilename(angle ViewAngle, mimeType string) string {
	base := "tryon-model"
	if angle != "" {
		base = "tryon-" + string(angle)
	}
	return base + "." + extensionFromMIME(mimeType)
}

func GetMIMEType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/png"
	}
}

// extensionFromMIME returns a file extension for common image MIME types.
func extensionFromMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "png"
	}
}
