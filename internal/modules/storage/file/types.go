package file

import (
	"context"
	"errors"
)

const (
	FieldName   = "images"
	MaxFiles    = 8
	MaxFileSize = 5 << 20
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var (
	ErrNoFiles         = errors.New("no images uploaded")
	ErrTooManyFiles    = errors.New("too many images")
	ErrFileTooLarge    = errors.New("image exceeds the size limit")
	ErrUnsupportedMIME = errors.New("unsupported image type")
)

// Storage persists uploaded objects and returns their public URL.
type Storage interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
