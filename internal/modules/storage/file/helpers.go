package file

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Image is a validated upload ready to be stored.
type Image struct {
	Key         string
	ContentType string
	Body        []byte
}

// readImages enforces the upload limits and sniffs each file's real type.
func readImages(headers []*multipart.FileHeader) ([]Image, error) {
	if len(headers) == 0 {
		return nil, ErrNoFiles
	}
	if len(headers) > MaxFiles {
		return nil, fmt.Errorf("%w: at most %d files", ErrTooManyFiles, MaxFiles)
	}
	out := make([]Image, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > MaxFileSize {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
		}
		img, err := readImage(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func readImage(fh *multipart.FileHeader) (Image, error) {
	f, err := fh.Open()
	if err != nil {
		return Image{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, MaxFileSize+1)); err != nil {
		return Image{}, err
	}
	if buf.Len() > MaxFileSize {
		return Image{}, fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
	}
	contentType := detectContentType(buf.Bytes())
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedMIME, fh.Filename)
	}
	return Image{Key: buildKey(ext), ContentType: contentType, Body: buf.Bytes()}, nil
}

// detectContentType ignores the client supplied header and looks at the bytes.
func detectContentType(payload []byte) string {
	ct := http.DetectContentType(payload)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func buildKey(ext string) string {
	return "portfolios/" + uuid.NewString() + ext
}

func safeKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
