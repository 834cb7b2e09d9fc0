package post

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-api-community/internal/domain"
)

// MediaUpload is a file attached to a create or update request.
type MediaUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

const mediaPrefix = "uploads"

// mediaKey builds "uploads/<kind>/<unix-nanos><ext>".
func mediaKey(kind, filename string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d%s", mediaPrefix, kind, at.UnixNano(), safeExt(filename))
}

// safeExt keeps the lowercased extension of filename when it is short and
// alphanumeric. Anything else is dropped.
func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	if len(ext) < 2 || len(ext) > 11 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// objectKeyFor validates a public media path and maps it back to the storage
// key. Malformed names are reported as not found.
func objectKeyFor(kind, name string) (string, error) {
	if kind != domain.MediaImage && kind != domain.MediaVideo {
		return "", fmt.Errorf("media %w", domain.ErrNotFound)
	}
	stem, ext := name, ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		stem, ext = name[:i], name[i:]
	}
	if stem == "" || ext != safeExt(name) {
		return "", fmt.Errorf("media %w", domain.ErrNotFound)
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("media %w", domain.ErrNotFound)
		}
	}
	return mediaPrefix + "/" + kind + "/" + name, nil
}
