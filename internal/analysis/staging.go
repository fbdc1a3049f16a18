package analysis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Stager writes uploads under Dir using generated names.
type Stager struct {
	Dir string
	// URLPrefix is the public path Dir is served under, e.g. "/static/uploads".
	URLPrefix string
}

// Staged is an upload written to disk for the duration of one request.
type Staged struct {
	Path      string
	PublicURL string
	MIMEType  string
}

// Remove deletes the staged file. Missing files are not an error.
func (s *Staged) Remove() {
	if s == nil {
		return
	}
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("staging: remove failed", slog.String("path", s.Path), slog.Any("error", err))
	}
}

// safeExt returns the lowercased extension of name restricted to [a-z0-9.].
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() <= 1 {
		return ""
	}
	return b.String()
}

// mimeFor picks a content type from the client header, then the extension.
func mimeFor(fh *multipart.FileHeader, ext string) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "video/mp4"
}

// Stage copies an uploaded file to a fresh uuid-named file. The client name is never used as a path.
func (s *Stager) Stage(fh *multipart.FileHeader) (*Staged, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := safeExt(fh.Filename)
	name := uuid.NewString() + ext
	dst := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	staged := &Staged{
		Path:      dst,
		PublicURL: path.Join(s.URLPrefix, name),
		MIMEType:  mimeFor(fh, ext),
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		staged.Remove()
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		staged.Remove()
		return nil, fmt.Errorf("close staged file: %w", err)
	}
	return staged, nil
}
