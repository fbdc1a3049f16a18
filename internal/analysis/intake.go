package analysis

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

// Variant selects which inputs and tools the service accepts.
type Variant string

const (
	VariantUpload Variant = "upload"
	VariantURL    Variant = "url"
)

// ParseVariant accepts "upload" or "url".
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantUpload, VariantURL:
		return v, nil
	default:
		return "", fmt.Errorf("unknown variant %q (want upload or url)", s)
	}
}

// Validation messages.
const (
	MsgUploadRequired = "Please upload a video and provide a query."
	MsgQueryRequired  = "Please provide a query."
	MsgVideoRequired  = "Please upload a video or provide a YouTube URL."
)

// Input is a submitted analysis form.
type Input struct {
	Query    string
	VideoURL string
	File     *multipart.FileHeader
}

func (in Input) hasFile() bool {
	return in.File != nil && in.File.Filename != ""
}

// useURL reports whether the URL path handles this input. A URL wins over a file.
func (in Input) useURL(v Variant) bool {
	return v == VariantURL && in.VideoURL != ""
}

// ReadInput extracts the query, video_url and video fields from a form post.
// maxMemory bounds the in-memory part of a multipart body; the rest spills to disk.
func ReadInput(r *http.Request, maxMemory int64) (Input, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return Input{}, fmt.Errorf("parse form: %w", err)
	}
	in := Input{
		Query:    strings.TrimSpace(r.FormValue("query")),
		VideoURL: strings.TrimSpace(r.FormValue("video_url")),
	}
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["video"]; len(files) > 0 {
			in.File = files[0]
		}
	}
	return in, nil
}

// Validate checks required fields for the variant. It performs no I/O.
func Validate(v Variant, in Input) *Error {
	query := strings.TrimSpace(in.Query)
	switch v {
	case VariantUpload:
		if query == "" || !in.hasFile() {
			return validationError(MsgUploadRequired)
		}
	default:
		if query == "" {
			return validationError(MsgQueryRequired)
		}
		if strings.TrimSpace(in.VideoURL) == "" && !in.hasFile() {
			return validationError(MsgVideoRequired)
		}
	}
	return nil
}
