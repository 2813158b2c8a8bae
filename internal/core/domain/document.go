package domain

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"

	DefaultMaxUploadBytes int64 = 10 * 1024 * 1024
)

var supportedMimeTypes = map[string]struct{}{
	MimePDF:  {},
	MimeDOCX: {},
	MimeText: {},
}

var extensionMimeTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".txt":  MimeText,
}

// UploadLimits bounds what the transport layer accepts.
type UploadLimits struct {
	MaxBytes int64
}

func (l UploadLimits) maxBytes() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return l.MaxBytes
}

// NormalizeMimeType strips media type parameters and falls back to the
// filename extension when the client sent nothing useful.
func NormalizeMimeType(filename, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			declared = strings.ToLower(mediaType)
		} else {
			declared = strings.ToLower(declared)
		}
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt
	}
	return declared
}

func IsSupportedMimeType(mimeType string) bool {
	_, ok := supportedMimeTypes[mimeType]
	return ok
}

func MimeTypeForExtension(ext string) (string, bool) {
	mimeType, ok := extensionMimeTypes[strings.ToLower(ext)]
	return mimeType, ok
}

// Validate checks an upload before any bytes are read. A negative size
// means the size is unknown and is enforced while reading instead.
func (l UploadLimits) Validate(filename, mimeType string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return WrapError(ErrInvalidInput, "validate upload", fmt.Errorf("no file provided"))
	}
	if !IsSupportedMimeType(mimeType) {
		return WrapError(ErrUnsupportedFormat, "validate upload",
			fmt.Errorf("invalid file type %q: please upload PDF, Word, or text files only", mimeType))
	}
	if size > l.maxBytes() {
		return l.TooLarge()
	}
	return nil
}

func (l UploadLimits) TooLarge() error {
	return WrapError(ErrTooLarge, "validate upload",
		fmt.Errorf("file too large: maximum size is %dMB", l.maxBytes()/(1024*1024)))
}

func (l UploadLimits) Max() int64 {
	return l.maxBytes()
}
