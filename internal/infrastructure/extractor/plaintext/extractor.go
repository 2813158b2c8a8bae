// Package plaintext decodes uploaded bytes as UTF-8 text. Every accepted
// format goes through the same decoding; no container format is parsed.
package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lexora-app/lexora/internal/core/domain"
)

const replacementChar = "�"

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, mimeType string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !domain.IsSupportedMimeType(mimeType) {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text",
			fmt.Errorf("no extractor for %q", mimeType))
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	return strings.ToValidUTF8(string(raw), replacementChar), nil
}
