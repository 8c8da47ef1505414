package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor turns one statement file into a single text blob
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// DecodeError reports a file that could not be opened or decoded as a PDF
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PDF extracts the plain text layer of a PDF document. Scanned images are
// not OCR'd and yield empty text.
type PDF struct {
	logger *slog.Logger
}

// NewPDF creates a PDF extractor
func NewPDF(logger *slog.Logger) *PDF {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDF{logger: logger}
}

// ExtractText returns the text of every page in document order, each page
// followed by a newline. Null pages contribute only the newline.
func (p *PDF) ExtractText(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	// The decoder panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &DecodeError{Path: path, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return "", &DecodeError{Path: path, Err: err}
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", &DecodeError{Path: path, Err: err}
	}

	var sb strings.Builder
	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if !page.V.IsNull() {
			pageText, err := page.GetPlainText(nil)
			if err != nil {
				return "", &DecodeError{Path: path, Err: fmt.Errorf("page %d: %w", i, err)}
			}
			sb.WriteString(pageText)
		}
		sb.WriteString("\n")
	}

	p.logger.Debug("extracted pdf text", "path", path, "pages", pageCount, "chars", sb.Len())
	return sb.String(), nil
}
