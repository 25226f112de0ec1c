package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedContent is returned for objects that are neither PDF nor text.
var ErrUnsupportedContent = errors.New("unsupported document content")

// Decode converts raw object bytes into a Document. Keys ending in ".pdf" are
// parsed as PDF; everything else must be valid UTF-8 text.
func Decode(ref Ref, body []byte) (Document, error) {
	name := path.Base(ref.Key)

	var text string
	if strings.EqualFold(path.Ext(name), ".pdf") {
		t, err := pdfText(body)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedContent, ref, err)
		}
		text = t
	} else {
		if !utf8.Valid(body) {
			return Document{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupportedContent, ref)
		}
		text = string(body)
	}

	return Document{
		Ref:  ref,
		Name: name,
		Text: text,
		Metadata: map[string]any{
			"bucket":    ref.Bucket,
			"key":       ref.Key,
			"file_name": name,
		},
	}, nil
}

func pdfText(body []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading pdf buffer: %w", err)
	}
	return buf.String(), nil
}
