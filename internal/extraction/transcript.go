package extraction

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Transcript renders a PDF's text content into a plain transcript for
// the language model, one line per text run, truncated at maxChars.
// Rate sheets are tables, so positional layout is discarded; the model
// works from reading order.
func Transcript(data []byte, maxChars int) (string, error) {
	pdf, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", fmt.Errorf("%w: read pdf: %w", ErrExtraction, err)
	}

	var b strings.Builder
	for page := 1; page <= pdf.PageCount; page++ {
		content, err := pdfcpu.ExtractPageContent(pdf, page)
		if err != nil {
			return "", fmt.Errorf("%w: page %d content: %w", ErrExtraction, page, err)
		}
		if content == nil {
			continue
		}

		raw, err := io.ReadAll(content)
		if err != nil {
			return "", fmt.Errorf("%w: page %d content: %w", ErrExtraction, page, err)
		}

		fmt.Fprintf(&b, "--- page %d ---\n", page)
		decodeContentText(&b, raw)
		b.WriteByte('\n')

		if maxChars > 0 && b.Len() >= maxChars {
			break
		}
	}

	transcript := b.String()
	if maxChars > 0 && len(transcript) > maxChars {
		transcript = transcript[:maxChars]
	}
	return transcript, nil
}

// decodeContentText pulls string operands of Tj and TJ operators out of
// a page content stream. Text runs are separated by spaces, with a
// newline at each ET so table rows tend to survive.
func decodeContentText(b *strings.Builder, content []byte) {
	i := 0
	for i < len(content) {
		switch content[i] {
		case '(':
			text, next := decodeLiteralString(content, i)
			if text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
			i = next
		case '%':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case 'E':
			if i+1 < len(content) && content[i+1] == 'T' {
				b.WriteByte('\n')
				i += 2
				continue
			}
			i++
		default:
			i++
		}
	}
}

// decodeLiteralString decodes a PDF literal string starting at the open
// paren. Returns the decoded text and the index just past the closing
// paren.
func decodeLiteralString(content []byte, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start

	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 >= len(content) {
				return b.String(), i + 1
			}
			i++
			switch content[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '(', ')', '\\':
				b.WriteByte(content[i])
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := 0
				n := 0
				for n < 3 && i < len(content) && content[i] >= '0' && content[i] <= '7' {
					v = v*8 + int(content[i]-'0')
					i++
					n++
				}
				i--
				if v < 128 {
					b.WriteByte(byte(v))
				}
			}
			i++
		case '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
			i++
		default:
			if c >= 32 && c < 127 {
				b.WriteByte(c)
			}
			i++
		}
	}

	return b.String(), i
}
