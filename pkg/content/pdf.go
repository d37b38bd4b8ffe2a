package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	errEmptyPDFContent = errors.New("pdf content is empty")
	errNoPDFText       = errors.New("pdf contains no text")
)

// ExtractTextFromPDF returns the text of an in-memory PDF transcript, one
// line per text row, with pages separated by a blank line.
func ExtractTextFromPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", errEmptyPDFContent
	}

	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}

		var lines []string
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				lines = append(lines, s)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}

	if len(pages) == 0 {
		return "", errNoPDFText
	}
	return strings.Join(pages, "\n\n"), nil
}
