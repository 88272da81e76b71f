// Package resume downloads applicant resumes and turns them into plain text.
package resume

import (
	"bytes"
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

// Document is a downloaded resume file.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Kind returns the MIME type used for extraction, from the declared content
// type, the file extension or the leading bytes, in that order.
func (d Document) Kind() string {
	contentType := strings.ToLower(strings.TrimSpace(d.ContentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	switch contentType {
	case MimePDF, MimeDOCX, MimeText:
		return contentType
	}

	switch strings.ToLower(path.Ext(d.Name)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt", ".md":
		return MimeText
	}

	switch {
	case bytes.HasPrefix(d.Data, []byte("%PDF-")):
		return MimePDF
	case bytes.HasPrefix(d.Data, []byte("PK\x03\x04")):
		return MimeDOCX
	case utf8.Valid(d.Data):
		return MimeText
	}
	return ""
}

// Extract returns the plain text of a resume document.
func Extract(doc Document) (string, error) {
	switch kind := doc.Kind(); kind {
	case MimeText:
		return strings.TrimSpace(string(doc.Data)), nil
	case MimePDF:
		return extractPDFText(doc.Data)
	case MimeDOCX:
		return extractDocxText(doc.Data)
	default:
		return "", fmt.Errorf("unsupported file type %q for %s", doc.ContentType, doc.Name)
	}
}

// extractPDFText joins page texts in page order with a single space.
func extractPDFText(data []byte) (text string, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}

	return strings.Join(pages, " "), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTag          = regexp.MustCompile(`<[^>]+>`)
	blankLines       = regexp.MustCompile(`\n\s*\n+`)
)

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	// GetContent returns the raw document.xml body
	content := doc.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = blankLines.ReplaceAllString(content, "\n")

	return strings.TrimSpace(content), nil
}
