package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMalformedDocument = errors.New("malformed document")
)

// Document is one uploaded blob. Name is optional and only used to pick a format.
type Document struct {
	Name string
	Data []byte
}

// Extractor turns a document into its plain text.
type Extractor interface {
	Extract(doc Document) (string, error)
}

type FileExtractor struct{}

func NewExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract detects the format from the file extension, falling back to the
// content itself, and returns the document text in reading order.
func (e *FileExtractor) Extract(doc Document) (string, error) {
	format := DetectFormat(doc)
	log.Debug().Str("name", doc.Name).Str("format", format).Int("bytes", len(doc.Data)).Msg("extracting text")

	switch format {
	case "pdf":
		return extractPDF(doc.Data)
	case "docx":
		return extractDOCX(doc.Data)
	case "pptx":
		return extractPPTX(doc.Data)
	case "xlsx":
		return extractXLSX(doc.Data)
	case "txt":
		return string(doc.Data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, doc.Name)
	}
}

// DetectFormat returns one of pdf, docx, pptx, xlsx, txt or "" when unknown.
func DetectFormat(doc Document) string {
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return "pdf"
	case ".docx":
		return "docx"
	case ".pptx":
		return "pptx"
	case ".xlsx":
		return "xlsx"
	case ".txt", ".md", ".markdown", ".csv":
		return "txt"
	}

	if bytes.HasPrefix(doc.Data, []byte("%PDF-")) {
		return "pdf"
	}
	if bytes.HasPrefix(doc.Data, []byte("PK\x03\x04")) {
		return sniffOfficeZip(doc.Data)
	}
	if len(doc.Data) == 0 {
		return "txt"
	}
	if strings.HasPrefix(http.DetectContentType(doc.Data), "text/") {
		return "txt"
	}
	return ""
}

func sniffOfficeZip(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return "docx"
		case strings.HasPrefix(f.Name, "ppt/"):
			return "pptx"
		case strings.HasPrefix(f.Name, "xl/"):
			return "xlsx"
		}
	}
	return ""
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrMalformedDocument, i, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "</w:p>\n")
	return extractTextFromXML(content, "w:t"), nil
}

func extractPPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	var slides []string
	for _, file := range zr.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		if slideText := strings.TrimSpace(extractTextFromXML(string(raw), "a:t")); slideText != "" {
			slides = append(slides, slideText)
		}
	}
	return strings.Join(slides, "\n"), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("skipping unreadable sheet")
			continue
		}
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

// extractTextFromXML collects the character data of every <tag> element,
// keeping the newlines found between elements.
func extractTextFromXML(xmlContent, tag string) string {
	open, closing := "<"+tag+">", "</"+tag+">"
	openAttr := "<" + tag + " "

	var text strings.Builder
	rest := xmlContent
	for {
		i := strings.Index(rest, open)
		j := strings.Index(rest, openAttr)
		if i < 0 || (j >= 0 && j < i) {
			i = j
		}
		if i < 0 {
			break
		}
		text.WriteString(strings.Repeat("\n", strings.Count(rest[:i], "\n")))

		start := strings.IndexByte(rest[i:], '>')
		if start < 0 {
			break
		}
		rest = rest[i+start+1:]
		end := strings.Index(rest, closing)
		if end < 0 {
			break
		}
		text.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len(closing):]
	}
	return text.String()
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
