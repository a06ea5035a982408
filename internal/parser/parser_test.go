package parser

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"pdf by extension", Document{Name: "Informe.PDF"}, "pdf"},
		{"pdf by magic", Document{Data: []byte("%PDF-1.7\n...")}, "pdf"},
		{"markdown", Document{Name: "notes.md"}, "txt"},
		{"plain text content", Document{Data: []byte("just some words")}, "txt"},
		{"docx zip", Document{Data: zipBytes(t, map[string]string{"word/document.xml": "<w:document/>"})}, "docx"},
		{"pptx zip", Document{Data: zipBytes(t, map[string]string{"ppt/slides/slide1.xml": "<p:sld/>"})}, "pptx"},
		{"binary", Document{Data: []byte{0x00, 0x01, 0x02, 0xff}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DetectFormat(tt.doc))
		})
	}
}

func TestExtractText(t *testing.T) {
	text, err := NewExtractor().Extract(Document{Name: "a.txt", Data: []byte("hola\nmundo")})
	require.NoError(t, err)
	require.Equal(t, "hola\nmundo", text)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := NewExtractor().Extract(Document{Name: "image.bin", Data: []byte{0x00, 0x9f, 0x92, 0x96}})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := NewExtractor().Extract(Document{Name: "broken.pdf", Data: []byte("%PDF-1.4\nnot really a pdf")})
	require.ErrorIs(t, err, ErrMalformedDocument)
}

func TestExtractPPTX(t *testing.T) {
	data := zipBytes(t, map[string]string{
		"ppt/slides/slide1.xml": `<p:sld><a:t>Primera</a:t><a:t xml:space="preserve"> diapositiva</a:t></p:sld>`,
		"ppt/slides/_rels/slide1.xml.rels": `<a:t>ignored</a:t>`,
	})
	text, err := NewExtractor().Extract(Document{Name: "deck.pptx", Data: data})
	require.NoError(t, err)
	require.Equal(t, "Primera diapositiva", text)
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "nombre"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "edad"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Ana"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 31))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := NewExtractor().Extract(Document{Name: "datos.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)
	require.Contains(t, text, "## Sheet: Sheet1")
	require.Contains(t, text, "nombre\tedad")
	require.Contains(t, text, "Ana\t31")
}

func TestExtractTextFromXML(t *testing.T) {
	xml := "<w:p><w:r><w:t>Tom &amp; Jerry</w:t></w:r></w:p>\n<w:p><w:r><w:tab/><w:t xml:space=\"preserve\">segunda</w:t></w:r></w:p>"
	require.Equal(t, "Tom & Jerry\nsegunda", extractTextFromXML(xml, "w:t"))
}
