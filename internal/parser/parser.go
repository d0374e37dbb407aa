package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"docqa/internal/errs"
)

// Page is the extracted text of one document page. Image-only pages come
// through with empty text.
type Page struct {
	Number int
	Text   string
}

// Document is the parsed form of an uploaded file. The raw bytes are
// discarded once extraction is done.
type Document struct {
	Source string
	Pages  []Page
}

// Text joins the page texts in document order.
func (d *Document) Text() string {
	var sb strings.Builder
	for _, p := range d.Pages {
		if p.Text == "" {
			continue
		}
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Parser validates and extracts text from supported document formats.
type Parser struct {
	maxFileBytes int64
}

func New(maxFileSizeMB int) *Parser {
	return &Parser{maxFileBytes: int64(maxFileSizeMB) << 20}
}

// Parse extracts text from the file at path, dispatching on extension.
func (p *Parser) Parse(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	if info.Size() > p.maxFileBytes {
		return nil, fmt.Errorf("%w: file exceeds %d MB limit", errs.ErrInvalidInput, p.maxFileBytes>>20)
	}

	name := filepath.Base(path)
	var doc *Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
		}
		return p.ParsePDFBytes(name, data)
	case ".docx":
		doc, err = parseDOCX(path)
	case ".pptx":
		doc, err = parsePPTX(path)
	case ".xlsx":
		doc, err = parseXLSX(path)
	case ".ods":
		doc, err = parseODS(path)
	case ".txt":
		doc, err = parseText(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q", errs.ErrInvalidInput, ext)
	}
	if err != nil {
		return nil, err
	}
	doc.Source = name
	return checkNonEmpty(doc)
}

// ParsePDFBytes extracts per-page text from raw PDF bytes. Pages that fail
// extraction are skipped; the document as a whole fails only when nothing
// extractable remains.
func (p *Parser) ParsePDFBytes(name string, data []byte) (*Document, error) {
	if int64(len(data)) > p.maxFileBytes {
		return nil, fmt.Errorf("%w: file exceeds %d MB limit", errs.ErrInvalidInput, p.maxFileBytes>>20)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable PDF: %v", errs.ErrInvalidInput, err)
	}

	doc := &Document{Source: name}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("source", name).Msg("skipping unextractable page")
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: pageText})
	}
	return checkNonEmpty(doc)
}

func parseDOCX(path string) (*Document, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return &Document{Pages: []Page{{Number: 1, Text: stripXMLTags(content)}}}, nil
}

func parsePPTX(path string) (*Document, error) {
	f, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	defer f.Close()

	doc := &Document{}
	slideNum := 0
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		slideNum++
		rc, err := file.Open()
		if err != nil {
			log.Warn().Err(err).Str("slide", file.Name).Msg("skipping unreadable slide")
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Warn().Err(err).Str("slide", file.Name).Msg("skipping unreadable slide")
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: slideNum, Text: extractSlideText(string(data))})
	}
	return doc, nil
}

// extractSlideText collects the <a:t> text runs of a slide's DrawingML.
func extractSlideText(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if end := strings.Index(part, "</a:t>"); end >= 0 {
			text.WriteString(part[:end] + " ")
		}
	}
	return text.String()
}

func parseXLSX(path string) (*Document, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	doc := &Document{}
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		doc.Pages = append(doc.Pages, Page{Number: sheetNum + 1, Text: text.String()})
	}
	return doc, nil
}

func parseODS(path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	defer f.Close()

	doc := &Document{}
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("skipping unreadable sheet")
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		doc.Pages = append(doc.Pages, Page{Number: sheetNum + 1, Text: text.String()})
	}
	return doc, nil
}

func parseText(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return &Document{Pages: []Page{{Number: 1, Text: string(data)}}}, nil
}

func checkNonEmpty(doc *Document) (*Document, error) {
	if strings.TrimSpace(doc.Text()) == "" {
		return nil, errs.ErrEmptyDocument
	}
	return doc, nil
}

// stripXMLTags drops any markup the docx content extractor leaves behind.
func stripXMLTags(content string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
