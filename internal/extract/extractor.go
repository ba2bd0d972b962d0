// Package extract turns document files into plain text for ingestion.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/chunkd/internal/models"
)

type extractFunc func(content []byte) (string, error)

// Extractor extracts plain text from document files by extension.
type Extractor struct {
	formats map[string]extractFunc
}

// NewExtractor returns an extractor for text, PDF, OOXML (docx, xlsx, pptx) and
// OpenDocument (odt, ods, odp) files.
func NewExtractor() *Extractor {
	return &Extractor{formats: map[string]extractFunc{
		".txt":  extractPlain,
		".md":   extractPlain,
		".rst":  extractPlain,
		".html": extractPlain,
		".pdf":  extractPDF,
		".docx": extractDOCX,
		".xlsx": extractExcel,
		".pptx": extractPPTX,
		".odt":  extractODT,
		".ods":  extractODS,
		".odp":  extractODP,
	}}
}

// Extensions lists the extensions with a dedicated extractor.
func (e *Extractor) Extensions() []string {
	exts := make([]string, 0, len(e.formats))
	for ext := range e.formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on ext, which includes the leading dot.
// Content with an unknown extension is accepted as plain text unless it looks binary.
// Unreadable or unsupported content is a models.ErrValidation.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if fn, ok := e.formats[strings.ToLower(ext)]; ok {
		return fn(content)
	}
	if looksBinary(content) {
		return "", fmt.Errorf("%w: unsupported file type %q", models.ErrValidation, ext)
	}
	return extractPlain(content)
}

// extractPlain returns content as a string. Invalid UTF-8 sequences are replaced with the
// replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}

func looksBinary(content []byte) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}

func invalid(kind string, err error) error {
	return fmt.Errorf("%w: extract %s: %v", models.ErrValidation, kind, err)
}
