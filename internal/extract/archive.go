package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Office documents (OOXML and OpenDocument) are zip packages of XML parts. Text is pulled
// from the elements that carry it; markup and styling are dropped.

const (
	contentTypesPath    = "[Content_Types].xml"
	docxDefaultPath     = "word/document.xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	odfContentPath      = "content.xml"
	pptxSlidePrefix     = "ppt/slides/slide"
)

var (
	docxText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	pptxText = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	odfPara  = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfSpan  = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfHead  = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)

	// The main part may be declared with its attributes in either order.
	docxPartName = []*regexp.Regexp{
		regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`),
		regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`),
	}
)

var errPartNotFound = errors.New("part not found")

func openPackage(content []byte, kind string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, invalid(kind, fmt.Errorf("not a zip package: %w", err))
	}
	return zr, nil
}

func readPart(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%s: %w", name, errPartNotFound)
}

// collectText joins the first submatch of every pattern match, in pattern order.
func collectText(xml string, patterns ...*regexp.Regexp) string {
	var parts []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(xml, -1) {
			if s := strings.TrimSpace(m[1]); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

func docxMainPath(zr *zip.Reader) string {
	types, err := readPart(zr, contentTypesPath)
	if err != nil {
		return docxDefaultPath
	}
	for _, re := range docxPartName {
		if m := re.FindStringSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return docxDefaultPath
}

func extractDOCX(content []byte) (string, error) {
	zr, err := openPackage(content, "DOCX")
	if err != nil {
		return "", err
	}
	xml, err := readPart(zr, docxMainPath(zr))
	if err != nil {
		return "", invalid("DOCX", err)
	}
	return collectText(xml, docxText), nil
}

// extractPPTX reads slides in slide order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openPackage(content, "PPTX")
	if err != nil {
		return "", err
	}
	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, pptxSlidePrefix) && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })

	var parts []string
	for _, f := range slides {
		xml, err := readPart(zr, f.Name)
		if err != nil {
			return "", invalid("PPTX", err)
		}
		if text := collectText(xml, pptxText); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func slideNumber(name string) int {
	n := 0
	for _, r := range strings.TrimSuffix(strings.TrimPrefix(name, pptxSlidePrefix), ".xml") {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func extractODF(content []byte, kind string, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openPackage(content, kind)
	if err != nil {
		return "", err
	}
	xml, err := readPart(zr, odfContentPath)
	if err != nil {
		return "", invalid(kind, err)
	}
	return collectText(xml, patterns...), nil
}

func extractODT(content []byte) (string, error) {
	return extractODF(content, "ODT", odfHead, odfPara, odfSpan)
}

func extractODS(content []byte) (string, error) {
	return extractODF(content, "ODS", odfPara, odfSpan)
}

func extractODP(content []byte) (string, error) {
	return extractODF(content, "ODP", odfPara, odfSpan, odfHead)
}
