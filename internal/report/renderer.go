// Package report renders a compiled evaluation bundle to HTML and PDF.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const htmlStyle = `body{font-family:Arial,Helvetica,sans-serif;font-size:14px;margin:2em auto;max-width:1100px;color:#222}
table{border-collapse:collapse;margin:0.5em 0 1.5em}
th,td{border:1px solid #bbb;padding:3px 8px;text-align:left;vertical-align:top}
th{background:#e6e6e6}
code{font-family:Courier,monospace}`

// Renderer turns evolution_evaluation_bundle.md into its rendered forms.
// Rendering never touches the markdown bundle itself.
type Renderer struct {
	md     goldmark.Markdown
	logger arbor.ILogger
}

// NewRenderer creates a bundle renderer
func NewRenderer(logger arbor.ILogger) *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		logger: logger,
	}
}

// Render writes the requested formats next to the bundle in windowDir and
// returns the written paths.
func (r *Renderer) Render(windowDir string, asHTML, asPDF bool) ([]string, error) {
	bundlePath := filepath.Join(windowDir, artifacts.Bundle)
	markdown, err := os.ReadFile(bundlePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no bundle to render in %s: %w", windowDir, err)
		}
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	title := bundleTitle(markdown, filepath.Base(windowDir))

	var written []string
	if asHTML {
		doc, err := r.HTML(markdown, title)
		if err != nil {
			return written, err
		}
		path := filepath.Join(windowDir, artifacts.BundleHTML)
		if err := artifacts.Write(path, doc); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if asPDF {
		doc, err := r.PDF(markdown, title)
		if err != nil {
			return written, err
		}
		path := filepath.Join(windowDir, artifacts.BundlePDF)
		if err := artifacts.Write(path, doc); err != nil {
			return written, err
		}
		pages, err := PageCount(path)
		if err != nil {
			return written, fmt.Errorf("rendered PDF is unreadable: %w", err)
		}
		r.logger.Debug().Str("path", path).Int("pages", pages).Msg("PDF written")
		written = append(written, path)
	}

	r.logger.Info().Str("window_dir", windowDir).Int("files", len(written)).Msg("Bundle rendered")
	return written, nil
}

// HTML converts bundle markdown to a standalone HTML document
func (r *Renderer) HTML(markdown []byte, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&doc, "<style>\n%s\n</style>\n</head>\n<body>\n", htmlStyle)
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

// PDF converts bundle markdown to an A4 PDF
func (r *Renderer) PDF(markdown []byte, title string) ([]byte, error) {
	r.logger.Debug().Int("markdown_len", len(markdown)).Str("title", title).Msg("Converting bundle to PDF")
	out, err := r.markdownToPDF(markdown, title)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to generate PDF")
		return nil, err
	}
	return out, nil
}

// PageCount reads a PDF back and returns its number of pages
func PageCount(path string) (int, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	return ctx.PageCount, nil
}

// bundleTitle names the document after the bundle heading and its window
func bundleTitle(markdown []byte, windowID string) string {
	for _, line := range strings.Split(string(markdown), "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# ")) + " " + windowID
		}
	}
	return windowID
}
