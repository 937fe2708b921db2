package documents

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ExtractMarkdown returns the plain text of a markdown document. Top-level
// blocks are separated by blank lines and list items by single newlines, so
// the chunker sees the document's own paragraph structure.
func ExtractMarkdown(src []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var (
		blocks []string
		buf    bytes.Buffer
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			blocks = append(blocks, s)
		}
		buf.Reset()
	}

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				buf.Write(node.Segment.Value(src))
				switch {
				case node.HardLineBreak():
					buf.WriteByte('\n')
				case node.SoftLineBreak():
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(node.Value)
			case *ast.CodeBlock, *ast.FencedCodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(src))
				}
			}
			return ast.WalkContinue, nil
		}

		if n.Type() != ast.TypeBlock || n.Kind() == ast.KindDocument {
			return ast.WalkContinue, nil
		}
		if n.Kind() == ast.KindListItem || insideListItem(n) {
			buf.Truncate(len(bytes.TrimRight(buf.Bytes(), " ")))
			if b := buf.Bytes(); len(b) > 0 && b[len(b)-1] != '\n' {
				buf.WriteByte('\n')
			}
		} else {
			flush()
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(blocks, "\n\n")
}

func insideListItem(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == ast.KindListItem {
			return true
		}
	}
	return false
}

// ExtractPDF returns the plain text of every page, pages separated by blank lines.
func ExtractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		if s := strings.TrimSpace(content); s != "" {
			pages = append(pages, s)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// ExtractFile reads a document from disk and returns its title and plain
// text. Markdown and PDF are parsed; any other file must be UTF-8 text.
func ExtractFile(path string) (title, content string, err error) {
	title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		f, err := os.Open(path)
		if err != nil {
			return "", "", err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return "", "", err
		}
		content, err = ExtractPDF(f, info.Size())
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", path, err)
		}
		return title, content, nil

	case ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		return title, ExtractMarkdown(data), nil

	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		if !utf8.Valid(data) {
			return "", "", fmt.Errorf("%s: unsupported binary file", path)
		}
		return title, string(data), nil
	}
}
