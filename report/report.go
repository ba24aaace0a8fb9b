// Package report renders compliance reports for people and machines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/wudi/preflight/compliance"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Renderer writes a report in one format.
type Renderer interface {
	Render(w io.Writer, r *compliance.Report) error
}

// New returns the renderer for format.
func New(format Format) (Renderer, error) {
	switch format {
	case FormatText, "":
		return TextRenderer{}, nil
	case FormatJSON:
		return JSONRenderer{Indent: true}, nil
	case FormatMarkdown, "md":
		return MarkdownRenderer{}, nil
	case FormatHTML:
		return NewHTMLRenderer(), nil
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

func title(r *compliance.Report) string {
	if r.Source != "" {
		return r.Source
	}
	return r.ID
}

func verdict(r *compliance.Report) string {
	if r.Compliant {
		return "compliant"
	}
	if len(r.Issues) == 1 {
		return "1 issue"
	}
	return fmt.Sprintf("%d issues", len(r.Issues))
}

// TextRenderer prints one issue per line.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, r *compliance.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s against %s (PDF %s, %d pages)\n", title(r), verdict(r), r.Profile, r.Version, r.Pages)
	for _, is := range r.Issues {
		fmt.Fprintf(&b, "  - %s\n", is)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type JSONRenderer struct {
	Indent bool
}

func (j JSONRenderer) Render(w io.Writer, r *compliance.Report) error {
	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(r)
}

// MarkdownRenderer writes a summary table followed by an issue table.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(w io.Writer, r *compliance.Report) error {
	_, err := io.WriteString(w, markdown(r))
	return err
}

func markdown(r *compliance.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Preflight: %s\n\n", cell(title(r)))
	b.WriteString("| Profile | PDF version | Pages | Result | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n\n", cell(r.Profile), cell(r.Version), r.Pages, verdict(r), r.Duration)
	if len(r.Issues) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}
	b.WriteString("## Issues\n\n")
	b.WriteString("| # | Rule | Description | Details |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, is := range r.Issues {
		var details []string
		for _, k := range is.AttributeKeys() {
			v, _ := is.Attr(k)
			details = append(details, fmt.Sprintf("%s: %v", k, v))
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, cell(is.RuleName()), cell(is.Description), cell(strings.Join(details, "; ")))
	}
	return b.String()
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	for _, c := range []string{"*", "_", "`", "<", "[", "]"} {
		s = strings.ReplaceAll(s, c, "\\"+c)
	}
	return s
}

// HTMLRenderer converts the Markdown form with goldmark and wraps it in a
// standalone page.
type HTMLRenderer struct {
	md goldmark.Markdown
}

func NewHTMLRenderer() HTMLRenderer {
	return HTMLRenderer{md: goldmark.New(goldmark.WithExtensions(extension.Table))}
}

func (h HTMLRenderer) Render(w io.Writer, r *compliance.Report) error {
	md := h.md
	if md == nil {
		md = NewHTMLRenderer().md
	}
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown(r)), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Preflight: %s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title(r)), body.String())
	return err
}
