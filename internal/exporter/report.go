package exporter

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"incomestatement/pkg/contracts/domain"
)

// markdown renders inline spans for highlighted cells, so raw HTML is allowed.
// Every user-supplied string is escaped before it reaches the document.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { padding: 0.3rem 0.8rem; border-bottom: 1px solid #ddd; }
td:last-child, th:last-child { text-align: right; }
.primary { background-color: {{.Primary}}; font-weight: bold; }
.secondary { background-color: {{.Secondary}}; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Markdown renders the statement as a GitHub flavored Markdown document
func Markdown(result *domain.ResultSet) string {
	view := NewView(result)
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(view.Title))

	labels := make([]string, len(view.Headlines))
	values := make([]string, len(view.Headlines))
	aligns := make([]string, len(view.Headlines))
	for i, h := range view.Headlines {
		labels[i] = h.Label
		values[i] = h.Display
		aligns[i] = "---:"
	}
	fmt.Fprintf(&b, "| %s |\n| %s |\n| %s |\n\n",
		strings.Join(labels, " | "), strings.Join(aligns, " | "), strings.Join(values, " | "))

	b.WriteString("## Detailed Results Table\n\n")
	b.WriteString("| Metric | Value |\n| :--- | ---: |\n")
	for _, line := range view.Lines {
		label, value := escapeMarkdown(line.Label), line.Display
		if line.Highlight != domain.HighlightNone {
			label = highlightSpan(line.Highlight, label)
			value = highlightSpan(line.Highlight, value)
		}
		fmt.Fprintf(&b, "| %s | %s |\n", label, value)
	}

	return b.String()
}

// WriteHTML renders the Markdown report into a standalone HTML page
func WriteHTML(w io.Writer, result *domain.ResultSet) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(result)), &body); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	return page.Execute(w, struct {
		Title     string
		Primary   template.CSS
		Secondary template.CSS
		Body      template.HTML
	}{
		Title:     Title(result.Products),
		Primary:   template.CSS(ColorPrimary),
		Secondary: template.CSS(ColorSecondary),
		Body:      template.HTML(body.String()),
	})
}

func highlightSpan(h domain.Highlight, content string) string {
	return fmt.Sprintf(`<span class="%s">%s</span>`, h, content)
}

// escapeMarkdown neutralises HTML and table syntax in free text
func escapeMarkdown(s string) string {
	for _, ch := range []string{`\`, "|", "*", "_", "`", "[", "]"} {
		s = strings.ReplaceAll(s, ch, `\`+ch)
	}
	return html.EscapeString(s)
}
