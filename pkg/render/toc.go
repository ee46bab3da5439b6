package render

import (
	"fmt"
	"html"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/toc"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// ErrorPlaceholder is shown in place of a table of contents that could not be generated
const ErrorPlaceholder = `<div class="toc toc--error">Cannot render table of contents for this content.</div>`

// ToCHTML renders a ToC as a nested navigation list. An empty ToC renders as "".
func ToCHTML(rs toc.RenderStructure, title string) string {
	if len(rs.Headings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<nav class="toc">`)
	if title != "" {
		fmt.Fprintf(&b, `<div class="toc__title">%s</div>`, html.EscapeString(title))
	}
	writeList(&b, rs.Headings)
	b.WriteString(`</nav>`)
	return b.String()
}

func writeList(b *strings.Builder, nodes []*models.ToCNode) {
	b.WriteString("<ul>")
	for _, n := range nodes {
		if n.Placeholder {
			b.WriteString(`<li class="toc__placeholder">`)
		} else {
			b.WriteString("<li>")
			if n.AnchorLink != nil {
				fmt.Fprintf(b, `<a href="%s">%s</a>`, html.EscapeString(n.AnchorLink.Href()), html.EscapeString(n.Label))
			} else {
				b.WriteString(html.EscapeString(n.Label))
			}
		}
		if len(n.Children) > 0 {
			writeList(b, n.Children)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
}

// ToCMarkdown renders a ToC as a nested Markdown list
func ToCMarkdown(rs toc.RenderStructure, title string) (string, error) {
	return ToMarkdown(ToCHTML(rs, title))
}

// ToMarkdown converts rendered HTML to Markdown
func ToMarkdown(markup string) (string, error) {
	if markup == "" {
		return "", nil
	}
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrMarkdownConversion, err)
	}
	return out, nil
}
