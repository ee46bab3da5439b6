package render

import (
	"fmt"
	"io"

	"github.com/Sriram-PR/doc-toc/pkg/models"
)

const (
	indentPrefix    = "    "
	entryPrefix     = "├── "
	lastEntryPrefix = "└── "
	verticalLine    = "│   "
	placeholderText = "(gap)"
)

// WriteTree writes a text outline of the ToC forest, one node per line
func WriteTree(w io.Writer, roots []*models.ToCNode) error {
	return writeTreeLevel(w, roots, "")
}

func writeTreeLevel(w io.Writer, nodes []*models.ToCNode, currentIndent string) error {
	for i, n := range nodes {
		isLast := i == len(nodes)-1

		connector := entryPrefix
		if isLast {
			connector = lastEntryPrefix
		}

		line := placeholderText
		if !n.Placeholder {
			line = fmt.Sprintf("%s (#%s)", n.Label, n.AnchorID)
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", currentIndent, connector, line); err != nil {
			return err
		}

		if len(n.Children) > 0 {
			nextIndent := currentIndent
			if isLast {
				nextIndent += indentPrefix
			} else {
				nextIndent += verticalLine
			}
			if err := writeTreeLevel(w, n.Children, nextIndent); err != nil {
				return err
			}
		}
	}
	return nil
}
