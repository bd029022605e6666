package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func statusTag(status string) string {
	switch status {
	case "completed":
		return "[OK]"
	case "failed":
		return "[FAIL]"
	case "running":
		return "[RUN]"
	case "pending":
		return "[PEND]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as a vertical stack of boxes, one per
// step along the chain.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}

	for i, id := range model.Order {
		node := model.node(id)
		if node == nil {
			continue
		}
		for _, line := range makeBox(node) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if i < len(model.Order)-1 {
			renderConnector(&b, edgeLabel(model, id))
		}
	}

	if len(model.Detached) > 0 {
		b.WriteString("\n--- not reachable ---\n")
		for _, id := range model.Detached {
			if node := model.node(id); node != nil {
				fmt.Fprintf(&b, "  %s\n", firstLine(node.Label))
			}
		}
	}
	return b.String()
}

func makeBox(node *Node) []string {
	content := []string{firstLine(node.Label)}
	if node.Status != nil {
		if tag := statusTag(node.Status.Status); tag != "" {
			content = append(content, tag)
		}
		if node.Status.DurationMs > 0 {
			content = append(content, fmt.Sprintf("%dms", node.Status.DurationMs))
		}
	}

	width := 0
	for _, line := range content {
		width = max(width, utf8.RuneCountInString(line))
	}

	lines := make([]string, 0, len(content)+2)
	lines = append(lines, "┌"+strings.Repeat("─", width+2)+"┐")
	for _, line := range content {
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(line))
		lines = append(lines, "│ "+line+pad+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width+2)+"┘")
	return lines
}

func renderConnector(b *strings.Builder, label string) {
	b.WriteString("    │\n")
	if label != "" {
		fmt.Fprintf(b, "    │ (%s)\n", label)
	}
	b.WriteString("    ▼\n")
}

func edgeLabel(model *DiagramModel, from string) string {
	for _, e := range model.Edges {
		if e.From == from {
			return e.Label
		}
	}
	return ""
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
