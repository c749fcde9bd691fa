package cxx

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/cppmeta/internal/lang"
)

// comment returns the brief text of the documentation attached to item:
// the run of comments directly before it, or failing that a trailing
// member comment ("///<") on the line where it ends.
func (f *file) comment(item *sitter.Node) string {
	if item == nil {
		return ""
	}
	var parts []string
	next := item
	for prev := item.PrevSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevSibling() {
		text := lang.NodeText(prev, f.src)
		if isTrailing(text) || prev.EndPoint().Row+1 < next.StartPoint().Row || endsLineOf(prev) {
			break
		}
		parts = append(parts, text)
		next = prev
	}
	if len(parts) > 0 {
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		return brief(parts)
	}

	after := item.NextSibling()
	if after != nil && after.Type() == "," {
		after = after.NextSibling()
	}
	if after != nil && after.Type() == "comment" && after.StartPoint().Row == item.EndPoint().Row {
		if text := lang.NodeText(after, f.src); isTrailing(text) {
			return brief([]string{text})
		}
	}
	return ""
}

// endsLineOf reports whether c follows code on its own line, as in
// "int a; // note".
func endsLineOf(c *sitter.Node) bool {
	before := c.PrevSibling()
	return before != nil && before.Type() != "comment" && before.EndPoint().Row == c.StartPoint().Row
}

func isTrailing(text string) bool {
	for _, p := range []string{"///<", "//!<", "/**<", "/*!<"} {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// brief returns the first paragraph of the comment texts, or the paragraph
// introduced by a \brief or @brief command, joined into one line.
func brief(comments []string) string {
	var lines []string
	for _, c := range comments {
		lines = append(lines, commentLines(c)...)
	}

	start := 0
	for i, l := range lines {
		if rest, ok := cutCommand(l, "brief"); ok {
			lines[i] = rest
			start = i
			break
		}
	}

	var para []string
	for _, l := range lines[start:] {
		l = strings.TrimSpace(l)
		if l == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if len(para) > 0 && (strings.HasPrefix(l, `\`) || strings.HasPrefix(l, "@")) {
			break
		}
		para = append(para, l)
	}
	return lang.CollapseWhitespace(strings.Join(para, " "))
}

// commentLines strips comment markers and returns the text lines.
func commentLines(text string) []string {
	if strings.HasPrefix(text, "//") {
		var out []string
		for _, l := range strings.Split(text, "\n") {
			l = strings.TrimSpace(l)
			l = strings.TrimLeft(strings.TrimPrefix(l, "//"), "/!")
			out = append(out, strings.TrimPrefix(l, "<"))
		}
		return out
	}

	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimLeft(text, "*!")
	text = strings.TrimPrefix(text, "<")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "*") && !strings.HasPrefix(l, "*/") {
			l = strings.TrimPrefix(l, "*")
		}
		lines[i] = l
	}
	return lines
}

func cutCommand(line, name string) (string, bool) {
	l := strings.TrimSpace(line)
	for _, p := range []string{`\`, "@"} {
		if rest, ok := strings.CutPrefix(l, p+name); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
			return rest, true
		}
	}
	return "", false
}
