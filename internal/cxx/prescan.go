package cxx

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	annotateRe = regexp.MustCompile(`\bannotate\s*\(\s*"((?:[^"\\]|\\.)*)"\s*\)`)
	noreturnRe = regexp.MustCompile(`\b(?:__)?noreturn(?:__)?\b`)
)

// macro is an object-like macro that expands to annotation attributes.
type macro struct {
	values   []string
	noreturn bool
}

// macroFromBody reports whether a #define body carries annotations and
// returns them.
func macroFromBody(body string) (macro, bool) {
	m := macro{values: annotateStrings(body)}
	if strings.Contains(body, "__attribute__") || strings.Contains(body, "[[") {
		m.noreturn = noreturnRe.MatchString(body)
	}
	return m, len(m.values) > 0 || m.noreturn
}

// note is an attribute found in the source text before parsing.
type note struct {
	pos      uint32
	values   []string
	noreturn bool
	taken    bool
}

// notes is the attribute list of one file, ordered by position.
type notes []*note

// claim returns the unclaimed annotation strings in [lo, hi) and marks
// them taken, together with any noreturn attribute among them.
func (ns notes) claim(lo, hi uint32) (values []string, noreturn bool) {
	i := sort.Search(len(ns), func(i int) bool { return ns[i].pos >= lo })
	for ; i < len(ns) && ns[i].pos < hi; i++ {
		n := ns[i]
		if n.taken {
			continue
		}
		n.taken = true
		values = append(values, n.values...)
		noreturn = noreturn || n.noreturn
	}
	return values, noreturn
}

// prescan locates attributes and annotation macro uses in src, records them
// and returns a copy of src with each occurrence replaced by spaces.
// Newlines are kept so rows and byte offsets are unchanged. Comments,
// string literals and preprocessor directives are left alone.
func prescan(src []byte, macros map[string]macro) ([]byte, notes) {
	out := make([]byte, len(src))
	copy(out, src)

	var found notes
	lineStart := true
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			lineStart = true
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++
			continue
		case c == '#' && lineStart:
			i = skipDirective(src, i)
			continue
		}
		lineStart = false

		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			i = skipLine(src, i)
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i = skipBlockComment(src, i)
		case c == '"':
			i = skipQuoted(src, i, '"')
		case c == '\'':
			if i > 0 && isIdentByte(src[i-1]) {
				i++ // digit separator
				continue
			}
			i = skipQuoted(src, i, '\'')
		case c == '[' && i+1 < len(src) && src[i+1] == '[':
			end := matchAttributeList(src, i)
			if end < 0 {
				i += 2
				continue
			}
			body := string(src[i+2 : end-2])
			found = append(found, &note{
				pos:      uint32(i),
				values:   annotateStrings(body),
				noreturn: noreturnRe.MatchString(body),
			})
			blank(out, i, end)
			i = end
		case isIdentStart(c):
			j := i
			for j < len(src) && isIdentByte(src[j]) {
				j++
			}
			word := string(src[i:j])
			switch {
			case j < len(src) && src[j] == '"' && isRawPrefix(word):
				i = skipRawString(src, j)
				continue
			case word == "__attribute__" || word == "__attribute":
				end := matchParens(src, j)
				if end < 0 {
					i = j
					continue
				}
				body := string(src[j:end])
				found = append(found, &note{
					pos:      uint32(i),
					values:   annotateStrings(body),
					noreturn: noreturnRe.MatchString(body),
				})
				blank(out, i, end)
				i = end
				continue
			}
			if m, ok := macros[word]; ok {
				found = append(found, &note{pos: uint32(i), values: m.values, noreturn: m.noreturn})
				blank(out, i, j)
			}
			i = j
		default:
			i++
		}
	}
	return out, found
}

// annotateStrings returns the arguments of every annotate("...") in s.
func annotateStrings(s string) []string {
	var out []string
	for _, m := range annotateRe.FindAllStringSubmatch(s, -1) {
		v, err := strconv.Unquote(`"` + m[1] + `"`)
		if err != nil {
			v = m[1]
		}
		out = append(out, v)
	}
	return out
}

func blank(b []byte, from, to int) {
	for k := from; k < to; k++ {
		if b[k] != '\n' {
			b[k] = ' '
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func isRawPrefix(word string) bool {
	switch word {
	case "R", "LR", "uR", "UR", "u8R":
		return true
	}
	return false
}

// skipDirective returns the offset past a preprocessor line, following
// backslash continuations.
func skipDirective(src []byte, i int) int {
	for i < len(src) {
		switch {
		case src[i] == '\\' && i+1 < len(src) && src[i+1] == '\n':
			i += 2
		case src[i] == '\\' && i+2 < len(src) && src[i+1] == '\r' && src[i+2] == '\n':
			i += 3
		case src[i] == '/' && i+1 < len(src) && src[i+1] == '*':
			i = skipBlockComment(src, i)
		case src[i] == '\n':
			return i
		default:
			i++
		}
	}
	return i
}

func skipLine(src []byte, i int) int {
	for i < len(src) && src[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(src []byte, i int) int {
	i += 2
	for i+1 < len(src) {
		if src[i] == '*' && src[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(src)
}

func skipQuoted(src []byte, i int, quote byte) int {
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		case '\n':
			return i
		}
		i++
	}
	return i
}

// skipRawString skips R"delim( ... )delim" starting at the opening quote.
func skipRawString(src []byte, i int) int {
	open := i + 1
	paren := open
	for paren < len(src) && src[paren] != '(' && src[paren] != '\n' {
		paren++
	}
	if paren >= len(src) || src[paren] != '(' {
		return skipQuoted(src, i, '"')
	}
	closing := ")" + string(src[open:paren]) + `"`
	if end := strings.Index(string(src[paren:]), closing); end >= 0 {
		return paren + end + len(closing)
	}
	return len(src)
}

// matchParens returns the offset past the parenthesized group that starts at
// the first non-space byte at or after i, or -1 when there is none.
func matchParens(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	if i >= len(src) || src[i] != '(' {
		return -1
	}
	depth := 0
	for i < len(src) {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '"':
			i = skipQuoted(src, i, '"')
			continue
		}
		i++
	}
	return -1
}

// matchAttributeList returns the offset past the "]]" closing the attribute
// list that opens at i, or -1.
func matchAttributeList(src []byte, i int) int {
	depth := 0
	for j := i + 2; j+1 < len(src); j++ {
		switch src[j] {
		case '"':
			j = skipQuoted(src, j, '"') - 1
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
				continue
			}
			if src[j+1] == ']' {
				return j + 2
			}
			return -1
		case ';', '{', '}':
			return -1
		}
	}
	return -1
}
