// Package annotation classifies declaration annotations and evaluates the
// reflection policy they drive.
package annotation

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Raw spellings of the control annotations.
const (
	ReflectMarker     = "__reflect__"
	FullReflectMarker = "__full_reflect__"
	NoReflectMarker   = "__noreflect__"
	PushPrefix        = "__push__"
	PopMarker         = "__pop__"
)

// ErrScopeUnderflow is returned when a pop annotation is applied to an
// empty tag scope.
var ErrScopeUnderflow = errors.Base("pop on empty tag scope")

// Kind is the variant of a parsed annotation.
type Kind int

const (
	Plain Kind = iota
	ReflectAll
	ReflectNone
	Push
	Pop
)

func (k Kind) String() string {
	switch k {
	case ReflectAll:
		return "reflect"
	case ReflectNone:
		return "noreflect"
	case Push:
		return "push"
	case Pop:
		return "pop"
	default:
		return "plain"
	}
}

// Token is one classified annotation. Tag is set for Plain and Push.
type Token struct {
	Kind Kind
	Tag  string
}

// Parse classifies a raw annotation string.
func Parse(raw string) Token {
	switch {
	case raw == ReflectMarker, raw == FullReflectMarker:
		return Token{Kind: ReflectAll}
	case raw == NoReflectMarker:
		return Token{Kind: ReflectNone}
	case raw == PopMarker:
		return Token{Kind: Pop}
	case strings.HasPrefix(raw, PushPrefix):
		return Token{Kind: Push, Tag: strings.TrimPrefix(raw, PushPrefix)}
	default:
		return Token{Kind: Plain, Tag: raw}
	}
}

// ParseAll classifies each raw annotation in order.
func ParseAll(raws []string) []Token {
	if len(raws) == 0 {
		return nil
	}
	tokens := make([]Token, len(raws))
	for i, raw := range raws {
		tokens[i] = Parse(raw)
	}
	return tokens
}

func (t Token) String() string {
	switch t.Kind {
	case Plain:
		return t.Tag
	case Push:
		return PushPrefix + t.Tag
	case ReflectAll:
		return ReflectMarker
	case ReflectNone:
		return NoReflectMarker
	default:
		return PopMarker
	}
}

// PlainTags returns the tags of the plain tokens among raws, in order.
// Control annotations are ignored.
func PlainTags(raws []string) []string {
	var tags []string
	for _, raw := range raws {
		if tok := Parse(raw); tok.Kind == Plain {
			tags = append(tags, tok.Tag)
		}
	}
	return tags
}
