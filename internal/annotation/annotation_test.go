package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Token
	}{
		{"__reflect__", Token{Kind: ReflectAll}},
		{"__full_reflect__", Token{Kind: ReflectAll}},
		{"__noreflect__", Token{Kind: ReflectNone}},
		{"__pop__", Token{Kind: Pop}},
		{"__push__cat=math", Token{Kind: Push, Tag: "cat=math"}},
		{"__push__", Token{Kind: Push, Tag: ""}},
		{"serialize", Token{Kind: Plain, Tag: "serialize"}},
		{"__reflect__x", Token{Kind: Plain, Tag: "__reflect__x"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestTokenStringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"__reflect__", "__noreflect__", "__pop__", "__push__a", "tag"} {
		assert.Equal(t, raw, Parse(raw).String())
	}
}

func TestScopePersistence(t *testing.T) {
	t.Parallel()

	var empty Scope
	a := empty.Push("a")
	ab := a.Push("b")
	ac := a.Push("c")

	assert.Equal(t, []string{"a", "b"}, ab.Tags())
	assert.Equal(t, []string{"a", "c"}, ac.Tags(), "sibling scopes must not observe each other")
	assert.Equal(t, []string{"a"}, a.Tags())
	assert.Nil(t, empty.Tags())

	popped, err := ab.Pop()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, popped.Tags())
	assert.Equal(t, 2, ab.Len())
}

func TestScopeUnderflow(t *testing.T) {
	t.Parallel()

	_, err := Scope{}.Pop()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScopeUnderflow))
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	base := Scope{}.Push("outer")

	tests := []struct {
		name        string
		raws        []string
		inherited   bool
		wantDrop    bool
		wantReflect bool
		wantAttrs   []string
		wantScope   []string
	}{
		{
			name:      "no annotations",
			wantAttrs: []string{"outer"},
			wantScope: []string{"outer"},
		},
		{
			name:        "reflect marker is not a tag",
			raws:        []string{"__reflect__", "json"},
			wantReflect: true,
			wantAttrs:   []string{"outer", "json"},
			wantScope:   []string{"outer"},
		},
		{
			name:        "inherited reflect",
			inherited:   true,
			wantReflect: true,
			wantAttrs:   []string{"outer"},
			wantScope:   []string{"outer"},
		},
		{
			name:      "push is visible to the declaration",
			raws:      []string{"__push__cat=math", "own"},
			wantAttrs: []string{"outer", "cat=math", "own"},
			wantScope: []string{"outer", "cat=math"},
		},
		{
			name:      "pop removes inherited tag",
			raws:      []string{"__pop__"},
			wantScope: nil,
		},
		{
			name:      "noreflect wins regardless of order",
			raws:      []string{"__reflect__", "__push__x", "__noreflect__"},
			inherited: true,
			wantDrop:  true,
			wantScope: []string{"outer"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Evaluate(ParseAll(tt.raws), base, tt.inherited)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDrop, v.Drop)
			assert.Equal(t, tt.wantReflect, v.Reflect)
			assert.Equal(t, tt.wantScope, v.Scope.Tags())
			if !tt.wantDrop {
				assert.Equal(t, tt.wantAttrs, v.Attrs())
			}
		})
	}
}

func TestEvaluatePopUnderflow(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(ParseAll([]string{"__pop__"}), Scope{}, false)
	assert.True(t, errors.Is(err, ErrScopeUnderflow))
}

func TestPlainTags(t *testing.T) {
	t.Parallel()

	got := PlainTags([]string{"__reflect__", "a", "__push__x", "b", "__pop__"})
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Nil(t, PlainTags(nil))
}
