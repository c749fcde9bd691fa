package cxx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrescanAttributes(t *testing.T) {
	t.Parallel()

	src := `struct __attribute__((annotate("__reflect__"), annotate("x"))) A {
  [[clang::annotate("range")]] int a;
  [[noreturn]] void stop();
};`
	out, found := prescan([]byte(src), nil)

	require.Len(t, found, 3)
	assert.Equal(t, []string{"__reflect__", "x"}, found[0].values)
	assert.Equal(t, []string{"range"}, found[1].values)
	assert.True(t, found[2].noreturn)
	assert.Empty(t, found[2].values)

	assert.Len(t, out, len(src))
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(string(out), "\n"))
	assert.NotContains(t, string(out), "annotate")
	assert.NotContains(t, string(out), "[[")
	assert.Contains(t, string(out), "int a;")
	assert.Equal(t, strings.Index(src, "A {"), strings.Index(string(out), "A {"), "offsets are preserved")
}

func TestPrescanMacros(t *testing.T) {
	t.Parallel()

	macros := map[string]macro{
		"REFLECT": {values: []string{"__reflect__"}},
		"NORET":   {noreturn: true},
	}
	src := `#define REFLECT __attribute__((annotate("__reflect__")))
// REFLECT in a comment
const char* s = "REFLECT";
struct REFLECT A {};
NORET void die();
int REFLECTED = 1;`
	out, found := prescan([]byte(src), macros)

	require.Len(t, found, 2)
	assert.Equal(t, []string{"__reflect__"}, found[0].values)
	assert.Equal(t, uint32(strings.Index(src, "REFLECT A")), found[0].pos)
	assert.True(t, found[1].noreturn)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "#define REFLECT __attribute__"), "directives are untouched")
	assert.Contains(t, text, "// REFLECT in a comment")
	assert.Contains(t, text, `"REFLECT"`)
	assert.Contains(t, text, "int REFLECTED = 1;")
	assert.Contains(t, text, "struct"+strings.Repeat(" ", 9)+"A {};")
}

func TestPrescanSkipsLiterals(t *testing.T) {
	t.Parallel()

	src := "int n = 1'000; const char* r = R\"x(__attribute__((annotate(\"no\"))))x\"; char c = '[';"
	out, found := prescan([]byte(src), nil)
	assert.Empty(t, found)
	assert.Equal(t, src, string(out))
}

func TestMacroFromBody(t *testing.T) {
	t.Parallel()

	m, ok := macroFromBody(`__attribute__((annotate("__push__tag")))`)
	require.True(t, ok)
	assert.Equal(t, []string{"__push__tag"}, m.values)

	m, ok = macroFromBody(`[[noreturn]]`)
	require.True(t, ok)
	assert.True(t, m.noreturn)

	_, ok = macroFromBody(`42`)
	assert.False(t, ok)
}

func TestNotesClaim(t *testing.T) {
	t.Parallel()

	ns := notes{
		{pos: 5, values: []string{"a"}},
		{pos: 10, values: []string{"b"}, noreturn: true},
		{pos: 20, values: []string{"c"}},
	}

	values, noreturn := ns.claim(8, 21)
	assert.Equal(t, []string{"b", "c"}, values)
	assert.True(t, noreturn)

	values, _ = ns.claim(0, 30)
	assert.Equal(t, []string{"a"}, values, "claimed notes are not handed out twice")
}
