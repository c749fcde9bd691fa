package toon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phobologic/cppmeta/internal/meta"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "include/ui/widget.h", "include/ui/widget.h"},
		{"qualified name", "ui::Widget", `"ui::Widget"`},
		{"signature no special", "void(int)", "void(int)"},
		{"template", "Box<int>", "Box<int>"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	data := meta.NewDataMap()
	widget := data.File("ui/widget.h")
	require.NoError(t, widget.AddRecord(meta.Record{
		Name:    "ui::Widget",
		Line:    4,
		Fields:  []meta.Field{{Name: "x"}, {Name: "y"}},
		Statics: []meta.Field{{Name: "count"}},
		Methods: []meta.Function{{Name: "ui::Widget::draw"}},
		Attrs:   []string{"gui", "input"},
	}))
	require.NoError(t, widget.AddEnum(meta.Enum{
		Name:           "ui::Align",
		Line:           12,
		UnderlyingType: "unsigned int",
		Values:         []meta.EnumValue{{Name: "ui::Left"}, {Name: "ui::Right"}},
	}))
	data.File("math.h").AddFunction(meta.Function{
		Name:       "lerp",
		Line:       3,
		RetType:    "float",
		Parameters: []meta.Field{{Type: "float"}, {Type: "float"}},
	})
	data.File("empty.h")

	got := Encode("game", data)

	want := []string{
		"project: game",
		"files[2]{path,records,enums,functions}:",
		"  math.h,0,0,1",
		"  ui/widget.h,1,1,0",
		"records[1]{file,name,line,fields,methods,attrs}:",
		`  ui/widget.h,"ui::Widget",4,3,1,gui input`,
		"enums[1]{file,name,line,type,values}:",
		`  ui/widget.h,"ui::Align",12,unsigned int,2`,
		"functions[1]{file,name,line,signature}:",
		`  math.h,lerp,3,"float(float, float)"`,
	}
	lines := strings.Split(got, "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode("empty", meta.NewDataMap())
	if !strings.Contains(got, "files[0]{path,records,enums,functions}:") {
		t.Errorf("expected empty files section, got:\n%s", got)
	}
	if !strings.Contains(got, "functions[0]{file,name,line,signature}:") {
		t.Errorf("expected empty functions section, got:\n%s", got)
	}
}

func TestSignature(t *testing.T) {
	t.Parallel()

	fn := &meta.Function{RetType: "void"}
	if got := signature(fn); got != "void()" {
		t.Errorf("signature = %q, want %q", got, "void()")
	}
}
