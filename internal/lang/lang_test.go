package lang

import (
	"context"
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".h", "cpp"},
		{".hpp", "cpp"},
		{".HPP", "cpp"},
		{".cc", "cpp"},
		{".py", ""},
		{".go", ""},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	cpp := CPP()
	if cpp == nil {
		t.Fatal("cpp language not registered")
	}
	if cpp.GetLanguage() == nil {
		t.Error("cpp language is nil")
	}
	if len(cpp.Headers) == 0 {
		t.Error("cpp has no header extensions")
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	p := CPP().NewParser()
	if p == nil {
		t.Fatal("NewParser returned nil")
	}
	src := []byte("struct A { int x; };")
	tree, err := p.ParseCtx(context.Background(), nil, src)
	if err != nil {
		t.Fatalf("ParseCtx: %v", err)
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		t.Error("unexpected syntax error")
	}
}

func TestGetQuery(t *testing.T) {
	t.Parallel()

	q, err := CPP().GetQuery()
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if q == nil {
		t.Fatal("query is nil")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	if got := CollapseWhitespace("  {1,\n\t 2 }  "); got != "{1, 2 }" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}
