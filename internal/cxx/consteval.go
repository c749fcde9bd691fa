package cxx

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/cppmeta/internal/lang"
)

var errNotConstant = errors.Base("not a constant expression")

// evaluator folds integer constant expressions. lookup resolves
// identifiers; it returns false for unknown names. defined answers
// "defined(X)" in preprocessor conditions.
type evaluator struct {
	src     []byte
	lookup  func(name string) (int64, bool)
	defined func(name string) bool
}

func (e *evaluator) eval(n *sitter.Node) (int64, error) {
	if n == nil {
		return 0, errNotConstant
	}
	switch n.Type() {
	case "preproc_defined":
		if e.defined == nil {
			return 0, errNotConstant
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "identifier" {
				return boolInt(e.defined(lang.NodeText(c, e.src))), nil
			}
		}
		return 0, errNotConstant
	case "number_literal":
		return parseInteger(lang.NodeText(n, e.src))
	case "char_literal":
		return parseChar(lang.NodeText(n, e.src))
	case "true":
		return 1, nil
	case "false", "nullptr":
		return 0, nil
	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return 0, errNotConstant
		}
		return e.eval(n.NamedChild(0))
	case "identifier", "qualified_identifier":
		name := strings.Join(strings.Fields(lang.NodeText(n, e.src)), "")
		if v, ok := e.lookup(strings.TrimPrefix(name, "::")); ok {
			return v, nil
		}
		return 0, errors.WithDetails(errNotConstant, "name", name)
	case "unary_expression":
		arg := n.ChildByFieldName("argument")
		op := n.ChildByFieldName("operator")
		if arg == nil || op == nil {
			return 0, errNotConstant
		}
		v, err := e.eval(arg)
		if err != nil {
			return 0, err
		}
		switch op.Type() {
		case "-":
			return -v, nil
		case "+":
			return v, nil
		case "~":
			return ^v, nil
		case "!":
			return boolInt(v == 0), nil
		}
	case "binary_expression":
		return e.binary(n)
	case "conditional_expression":
		cond, err := e.eval(n.ChildByFieldName("condition"))
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return e.eval(n.ChildByFieldName("consequence"))
		}
		return e.eval(n.ChildByFieldName("alternative"))
	case "cast_expression":
		if v := n.ChildByFieldName("value"); v != nil {
			return e.eval(v)
		}
	}
	return 0, errors.WithDetails(errNotConstant, "expression", lang.NodeText(n, e.src))
}

func (e *evaluator) binary(n *sitter.Node) (int64, error) {
	left, right, op := n.ChildByFieldName("left"), n.ChildByFieldName("right"), n.ChildByFieldName("operator")
	if left == nil || right == nil || op == nil {
		return 0, errNotConstant
	}
	a, err := e.eval(left)
	if err != nil {
		return 0, err
	}
	// Short-circuit so "defined(X) && X > 2" works for undefined X.
	switch op.Type() {
	case "&&":
		if a == 0 {
			return 0, nil
		}
	case "||":
		if a != 0 {
			return 1, nil
		}
	}
	b, err := e.eval(right)
	if err != nil {
		return 0, err
	}
	switch op.Type() {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, errors.WithDetails(errNotConstant, "reason", "division by zero")
		}
		if op.Type() == "/" {
			return a / b, nil
		}
		return a % b, nil
	case "<<":
		return a << uint64(b), nil
	case ">>":
		return a >> uint64(b), nil
	case "&":
		return a & b, nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&&", "||":
		return boolInt(b != 0), nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case ">":
		return boolInt(a > b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">=":
		return boolInt(a >= b), nil
	}
	return 0, errors.WithDetails(errNotConstant, "operator", op.Type())
}

// parseInteger parses a C++ integer literal with an optional sign, suffix
// and digit separators. The grammar folds a leading minus into the literal.
func parseInteger(lit string) (int64, error) {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lit), "'", ""))
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "+"):
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimRight(s, "ulz")
	if s == "" {
		return 0, errors.WithDetails(errNotConstant, "literal", lit)
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b"):
		base, s = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, errors.WithDetails(errNotConstant, "literal", lit)
	}
	if neg {
		return -int64(u), nil
	}
	return int64(u), nil
}

func parseChar(lit string) (int64, error) {
	i := strings.IndexByte(lit, '\'')
	if i < 0 || len(lit) < i+3 {
		return 0, errors.WithDetails(errNotConstant, "literal", lit)
	}
	body := lit[i+1 : len(lit)-1]
	v, _, _, err := strconv.UnquoteChar(body, '\'')
	if err != nil {
		return 0, errors.WithDetails(errNotConstant, "literal", lit)
	}
	return int64(v), nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
