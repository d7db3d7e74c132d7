package extract

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// evalCondition evaluates a #if / #elif controlling expression. Unknown
// identifiers evaluate to 0, as in the C preprocessor.
func (w *walker) evalCondition(n *sitter.Node) int64 {
	if n == nil {
		return 0
	}
	switch n.Type() {
	case "number_literal":
		v, _ := parseInt(w.text(n))
		return v
	case "char_literal":
		s := strings.Trim(w.text(n), "'")
		if s == "" {
			return 0
		}
		return int64(s[0])
	case "true":
		return 1
	case "false":
		return 0
	case "identifier":
		return w.macroInt(w.text(n), 0)
	case "preproc_defined":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "identifier" {
				return boolInt(w.macros.Defined(w.text(c)))
			}
		}
		return 0
	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return 0
		}
		return w.evalCondition(n.NamedChild(0))
	case "unary_expression":
		arg := w.evalCondition(n.ChildByFieldName("argument"))
		switch opText(n) {
		case "!":
			return boolInt(arg == 0)
		case "-":
			return -arg
		case "+":
			return arg
		case "~":
			return ^arg
		}
		return 0
	case "binary_expression":
		return w.evalBinary(n)
	case "conditional_expression":
		if w.evalCondition(n.ChildByFieldName("condition")) != 0 {
			return w.evalCondition(n.ChildByFieldName("consequence"))
		}
		return w.evalCondition(n.ChildByFieldName("alternative"))
	}
	// Function-like macro invocations and anything else we cannot fold.
	return 0
}

func (w *walker) evalBinary(n *sitter.Node) int64 {
	op := opText(n)
	left := w.evalCondition(n.ChildByFieldName("left"))
	switch op {
	case "&&":
		if left == 0 {
			return 0
		}
		return boolInt(w.evalCondition(n.ChildByFieldName("right")) != 0)
	case "||":
		if left != 0 {
			return 1
		}
		return boolInt(w.evalCondition(n.ChildByFieldName("right")) != 0)
	}
	right := w.evalCondition(n.ChildByFieldName("right"))
	switch op {
	case "==":
		return boolInt(left == right)
	case "!=":
		return boolInt(left != right)
	case "<":
		return boolInt(left < right)
	case "<=":
		return boolInt(left <= right)
	case ">":
		return boolInt(left > right)
	case ">=":
		return boolInt(left >= right)
	case "+":
		return left + right
	case "-":
		return left - right
	case "*":
		return left * right
	case "/":
		if right == 0 {
			return 0
		}
		return left / right
	case "%":
		if right == 0 {
			return 0
		}
		return left % right
	case "&":
		return left & right
	case "|":
		return left | right
	case "^":
		return left ^ right
	case "<<":
		return left << uint64(right&63)
	case ">>":
		return left >> uint64(right&63)
	}
	return 0
}

// macroInt folds the value of a defined object-like macro to an integer.
// Chains of macros are followed up to a fixed depth.
func (w *walker) macroInt(name string, depth int) int64 {
	if depth > 16 {
		return 0
	}
	val, ok := w.macros.Value(name)
	if !ok {
		return 0
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if v, ok := parseInt(val); ok {
		return v
	}
	if isIdentifier(val) {
		return w.macroInt(val, depth+1)
	}
	return 0
}

func opText(n *sitter.Node) string {
	op := n.ChildByFieldName("operator")
	if op == nil {
		return ""
	}
	return op.Type()
}

// parseInt parses a C integer literal, ignoring u/l suffixes and digit
// separators.
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "uUlL")
	s = strings.ReplaceAll(s, "'", "")
	if s == "" {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		s = "0o" + s[1:]
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(s, 0, 64)
		if uerr != nil {
			return 0, false
		}
		return int64(u), true
	}
	return v, true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
