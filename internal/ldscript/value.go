package ldscript

// ParseValue evaluates a standalone value string such as a --def VAR=VALUE
// operand. The full expression grammar is accepted, so "4096K", "0x8000"
// and "512 * 1024" all work, but symbols are not in scope.
func ParseValue(s string) (int64, error) {
	toks, err := lexAll("", s)
	if err != nil {
		return 0, err
	}
	p := &parser{src: s, toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if !p.atEOF() {
		t := p.cur()
		return 0, newParseError(t.Pos, s, "trailing input after value: %s", t)
	}
	return NewEnv(nil, nil).Eval(expr)
}
