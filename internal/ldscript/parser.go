package ldscript

import (
	"fmt"
	"strings"
)

// Directives that are recognized but not acted on. Their argument list (if
// any) is consumed up to the closing paren or terminating semicolon.
var skippedDirectives = map[string]bool{
	"ENTRY":         true,
	"OUTPUT_ARCH":   true,
	"OUTPUT_FORMAT": true,
	"OUTPUT":        true,
	"INCLUDE":       true,
	"GROUP":         true,
	"SEARCH_DIR":    true,
	"STARTUP":       true,
	"INPUT":         true,
	"ASSERT":        true,
	"EXTERN":        true,
	"TARGET":        true,
	"NOCROSSREFS":   true,
	"REGION_ALIAS":  true,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true,
	"&=": true, "|=": true, "<<=": true, ">>=": true,
}

type parser struct {
	src      string
	toks     []Token
	i        int
	warnings []Warning
}

// Parse parses a single linker script. Warnings (unknown directives and the
// like) are collected rather than failing the parse.
func Parse(file, src string) (*Script, []Warning, error) {
	toks, err := lexAll(file, src)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{src: src, toks: toks}
	script := &Script{File: file}
	for !p.atEOF() {
		stmt, err := p.parseTopLevel()
		if err != nil {
			return nil, p.warnings, err
		}
		if stmt != nil {
			script.Stmts = append(script.Stmts, stmt)
		}
	}
	return script, p.warnings, nil
}

func (p *parser) cur() Token      { return p.toks[p.i] }
func (p *parser) atEOF() bool     { return p.cur().Kind == TokenEOF }
func (p *parser) peekNext() Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() Token {
	t := p.cur()
	if !p.atEOF() {
		p.i++
	}
	return t
}

func (p *parser) expect(text string) (Token, error) {
	t := p.cur()
	if !t.Is(text) {
		return t, newParseError(t.Pos, p.src, "expected %q, found %s", text, t)
	}
	return p.advance(), nil
}

func (p *parser) warnf(pos Pos, format string, args ...interface{}) {
	p.warnings = append(p.warnings, Warning{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// parseTopLevel handles one statement in the TopLevel state.
func (p *parser) parseTopLevel() (Stmt, error) {
	t := p.cur()
	if t.Is(";") {
		p.advance()
		return nil, nil
	}
	if t.Kind != TokenIdent {
		return nil, newParseError(t.Pos, p.src, "expected directive or assignment, found %s", t)
	}

	switch {
	case t.Text == "MEMORY":
		return p.parseMemory()
	case t.Text == "SECTIONS":
		return p.parseSections()
	case t.Text == "PHDRS" || t.Text == "VERSION":
		p.advance()
		if err := p.skipBalancedBlock(); err != nil {
			return nil, err
		}
		return nil, nil
	case t.Text == "PROVIDE" || t.Text == "PROVIDE_HIDDEN" || t.Text == "HIDDEN":
		return p.parseProvide()
	case skippedDirectives[t.Text]:
		p.advance()
		return nil, p.skipDirectiveArgs()
	case assignOps[p.peekNext().Text]:
		return p.parseAssign()
	default:
		// Unknown directive: warn and resynchronize.
		p.warnf(t.Pos, "unknown directive %q skipped", t.Text)
		p.advance()
		p.skipToRecovery()
		return nil, nil
	}
}

// parseAssign parses `ident op= expr ;`.
func (p *parser) parseAssign() (Stmt, error) {
	name := p.advance()
	op := p.advance()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return &AssignStmt{Name: name.Text, Op: op.Text, Value: expr, Pos: name.Pos}, nil
}

// parseProvide parses PROVIDE(ident = expr); and friends.
func (p *parser) parseProvide() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	name := p.cur()
	if name.Kind != TokenIdent {
		return nil, newParseError(name.Pos, p.src, "expected symbol name in %s, found %s", kw.Text, name)
	}
	p.advance()
	if _, err := p.expect("="); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if p.cur().Is(";") {
		p.advance()
	}
	provide := kw.Text == "PROVIDE" || kw.Text == "PROVIDE_HIDDEN"
	return &AssignStmt{Name: name.Text, Op: "=", Value: expr, Provide: provide, Pos: kw.Pos}, nil
}

// parseMemory handles the InMemory state: MEMORY { entries }.
func (p *parser) parseMemory() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	stmt := &MemoryStmt{Pos: kw.Pos}
	for {
		t := p.cur()
		if t.Is("}") {
			p.advance()
			return stmt, nil
		}
		if t.Kind == TokenEOF {
			return nil, newParseError(kw.Pos, p.src, "unterminated MEMORY block")
		}
		if t.Is(";") || t.Is(",") {
			p.advance()
			continue
		}
		entry, err := p.parseMemoryEntry()
		if err != nil {
			return nil, err
		}
		stmt.Entries = append(stmt.Entries, entry)
	}
}

// parseMemoryEntry parses one region declaration:
//
//	name [(attrs)] : ORIGIN = expr , LENGTH = expr
//
// with org/o and len/l accepted for the keywords (ESP-IDF, ESP8266 SDKs).
func (p *parser) parseMemoryEntry() (MemoryEntry, error) {
	name := p.cur()
	if name.Kind != TokenIdent {
		return MemoryEntry{}, newParseError(name.Pos, p.src, "expected memory region name, found %s", name)
	}
	p.advance()
	entry := MemoryEntry{Name: name.Text, Pos: name.Pos}

	if p.cur().Is("(") {
		p.advance()
		var attrs strings.Builder
		for !p.cur().Is(")") {
			if p.atEOF() {
				return entry, newParseError(name.Pos, p.src, "unterminated attribute list for region %q", name.Text)
			}
			attrs.WriteString(p.advance().Text)
		}
		p.advance()
		entry.Attrs = attrs.String()
	}

	if _, err := p.expect(":"); err != nil {
		return entry, err
	}

	if err := p.expectOriginKeyword(); err != nil {
		return entry, err
	}
	if _, err := p.expect("="); err != nil {
		return entry, err
	}
	origin, err := p.parseExpr()
	if err != nil {
		return entry, err
	}
	entry.Origin = origin

	if _, err := p.expect(","); err != nil {
		return entry, err
	}
	if err := p.expectLengthKeyword(); err != nil {
		return entry, err
	}
	if _, err := p.expect("="); err != nil {
		return entry, err
	}
	length, err := p.parseExpr()
	if err != nil {
		return entry, err
	}
	entry.Length = length
	return entry, nil
}

func (p *parser) expectOriginKeyword() error {
	t := p.cur()
	switch strings.ToUpper(t.Text) {
	case "ORIGIN", "ORG", "O":
		p.advance()
		return nil
	}
	return newParseError(t.Pos, p.src, "expected ORIGIN, found %s", t)
}

func (p *parser) expectLengthKeyword() error {
	t := p.cur()
	switch strings.ToUpper(t.Text) {
	case "LENGTH", "LEN", "L":
		p.advance()
		return nil
	}
	return newParseError(t.Pos, p.src, "expected LENGTH, found %s", t)
}

// parseSections handles the InSections state.
func (p *parser) parseSections() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	stmt := &SectionsStmt{Pos: kw.Pos}
	for {
		t := p.cur()
		switch {
		case t.Is("}"):
			p.advance()
			return stmt, nil
		case t.Kind == TokenEOF:
			return nil, newParseError(kw.Pos, p.src, "unterminated SECTIONS block")
		case t.Is(";"):
			p.advance()
		case t.Text == "PROVIDE" || t.Text == "PROVIDE_HIDDEN" || t.Text == "HIDDEN":
			s, err := p.parseProvide()
			if err != nil {
				return nil, err
			}
			stmt.Items = append(stmt.Items, s)
		case t.Kind == TokenIdent && assignOps[p.peekNext().Text]:
			s, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			stmt.Items = append(stmt.Items, s)
		case t.Is("/"):
			if err := p.parseDiscardSection(); err != nil {
				return nil, err
			}
		default:
			s, err := p.parseOutputSection()
			if err != nil {
				return nil, err
			}
			stmt.Items = append(stmt.Items, s)
		}
	}
}

// parseDiscardSection consumes a /DISCARD/ output section, whose contents
// never reach the image.
func (p *parser) parseDiscardSection() error {
	start := p.cur()
	for !p.atEOF() && !p.cur().Is("{") {
		if p.cur().Is("}") {
			return newParseError(start.Pos, p.src, "malformed /DISCARD/ section")
		}
		p.advance()
	}
	if p.atEOF() {
		return newParseError(start.Pos, p.src, "unterminated /DISCARD/ section")
	}
	return p.skipBalancedBlock()
}

// parseOutputSection handles the InOutputSection state:
//
//	name [addr_expr] : [AT(expr)] [ALIGN(...)] { body } [> region] [AT> region]
//
// The body's input patterns are consumed; assignments inside it are kept for
// pass-2 expression support. `> FLASH` is only valid here, never at TopLevel.
func (p *parser) parseOutputSection() (Stmt, error) {
	name := p.cur()
	if name.Kind != TokenIdent {
		return nil, newParseError(name.Pos, p.src, "expected output section name, found %s", name)
	}
	p.advance()
	out := &OutputSection{Name: name.Text, Pos: name.Pos}

	// Optional address expression before the colon.
	if !p.cur().Is(":") {
		addr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out.Addr = addr
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}

	// Optional type/attribute keywords before the body.
	for {
		t := p.cur()
		switch {
		case t.Text == "AT" && p.peekNext().Is("("):
			p.advance()
			p.advance()
			la, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			out.LoadAddr = la
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			continue
		case (t.Text == "ALIGN" || t.Text == "SUBALIGN" || t.Text == "ALIGN_WITH_INPUT") && p.peekNext().Is("("):
			p.advance()
			if err := p.skipParens(); err != nil {
				return nil, err
			}
			continue
		case t.Text == "ALIGN_WITH_INPUT" || t.Text == "ONLY_IF_RO" || t.Text == "ONLY_IF_RW":
			p.advance()
			continue
		}
		break
	}

	if err := p.parseSectionBody(out); err != nil {
		return nil, err
	}

	// Trailing placement: > region, AT> region, :phdr, =fill.
	for {
		t := p.cur()
		switch {
		case t.Is(">"):
			p.advance()
			r := p.cur()
			if r.Kind != TokenIdent {
				return nil, newParseError(r.Pos, p.src, "expected region name after \">\", found %s", r)
			}
			out.Region = r.Text
			p.advance()
		case t.Text == "AT" && p.peekNext().Is(">"):
			p.advance()
			p.advance()
			r := p.cur()
			if r.Kind != TokenIdent {
				return nil, newParseError(r.Pos, p.src, "expected region name after \"AT>\", found %s", r)
			}
			out.LoadRegion = r.Text
			p.advance()
		case t.Is(":"):
			p.advance()
			if p.cur().Kind == TokenIdent {
				p.advance()
			}
		case t.Is("="):
			p.advance()
			if _, err := p.parseExpr(); err != nil {
				return nil, err
			}
		case t.Is(","):
			p.advance()
			return out, nil
		default:
			return out, nil
		}
	}
}

// parseSectionBody consumes an output section body, keeping assignments and
// discarding input patterns, KEEP(...), *(...) globs and the like.
func (p *parser) parseSectionBody(out *OutputSection) error {
	open, err := p.expect("{")
	if err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.cur()
		switch {
		case t.Kind == TokenEOF:
			return newParseError(open.Pos, p.src, "unterminated body of output section %q", out.Name)
		case t.Is("{"):
			depth++
			p.advance()
		case t.Is("}"):
			depth--
			p.advance()
		case depth == 1 && t.Kind == TokenIdent &&
			(t.Text == "PROVIDE" || t.Text == "PROVIDE_HIDDEN" || t.Text == "HIDDEN") &&
			p.peekNext().Is("("):
			s, err := p.parseProvide()
			if err != nil {
				return err
			}
			out.Body = append(out.Body, s)
		case depth == 1 && t.Kind == TokenIdent && assignOps[p.peekNext().Text]:
			s, err := p.parseAssign()
			if err != nil {
				// Input patterns can look like the start of an assignment
				// (e.g. EXCLUDE_FILE globs); on failure, resynchronize.
				p.skipToRecovery()
				continue
			}
			out.Body = append(out.Body, s)
		default:
			p.advance()
		}
	}
	return nil
}

// skipDirectiveArgs consumes the parenthesized arguments of a skipped
// directive, or the single bare operand of INCLUDE-style forms.
func (p *parser) skipDirectiveArgs() error {
	if p.cur().Is("(") {
		if err := p.skipParens(); err != nil {
			return err
		}
	} else if t := p.cur(); t.Kind == TokenIdent || t.Kind == TokenString || t.Kind == TokenNumber {
		p.advance()
	}
	if p.cur().Is(";") {
		p.advance()
	}
	return nil
}

func (p *parser) skipParens() error {
	open, err := p.expect("(")
	if err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.advance()
		switch {
		case t.Kind == TokenEOF:
			return newParseError(open.Pos, p.src, "unterminated parenthesized list")
		case t.Is("("):
			depth++
		case t.Is(")"):
			depth--
		}
	}
	return nil
}

func (p *parser) skipBalancedBlock() error {
	open, err := p.expect("{")
	if err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.advance()
		switch {
		case t.Kind == TokenEOF:
			return newParseError(open.Pos, p.src, "unterminated block")
		case t.Is("{"):
			depth++
		case t.Is("}"):
			depth--
		}
	}
	return nil
}

// skipToRecovery advances to the next semicolon or matching brace after an
// unknown directive.
func (p *parser) skipToRecovery() {
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		switch {
		case t.Is(";") && depth == 0:
			p.advance()
			return
		case t.Is("{"):
			depth++
		case t.Is("}"):
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}
