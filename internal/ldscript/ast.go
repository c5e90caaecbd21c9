package ldscript

// Expression nodes are tagged variants dispatched by type switch.

// Expr is a linker-script expression node.
type Expr interface {
	exprNode()
	pos() Pos
}

// NumExpr is a numeric literal with any K/M/G suffix already applied.
type NumExpr struct {
	Value int64
	Pos_  Pos
}

// SymExpr references a symbol by name.
type SymExpr struct {
	Name string
	Pos_ Pos
}

// CallExpr is a builtin function call such as ALIGN(8) or DEFINED(sym).
type CallExpr struct {
	Fn   string
	Args []Expr
	Pos_ Pos
}

// UnaryExpr is a prefix operator application.
type UnaryExpr struct {
	Op   string
	X    Expr
	Pos_ Pos
}

// BinExpr is a binary operator application.
type BinExpr struct {
	Op   string
	L, R Expr
	Pos_ Pos
}

// CondExpr is the ternary conditional.
type CondExpr struct {
	Cond, Then, Else Expr
	Pos_             Pos
}

func (*NumExpr) exprNode()   {}
func (*SymExpr) exprNode()   {}
func (*CallExpr) exprNode()  {}
func (*UnaryExpr) exprNode() {}
func (*BinExpr) exprNode()   {}
func (*CondExpr) exprNode()  {}

func (e *NumExpr) pos() Pos   { return e.Pos_ }
func (e *SymExpr) pos() Pos   { return e.Pos_ }
func (e *CallExpr) pos() Pos  { return e.Pos_ }
func (e *UnaryExpr) pos() Pos { return e.Pos_ }
func (e *BinExpr) pos() Pos   { return e.Pos_ }
func (e *CondExpr) pos() Pos  { return e.Pos_ }

// Statement nodes.

// Stmt is a linker-script statement.
type Stmt interface {
	stmtNode()
}

// AssignStmt is `ident = expr;` and its `op=` and PROVIDE forms.
type AssignStmt struct {
	Name    string
	Op      string // "=", "+=", "-=", "*=", "/=", "&=", "|=", "<<=", ">>="
	Value   Expr
	Provide bool // PROVIDE or PROVIDE_HIDDEN: only bind when not yet defined
	Pos     Pos
}

// MemoryEntry is one region declaration inside a MEMORY block.
type MemoryEntry struct {
	Name   string
	Attrs  string // raw attribute string, "" when absent (ESP-IDF style)
	Origin Expr
	Length Expr
	Pos    Pos
}

// MemoryStmt is a MEMORY { ... } block.
type MemoryStmt struct {
	Entries []MemoryEntry
	Pos     Pos
}

// OutputSection is one output section inside SECTIONS. Input patterns in
// the body are consumed; only data relevant to expression support is kept.
type OutputSection struct {
	Name       string
	Addr       Expr // optional address expression, nil when absent
	LoadAddr   Expr // AT(expr), nil when absent
	Region     string
	LoadRegion string // AT> region
	Body       []Stmt // assignments found inside the body
	Pos        Pos
}

// SectionsStmt is a SECTIONS { ... } block. Items are *OutputSection and
// *AssignStmt in source order.
type SectionsStmt struct {
	Items []Stmt
	Pos   Pos
}

func (*AssignStmt) stmtNode()    {}
func (*MemoryStmt) stmtNode()    {}
func (*SectionsStmt) stmtNode()  {}
func (*OutputSection) stmtNode() {}

// Script is one parsed linker script.
type Script struct {
	File  string
	Stmts []Stmt
}
