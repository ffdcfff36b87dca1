package syntax

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

// Node is any statement or expression produced by the parser. Nodes are
// pointers, so two Node values are equal only when they are the same node.
type Node interface {
	Position() Pos
	// Source returns the node's source text.
	Source() string
	node()
}

// Stmt is a statement. The set of implementations is closed; anything the
// stub dialect does not cover comes back as *Unsupported.
type Stmt interface {
	Node
	stmt()
}

// Expr is an expression. Constructs outside the modelled subset come back as
// *OtherExpr.
type Expr interface {
	Node
	expr()
}

type base struct {
	pos  Pos
	text string
}

func (b *base) Position() Pos  { return b.pos }
func (b *base) Source() string { return b.text }
func (b *base) node()          {}

// Module is a parsed file.
type Module struct {
	Path string
	Body []Stmt
}

// Statements

// FunctionDef is a def or async def, decorators included.
type FunctionDef struct {
	base
	Name       string
	Async      bool
	Decorators []Expr
}

// ClassDef is a class statement with its body.
type ClassDef struct {
	base
	Name       string
	Bases      []Expr
	Decorators []Expr
	Body       []Stmt
}

// Assign is "a = b = value". Targets holds every left-hand side in order.
type Assign struct {
	base
	Targets []Expr
	Value   Expr
}

// AnnAssign is "target: annotation [= value]".
type AnnAssign struct {
	base
	Target     Expr
	Annotation Expr
	Value      Expr // nil without a value
}

// AugAssign is "target op= value"; Op is the operator token, e.g. "+=".
type AugAssign struct {
	base
	Target Expr
	Op     string
	Value  Expr
}

// If is an if statement; elif chains are nested Ifs in Else.
type If struct {
	base
	Test Expr
	Body []Stmt
	Else []Stmt
}

// Try is a try statement. Handlers only counts except clauses.
type Try struct {
	base
	Body     []Stmt
	Handlers int
	OrElse   []Stmt
	Finally  []Stmt
}

// Assert is "assert test[, msg]".
type Assert struct {
	base
	Test Expr
	Msg  Expr
}

// Alias is one name in an import list. AsName is empty when there is no "as".
type Alias struct {
	Name   string
	AsName string
}

// Import is "import a.b [as c], ...".
type Import struct {
	base
	Names []Alias
}

// ImportFrom is "from [.]*module import names". A wildcard is the single
// alias "*". Module is empty for "from . import x".
type ImportFrom struct {
	base
	Module string
	Level  int
	Names  []Alias
}

// ExprStmt is a bare expression statement.
type ExprStmt struct {
	base
	Value Expr
}

// Pass is the pass statement.
type Pass struct {
	base
}

// Unsupported is any statement kind outside the stub dialect.
type Unsupported struct {
	base
	Kind string
}

func (*FunctionDef) stmt() {}
func (*ClassDef) stmt()    {}
func (*Assign) stmt()      {}
func (*AnnAssign) stmt()   {}
func (*AugAssign) stmt()   {}
func (*If) stmt()          {}
func (*Try) stmt()         {}
func (*Assert) stmt()      {}
func (*Import) stmt()      {}
func (*ImportFrom) stmt()  {}
func (*ExprStmt) stmt()    {}
func (*Pass) stmt()        {}
func (*Unsupported) stmt() {}

// Expressions

// ConstKind tags a Constant.
type ConstKind int

const (
	ConstNone ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstStr
	ConstBytes
	ConstEllipsis
)

// Constant is a literal.
type Constant struct {
	base
	Kind  ConstKind
	Bool  bool
	Int   int64
	Float float64
	Str   string // decoded value for ConstStr and ConstBytes
}

// Name is a bare identifier.
type Name struct {
	base
	ID string
}

// Attribute is "value.attr".
type Attribute struct {
	base
	Value Expr
	Attr  string
}

// Tuple is a tuple display, parenthesized or not.
type Tuple struct {
	base
	Elts []Expr
}

// List is a list display.
type List struct {
	base
	Elts []Expr
}

// Compare is "left op1 c1 op2 c2 ...". Ops are "==", "not in", "is not", ...
type Compare struct {
	base
	Left        Expr
	Ops         []string
	Comparators []Expr
}

// BoolOp is a chain of "and" or "or" with the same operator.
type BoolOp struct {
	base
	Op     string
	Values []Expr
}

// Subscript is "value[index]"; multiple indices form a Tuple.
type Subscript struct {
	base
	Value Expr
	Index Expr
}

// Slice is "lower:upper:step"; absent parts are nil.
type Slice struct {
	base
	Lower Expr
	Upper Expr
	Step  Expr
}

// Call is "func(args)". Keywords only counts keyword arguments.
type Call struct {
	base
	Func     Expr
	Args     []Expr
	Keywords int
}

// Starred is "*value".
type Starred struct {
	base
	Value Expr
}

// OtherExpr is any expression outside the modelled subset.
type OtherExpr struct {
	base
	Kind string
}

func (*Constant) expr()  {}
func (*Name) expr()      {}
func (*Attribute) expr() {}
func (*Tuple) expr()     {}
func (*List) expr()      {}
func (*Compare) expr()   {}
func (*BoolOp) expr()    {}
func (*Subscript) expr() {}
func (*Slice) expr()     {}
func (*Call) expr()      {}
func (*Starred) expr()   {}
func (*OtherExpr) expr() {}

// NewList builds a synthetic list display around elts, positioned at at.
func NewList(at Node, elts ...Expr) *List {
	l := &List{Elts: elts}
	if at != nil {
		l.pos = at.Position()
		l.text = "[" + at.Source() + "]"
	}
	return l
}

// Brief returns a node's source text shortened for error messages.
func Brief(n Node) string {
	const limit = 120
	if n == nil {
		return "<nil>"
	}
	text := n.Source()
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
