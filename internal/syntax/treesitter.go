package syntax

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var language = sitter.NewLanguage(python.Language())

// SyntaxError reports a file the Python grammar cannot parse.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
	Near   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: invalid syntax near %q", e.Path, e.Line, e.Column, e.Near)
}

// Parse parses source into a Module. path is only used in errors.
func Parse(path string, source []byte) (*Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to load python grammar: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse python file: %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(path, root, source)
	}

	c := &converter{src: source}
	return &Module{Path: path, Body: c.statements(root)}, nil
}

// ParseExpr parses a single expression.
func ParseExpr(src string) (Expr, error) {
	mod, err := Parse("<expr>", []byte(src+"\n"))
	if err != nil {
		return nil, err
	}
	if len(mod.Body) != 1 {
		return nil, errors.New("expected exactly one expression")
	}
	stmt, ok := mod.Body[0].(*ExprStmt)
	if !ok {
		return nil, fmt.Errorf("expected an expression, got %T", mod.Body[0])
	}
	return stmt.Value, nil
}

func syntaxError(path string, root *sitter.Node, source []byte) error {
	bad := firstError(root)
	if bad == nil {
		bad = root
	}
	pos := bad.StartPosition()
	near := string(source[bad.StartByte():bad.EndByte()])
	if i := strings.IndexByte(near, '\n'); i >= 0 {
		near = near[:i]
	}
	return &SyntaxError{Path: path, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Near: near}
}

// firstError finds the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstError(child); found != nil {
			return found
		}
	}
	return nil
}

// converter turns tree-sitter nodes into the closed Stmt/Expr union. The
// tree is closed after conversion, so nothing here may keep *sitter.Node.
type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(c.src[n.StartByte():n.EndByte()])
}

func (c *converter) base(n *sitter.Node) base {
	p := n.StartPosition()
	return base{pos: Pos{Line: int(p.Row) + 1, Column: int(p.Column) + 1}, text: c.text(n)}
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	if n == nil {
		return out
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.IsExtra() || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// findChildByType finds the first child node with the given type.
func findChildByType(n *sitter.Node, nodeType string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// suite returns the block stored in field, falling back to the first block child.
func suite(n *sitter.Node, field string) *sitter.Node {
	if b := n.ChildByFieldName(field); b != nil {
		return b
	}
	return findChildByType(n, "block")
}

func (c *converter) statements(n *sitter.Node) []Stmt {
	var out []Stmt
	for _, child := range namedChildren(n) {
		out = append(out, c.stmt(child))
	}
	return out
}

func (c *converter) stmt(n *sitter.Node) Stmt {
	switch n.Kind() {
	case "function_definition":
		return c.functionDef(n, n, nil)
	case "class_definition":
		return c.classDef(n, n, nil)
	case "decorated_definition":
		return c.decorated(n)
	case "expression_statement":
		return c.expressionStatement(n)
	case "if_statement":
		return c.ifStmt(n)
	case "try_statement":
		return c.tryStmt(n)
	case "assert_statement":
		kids := namedChildren(n)
		a := &Assert{base: c.base(n)}
		if len(kids) > 0 {
			a.Test = c.expr(kids[0])
		}
		if len(kids) > 1 {
			a.Msg = c.expr(kids[1])
		}
		return a
	case "import_statement":
		return &Import{base: c.base(n), Names: c.aliases(namedChildren(n))}
	case "import_from_statement":
		return c.importFrom(n)
	case "future_import_statement":
		return &ImportFrom{base: c.base(n), Module: "__future__", Names: c.aliases(namedChildren(n))}
	case "pass_statement":
		return &Pass{base: c.base(n)}
	default:
		return &Unsupported{base: c.base(n), Kind: n.Kind()}
	}
}

// functionDef converts def; at is the node whose text and position the
// statement carries (the decorated_definition when decorated).
func (c *converter) functionDef(at, n *sitter.Node, decorators []Expr) Stmt {
	fn := &FunctionDef{
		base:       c.base(at),
		Name:       c.text(n.ChildByFieldName("name")),
		Decorators: decorators,
	}
	if first := n.Child(0); first != nil && first.Kind() == "async" {
		fn.Async = true
	}
	return fn
}

func (c *converter) classDef(at, n *sitter.Node, decorators []Expr) Stmt {
	cls := &ClassDef{
		base:       c.base(at),
		Name:       c.text(n.ChildByFieldName("name")),
		Decorators: decorators,
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range namedChildren(supers) {
			if arg.Kind() == "keyword_argument" {
				continue
			}
			cls.Bases = append(cls.Bases, c.expr(arg))
		}
	}
	cls.Body = c.statements(suite(n, "body"))
	return cls
}

func (c *converter) decorated(n *sitter.Node) Stmt {
	var decorators []Expr
	for _, child := range namedChildren(n) {
		if child.Kind() != "decorator" {
			continue
		}
		if kids := namedChildren(child); len(kids) > 0 {
			decorators = append(decorators, c.expr(kids[0]))
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return &Unsupported{base: c.base(n), Kind: n.Kind()}
	}
	switch def.Kind() {
	case "function_definition":
		return c.functionDef(n, def, decorators)
	case "class_definition":
		return c.classDef(n, def, decorators)
	default:
		return &Unsupported{base: c.base(n), Kind: def.Kind()}
	}
}

func (c *converter) expressionStatement(n *sitter.Node) Stmt {
	kids := namedChildren(n)
	if len(kids) == 1 {
		switch kids[0].Kind() {
		case "assignment":
			return c.assignment(n, kids[0])
		case "augmented_assignment":
			aug := kids[0]
			op := ""
			if opNode := aug.ChildByFieldName("operator"); opNode != nil {
				op = opNode.Kind()
			}
			return &AugAssign{
				base:   c.base(n),
				Target: c.expr(aug.ChildByFieldName("left")),
				Op:     op,
				Value:  c.expr(aug.ChildByFieldName("right")),
			}
		}
		return &ExprStmt{base: c.base(n), Value: c.expr(kids[0])}
	}

	tuple := &Tuple{base: c.base(n)}
	for _, kid := range kids {
		tuple.Elts = append(tuple.Elts, c.expr(kid))
	}
	return &ExprStmt{base: c.base(n), Value: tuple}
}

func (c *converter) assignment(stmt, a *sitter.Node) Stmt {
	left := a.ChildByFieldName("left")
	right := a.ChildByFieldName("right")
	if typ := a.ChildByFieldName("type"); typ != nil {
		return &AnnAssign{
			base:       c.base(stmt),
			Target:     c.expr(left),
			Annotation: c.expr(typ),
			Value:      c.expr(right),
		}
	}

	targets := []Expr{c.expr(left)}
	// a = b = value nests assignments on the right
	for right != nil && right.Kind() == "assignment" && right.ChildByFieldName("type") == nil {
		targets = append(targets, c.expr(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}
	return &Assign{base: c.base(stmt), Targets: targets, Value: c.expr(right)}
}

func (c *converter) ifStmt(n *sitter.Node) Stmt {
	stmt := &If{
		base: c.base(n),
		Test: c.expr(n.ChildByFieldName("condition")),
		Body: c.statements(suite(n, "consequence")),
	}

	var alternatives []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && (child.Kind() == "elif_clause" || child.Kind() == "else_clause") {
			alternatives = append(alternatives, child)
		}
	}

	// Desugar elif chains into nested Ifs, innermost first
	var orelse []Stmt
	for i := len(alternatives) - 1; i >= 0; i-- {
		alt := alternatives[i]
		switch alt.Kind() {
		case "else_clause":
			orelse = c.statements(suite(alt, "body"))
		case "elif_clause":
			orelse = []Stmt{&If{
				base: c.base(alt),
				Test: c.expr(alt.ChildByFieldName("condition")),
				Body: c.statements(suite(alt, "consequence")),
				Else: orelse,
			}}
		}
	}
	stmt.Else = orelse
	return stmt
}

func (c *converter) tryStmt(n *sitter.Node) Stmt {
	stmt := &Try{base: c.base(n), Body: c.statements(suite(n, "body"))}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "except_clause", "except_group_clause":
			stmt.Handlers++
		case "else_clause":
			stmt.OrElse = c.statements(suite(child, "body"))
		case "finally_clause":
			stmt.Finally = c.statements(findChildByType(child, "block"))
		}
	}
	return stmt
}

func (c *converter) importFrom(n *sitter.Node) Stmt {
	stmt := &ImportFrom{base: c.base(n)}

	module := n.ChildByFieldName("module_name")
	if module != nil {
		if module.Kind() == "relative_import" {
			for _, part := range namedChildren(module) {
				switch part.Kind() {
				case "import_prefix":
					stmt.Level = strings.Count(c.text(part), ".")
				case "dotted_name":
					stmt.Module = c.dotted(part)
				}
			}
		} else {
			stmt.Module = c.dotted(module)
		}
	}

	var names []*sitter.Node
	for _, child := range namedChildren(n) {
		if module != nil && child.StartByte() == module.StartByte() && child.Kind() == module.Kind() {
			continue
		}
		if child.Kind() == "wildcard_import" {
			stmt.Names = append(stmt.Names, Alias{Name: "*"})
			continue
		}
		names = append(names, child)
	}
	stmt.Names = append(stmt.Names, c.aliases(names)...)
	return stmt
}

func (c *converter) aliases(nodes []*sitter.Node) []Alias {
	var out []Alias
	for _, n := range nodes {
		switch n.Kind() {
		case "dotted_name", "identifier":
			out = append(out, Alias{Name: c.dotted(n)})
		case "aliased_import":
			out = append(out, Alias{
				Name:   c.dotted(n.ChildByFieldName("name")),
				AsName: c.text(n.ChildByFieldName("alias")),
			})
		}
	}
	return out
}

// dotted returns a dotted_name's text without interior whitespace.
func (c *converter) dotted(n *sitter.Node) string {
	return strings.Join(strings.Fields(c.text(n)), "")
}

func (c *converter) expr(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "parenthesized_expression", "type":
		if kids := namedChildren(n); len(kids) == 1 {
			return c.expr(kids[0])
		}
	case "identifier":
		return &Name{base: c.base(n), ID: c.text(n)}
	case "integer":
		if v, err := strconv.ParseInt(c.text(n), 0, 64); err == nil {
			return &Constant{base: c.base(n), Kind: ConstInt, Int: v}
		}
	case "float":
		if v, err := strconv.ParseFloat(strings.ReplaceAll(c.text(n), "_", ""), 64); err == nil {
			return &Constant{base: c.base(n), Kind: ConstFloat, Float: v}
		}
	case "true", "false":
		return &Constant{base: c.base(n), Kind: ConstBool, Bool: n.Kind() == "true"}
	case "none":
		return &Constant{base: c.base(n), Kind: ConstNone}
	case "ellipsis":
		return &Constant{base: c.base(n), Kind: ConstEllipsis}
	case "string":
		if value, isBytes, ok := decodeString(c.text(n)); ok {
			kind := ConstStr
			if isBytes {
				kind = ConstBytes
			}
			return &Constant{base: c.base(n), Kind: kind, Str: value}
		}
	case "concatenated_string":
		return c.concatenated(n)
	case "tuple", "pattern_list", "tuple_pattern", "expression_list":
		return &Tuple{base: c.base(n), Elts: c.exprs(namedChildren(n))}
	case "list", "list_pattern":
		return &List{base: c.base(n), Elts: c.exprs(namedChildren(n))}
	case "comparison_operator":
		return c.compare(n)
	case "boolean_operator":
		return c.boolOp(n)
	case "attribute":
		return &Attribute{
			base:  c.base(n),
			Value: c.expr(n.ChildByFieldName("object")),
			Attr:  c.text(n.ChildByFieldName("attribute")),
		}
	case "subscript":
		return c.subscript(n)
	case "slice":
		return c.slice(n)
	case "call":
		return c.call(n)
	case "list_splat":
		if kids := namedChildren(n); len(kids) == 1 {
			return &Starred{base: c.base(n), Value: c.expr(kids[0])}
		}
	}
	return &OtherExpr{base: c.base(n), Kind: n.Kind()}
}

func (c *converter) exprs(nodes []*sitter.Node) []Expr {
	out := make([]Expr, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.expr(n))
	}
	return out
}

func (c *converter) concatenated(n *sitter.Node) Expr {
	var sb strings.Builder
	kind := ConstStr
	for i, part := range namedChildren(n) {
		value, isBytes, ok := decodeString(c.text(part))
		if !ok || part.Kind() != "string" {
			return &OtherExpr{base: c.base(n), Kind: n.Kind()}
		}
		partKind := ConstStr
		if isBytes {
			partKind = ConstBytes
		}
		if i > 0 && partKind != kind {
			// mixing bytes and str is a Python syntax error
			return &OtherExpr{base: c.base(n), Kind: n.Kind()}
		}
		kind = partKind
		sb.WriteString(value)
	}
	return &Constant{base: c.base(n), Kind: kind, Str: sb.String()}
}

func (c *converter) compare(n *sitter.Node) Expr {
	cmp := &Compare{base: c.base(n)}
	var pending []string
	seenLeft := false
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || child.IsExtra() || child.Kind() == "comment" {
			continue
		}
		if !child.IsNamed() {
			// "not in" / "is not" can surface as one aliased token or two
			pending = append(pending, strings.Join(strings.Fields(child.Kind()), " "))
			continue
		}
		operand := c.expr(child)
		if !seenLeft {
			cmp.Left = operand
			seenLeft = true
			continue
		}
		cmp.Ops = append(cmp.Ops, strings.Join(pending, " "))
		cmp.Comparators = append(cmp.Comparators, operand)
		pending = pending[:0]
	}
	return cmp
}

func (c *converter) boolOp(n *sitter.Node) Expr {
	op := ""
	if opNode := n.ChildByFieldName("operator"); opNode != nil {
		op = opNode.Kind()
	}
	result := &BoolOp{base: c.base(n), Op: op}
	for _, side := range []*sitter.Node{n.ChildByFieldName("left"), n.ChildByFieldName("right")} {
		value := c.expr(side)
		// a or b or c parses left-nested; flatten like Python's own AST
		if nested, ok := value.(*BoolOp); ok && nested.Op == op && side.Kind() == "boolean_operator" {
			result.Values = append(result.Values, nested.Values...)
			continue
		}
		result.Values = append(result.Values, value)
	}
	return result
}

func (c *converter) subscript(n *sitter.Node) Expr {
	value := n.ChildByFieldName("value")
	sub := &Subscript{base: c.base(n), Value: c.expr(value)}

	var indices []Expr
	for _, child := range namedChildren(n) {
		if value != nil && child.StartByte() == value.StartByte() && child.EndByte() == value.EndByte() {
			continue
		}
		indices = append(indices, c.expr(child))
	}
	switch len(indices) {
	case 0:
	case 1:
		sub.Index = indices[0]
	default:
		sub.Index = &Tuple{base: c.base(n), Elts: indices}
	}
	return sub
}

func (c *converter) slice(n *sitter.Node) Expr {
	var parts [3]Expr
	idx := 0
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || child.IsExtra() || child.Kind() == "comment" {
			continue
		}
		if !child.IsNamed() {
			if child.Kind() == ":" {
				idx++
			}
			continue
		}
		if idx < len(parts) {
			parts[idx] = c.expr(child)
		}
	}
	return &Slice{base: c.base(n), Lower: parts[0], Upper: parts[1], Step: parts[2]}
}

func (c *converter) call(n *sitter.Node) Expr {
	call := &Call{base: c.base(n), Func: c.expr(n.ChildByFieldName("function"))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Kind() != "argument_list" {
		// f(x for x in y)
		call.Args = append(call.Args, c.expr(args))
		return call
	}
	for _, arg := range namedChildren(args) {
		switch arg.Kind() {
		case "keyword_argument", "dictionary_splat":
			call.Keywords++
		default:
			call.Args = append(call.Args, c.expr(arg))
		}
	}
	return call
}
