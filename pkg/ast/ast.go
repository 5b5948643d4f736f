// Package ast defines the SuperC language AST node types.
package ast

import "fmt"

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// --- Types ---

// TypeKind identifies the shape of a DataType.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeI32
	TypeI64
	TypeF32
	TypeF64
	TypeBool
	TypeArray
)

// DataType is a declared SuperC type. Arrays carry their element type and a
// size fixed at parse time.
type DataType struct {
	Kind TypeKind
	Elem *DataType
	Size int
}

var (
	Void = DataType{Kind: TypeVoid}
	I32  = DataType{Kind: TypeI32}
	I64  = DataType{Kind: TypeI64}
	F32  = DataType{Kind: TypeF32}
	F64  = DataType{Kind: TypeF64}
	Bool = DataType{Kind: TypeBool}
)

// MaxArraySize is the largest array length a declaration may request.
const MaxArraySize = 1 << 26

// ArrayOf returns the array type elem[size].
func ArrayOf(elem DataType, size int) DataType {
	e := elem
	return DataType{Kind: TypeArray, Elem: &e, Size: size}
}

// IsArray reports whether t is an array type.
func (t DataType) IsArray() bool {
	return t.Kind == TypeArray
}

// ElemType returns the element type of an array, or t itself for scalars.
func (t DataType) ElemType() DataType {
	if t.Kind == TypeArray && t.Elem != nil {
		return *t.Elem
	}
	return t
}

// IsFloat reports whether t is a scalar floating point type.
func (t DataType) IsFloat() bool {
	return t.Kind == TypeF32 || t.Kind == TypeF64
}

// Equal reports structural type equality.
func (t DataType) Equal(o DataType) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind != TypeArray {
		return true
	}
	return t.Size == o.Size && t.ElemType().Equal(o.ElemType())
}

func (t DataType) String() string {
	switch t.Kind {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeBool:
		return "bool"
	case TypeArray:
		return fmt.Sprintf("%s[%d]", t.ElemType(), t.Size)
	}
	return "void"
}

// --- Operators ---

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpMod  BinaryOp = "%"
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
	OpLt   BinaryOp = "<"
	OpGt   BinaryOp = ">"
	OpLtEq BinaryOp = "<="
	OpGtEq BinaryOp = ">="
	OpAnd  BinaryOp = "&&"
	OpOr   BinaryOp = "||"
)

// IsArithmetic reports whether op is one of + - * / %.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsComparison reports whether op yields a boolean from two numbers.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEqEq, OpNeq, OpLt, OpGt, OpLtEq, OpGtEq:
		return true
	}
	return false
}

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// ReduceOp names the fold applied by reduce(op, array).
type ReduceOp string

const (
	ReduceSum  ReduceOp = "+"
	ReduceProd ReduceOp = "*"
	ReduceMax  ReduceOp = "max"
	ReduceMin  ReduceOp = "min"
)

// ExecTarget is the advisory execution tag of an exec block.
type ExecTarget string

const (
	TargetParallel ExecTarget = "parallel"
	TargetSeq      ExecTarget = "seq"
	TargetGpu      ExecTarget = "gpu"
	TargetAsm      ExecTarget = "asm"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

type FloatLiteral struct {
	Span  Span
	Value float64
}

func (n *FloatLiteral) Kind() string   { return "FloatLiteral" }
func (n *FloatLiteral) NodeSpan() Span { return n.Span }
func (n *FloatLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

// --- Names and access ---

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// IndexExpr is array[index]. The parser only produces an *Ident array.
type IndexExpr struct {
	Span  Span
	Array Expr
	Index Expr
}

func (n *IndexExpr) Kind() string   { return "IndexExpr" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) exprNode()      {}

// --- Operations ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

type CallExpr struct {
	Span Span
	Name string
	Args []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

type ReduceExpr struct {
	Span  Span
	Op    ReduceOp
	Array Expr
}

func (n *ReduceExpr) Kind() string   { return "ReduceExpr" }
func (n *ReduceExpr) NodeSpan() Span { return n.Span }
func (n *ReduceExpr) exprNode()      {}

// --- Statements ---

type DataDecl struct {
	Span Span
	Name string
	Type DataType
}

func (n *DataDecl) Kind() string   { return "DataDecl" }
func (n *DataDecl) NodeSpan() Span { return n.Span }
func (n *DataDecl) stmtNode()      {}

// AssignStmt is target = value or target[index] = value. Index is nil for
// scalar assignment.
type AssignStmt struct {
	Span   Span
	Target string
	Index  Expr
	Value  Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

type ExecBlock struct {
	Span   Span
	Target ExecTarget
	Body   []Stmt
}

func (n *ExecBlock) Kind() string   { return "ExecBlock" }
func (n *ExecBlock) NodeSpan() Span { return n.Span }
func (n *ExecBlock) stmtNode()      {}

// IfStmt holds an optional else branch: Else is nil when absent and a
// non-nil (possibly empty) slice when written.
type IfStmt struct {
	Span Span
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

// HasElse reports whether an else branch was written.
func (n *IfStmt) HasElse() bool {
	return n.Else != nil
}

// ForStmt iterates Var over the half-open range [Start, End).
type ForStmt struct {
	Span  Span
	Var   string
	Start Expr
	End   Expr
	Body  []Stmt
}

func (n *ForStmt) Kind() string   { return "ForStmt" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

// --- Functions and program ---

type Param struct {
	Name string
	Type DataType
}

type FnDef struct {
	Span    Span
	Name    string
	Params  []Param
	RetType DataType
	Body    []Stmt
}

func (n *FnDef) Kind() string   { return "FnDef" }
func (n *FnDef) NodeSpan() Span { return n.Span }

// Program is a parsed .sc source file. Functions and top-level statements are
// siblings; the interpreter only executes Statements.
type Program struct {
	Span       Span
	Functions  []*FnDef
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }

// Walk calls fn for every statement in stmts, depth first, including
// statements nested in blocks.
func Walk(stmts []Stmt, fn func(Stmt)) {
	for _, s := range stmts {
		fn(s)
		switch st := s.(type) {
		case *ExecBlock:
			Walk(st.Body, fn)
		case *IfStmt:
			Walk(st.Then, fn)
			Walk(st.Else, fn)
		case *ForStmt:
			Walk(st.Body, fn)
		}
	}
}
