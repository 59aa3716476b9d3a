// Package hir implements the typed high-level IR and its
// elaborator: AST→HIR conversion with full type checking,
// method dispatch resolution, lambda capture analysis, and pattern-match
// compilation.
package hir

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
)

// HExpr is the HIR expression node interface: every node carries its resolved type and
// source position.
type HExpr interface {
	Type() ty.TermTy
	Pos() ast.Pos
	hnode()
}

type hbase struct {
	Ty ty.TermTy
	P  ast.Pos
}

func (b hbase) Type() ty.TermTy { return b.Ty }
func (b hbase) Pos() ast.Pos    { return b.P }
func (hbase) hnode()            {}

// HExprs wraps a sequence with its aggregate type.
type HExprs struct {
	Exprs []HExpr
	Ty    ty.TermTy
}

func NewHExprs(exprs []HExpr) *HExprs {
	t := ty.Void
	if len(exprs) > 0 {
		t = exprs[len(exprs)-1].Type()
	}
	return &HExprs{Exprs: exprs, Ty: t}
}

// ---- Literals and variable/constant references ----

type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitBool
)

type HLit struct {
	hbase
	Kind   LitKind
	IVal   int64
	FVal   float64
	SVal   string
	BVal   bool
}

type HSelf struct{ hbase }

type HLVarRef struct {
	hbase
	Name string
}

type HLVarAssign struct {
	hbase
	Name  string
	Value HExpr
}

type HIVarRef struct {
	hbase
	Name string
	Idx  int
}

type HIVarAssign struct {
	hbase
	Name  string
	Idx   int
	Value HExpr
}

type HArgRef struct {
	hbase
	Idx  int
	Name string
}

type HConstRef struct {
	hbase
	Fullname names.ConstFullname
}

type HConstAssign struct {
	hbase
	Fullname names.ConstFullname
	Value    HExpr
}

// HCaptureRef/HCaptureForward implement lambda capture.
// HCaptureRef reads capture slot Idx of the *innermost enclosing lambda*
// directly from its owning outer scope; HCaptureForward reads a capture
// slot that was itself forwarded in from an enclosing lambda's own capture
// list (nested closures sharing a free variable).
type HCaptureRef struct {
	hbase
	Idx int
}

type HCaptureForward struct {
	hbase
	Idx int
}

// ---- Calls ----

type HMethodCall struct {
	hbase
	Receiver HExpr // nil means implicit self
	Name     string
	Owner    names.ClassFullname
	Args     []HExpr
	TyArgs   []ty.TermTy
}

// HModuleMethodCall is a call dispatched through a module's witness table
// rather than a class vtable slot.
type HModuleMethodCall struct {
	hbase
	Receiver HExpr
	Module   names.ClassFullname
	Name     string
	Args     []HExpr
}

// HLambdaInvocation calls a first-class function value bound to an lvar.
type HLambdaInvocation struct {
	hbase
	Target HExpr
	Args   []HExpr
}

// ---- Lambdas ----

type LParam struct {
	Name string
	Ty   ty.TermTy
}

// Capture is one entry of a lambda's capture list.
type Capture struct {
	Name      string
	Ty        ty.TermTy
	Idx       int
	IsForward bool // forwarded in from an enclosing lambda's own capture
}

type HLambdaExpr struct {
	hbase
	Name      string // auto-generated unique name
	IsFn      bool
	Params    []LParam
	Body      *HExprs
	Captures  []Capture
	HasBreak  bool
	LVars     map[string]LVarInfo
	LVarOrder []string
}

// ---- Control flow ----

type HIfExpr struct {
	hbase
	Cond HExpr
	Then *HExprs
	Else *HExprs
}

type HWhileExpr struct {
	hbase
	Cond HExpr
	Body *HExprs
}

type BreakFrom int

const (
	BreakFromWhile BreakFrom = iota
	BreakFromBlock
)

type HBreak struct {
	hbase
	From  BreakFrom
	Value HExpr
}

type ReturnFrom int

const (
	ReturnFromMethod ReturnFrom = iota
	ReturnFromFn
)

type HReturn struct {
	hbase
	From  ReturnFrom
	Value HExpr
}

type HNot struct {
	hbase
	Operand HExpr
}

type HAnd struct {
	hbase
	Left, Right HExpr
}

type HOr struct {
	hbase
	Left, Right HExpr
}

// HBitCast is an explicit representation-level coercion.
type HBitCast struct {
	hbase
	Expr HExpr
}

type HClassLiteral struct {
	hbase
	Fullname names.ClassFullname
}

// ---- Pattern matching ----

// Component is one step of a compiled match clause.
type Component interface {
	componentNode()
}

// Test continues to the next clause iff its expression (of type Bool)
// evaluates false.
type Test struct {
	Expr HExpr
}

// Bind introduces a local of the given name bound to expr's value.
type Bind struct {
	Name string
	Expr HExpr
}

func (Test) componentNode() {}
func (Bind) componentNode() {}

// MatchClause is a compiled pattern (a sequence of Components) plus the
// clause's body.
type MatchClause struct {
	Components []Component
	Body       *HExprs
}

// HMatchExpr holds the scrutinee-assign expression plus one compiled clause
// per surface pattern plus a synthesized panic clause for non-exhaustive
// fallthrough.
type HMatchExpr struct {
	hbase
	ScrutineeAssign HExpr // assigns the scrutinee to a hidden temporary
	Clauses         []MatchClause
}

// ---- Method bodies ----

type BodyKind int

const (
	BodyNormal BodyKind = iota
	BodyAutoNew
	BodyGetter
	BodySetter
	BodyExternal
)

type MethodBody struct {
	Kind    BodyKind
	Exprs   *HExprs // populated iff Kind == BodyNormal
	IvarIdx int     // populated iff Kind == BodyGetter/BodySetter
}

// LVarInfo records a local variable's type, mutability, and whether it has
// been captured by some nested lambda.
type LVarInfo struct {
	Ty       ty.TermTy
	Readonly bool
	Captured bool
}

type SkMethod struct {
	Fullname  names.MethodFullname
	TyParams  []ty.TyParam
	Params    []LParam
	RetTy     ty.TermTy
	Body      MethodBody
	LVars     map[string]LVarInfo
	LVarOrder []string // declaration order, for deterministic MIR alloc emission
}

// Program is the elaborator's output: every method body across the
// program plus the toplevel expression sequence (with its own locals,
// which become the entry function's allocs during MIR lowering).
type Program struct {
	Methods       map[names.MethodFullname]*SkMethod
	MethodOrder   []names.MethodFullname
	Toplevel      *HExprs
	ToplevelLVars map[string]LVarInfo
	ToplevelOrder []string
}
