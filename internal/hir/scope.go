package hir

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
)

type scopeKind int

const (
	scopeToplevel scopeKind = iota
	scopeClass
	scopeMethod
	scopeLambda
	scopeWhile
	scopeMatch
)

type lvarEntry struct {
	Ty       ty.TermTy
	Readonly bool
}

// scope is one entry of the elaborator's context stack. Each context
// exposes a local-variable map; method/lambda
// contexts additionally expose formal parameters; lambda contexts grow a
// capture list; class contexts expose the in-scope namespace and
// class-typaram list.
type scope struct {
	kind scopeKind

	lvars      map[string]*lvarEntry
	lvarOrder  []string

	// method / lambda
	params []LParam

	// lambda-only
	captures     []Capture
	captureIndex map[string]int
	hasBreak     bool
	isFn         bool
	lambdaName   string

	// class-only
	ns            names.Namespace
	classTyParams []ty.TyParam

	// method-only
	retTy          ty.TermTy
	methodTyParams []ty.TyParam
	methodName     string
	isClassMethod  bool
}

func newScope(kind scopeKind) *scope {
	return &scope{kind: kind, lvars: map[string]*lvarEntry{}}
}

func (s *scope) declareLVar(name string, t ty.TermTy, readonly bool) {
	if _, exists := s.lvars[name]; !exists {
		s.lvarOrder = append(s.lvarOrder, name)
	}
	s.lvars[name] = &lvarEntry{Ty: t, Readonly: readonly}
}

// ownerScope finds the scope whose function frame owns local allocations:
// the nearest method, lambda, or toplevel context.
func (el *Elaborator) ownerScope() *scope {
	for i := len(el.scopes) - 1; i >= 0; i-- {
		switch el.scopes[i].kind {
		case scopeMethod, scopeLambda, scopeToplevel:
			return el.scopes[i]
		}
	}
	return el.scopes[0]
}

// absorbLocals hoists a popped block scope's locals (while bodies, match
// clauses) into the owning function scope so MIR lowering can emit one
// alloc per local; visibility was already enforced during elaboration.
func (el *Elaborator) absorbLocals(s *scope) {
	target := el.ownerScope()
	for _, name := range s.lvarOrder {
		if _, exists := target.lvars[name]; !exists {
			e := s.lvars[name]
			target.declareLVar(name, e.Ty, e.Readonly)
		}
	}
}

// push/pop/current manage the Elaborator's context stack.
func (el *Elaborator) push(s *scope) { el.scopes = append(el.scopes, s) }
func (el *Elaborator) pop()          { el.scopes = el.scopes[:len(el.scopes)-1] }
func (el *Elaborator) top() *scope   { return el.scopes[len(el.scopes)-1] }

func (el *Elaborator) topOfKind(kind scopeKind) (*scope, bool) {
	for i := len(el.scopes) - 1; i >= 0; i-- {
		if el.scopes[i].kind == kind {
			return el.scopes[i], true
		}
		if kind == scopeWhile && el.scopes[i].kind == scopeLambda {
			// A while-loop does not reach through an intervening lambda
			// boundary; break/return semantics differ there.
			return nil, false
		}
	}
	return nil, false
}

// innermostLoopOrBlock finds the nearest enclosing while-loop or
// block-lambda, for break well-formedness.
func (el *Elaborator) innermostLoopOrBlock() (*scope, bool) {
	for i := len(el.scopes) - 1; i >= 0; i-- {
		s := el.scopes[i]
		if s.kind == scopeWhile {
			return s, true
		}
		if s.kind == scopeLambda && !s.isFn {
			return s, true
		}
		if s.kind == scopeLambda && s.isFn {
			return nil, false // fn-lambdas do not let break escape through them
		}
		if s.kind == scopeMethod {
			return nil, false
		}
	}
	return nil, false
}

// innermostMethodOrFn finds the nearest enclosing method or fn-lambda, for
// return well-formedness.
func (el *Elaborator) innermostMethodOrFn() (*scope, bool) {
	for i := len(el.scopes) - 1; i >= 0; i-- {
		s := el.scopes[i]
		if s.kind == scopeMethod {
			return s, true
		}
		if s.kind == scopeLambda {
			if s.isFn {
				return s, true
			}
			return nil, false // block-lambda: return is rejected (PRG010)
		}
	}
	return nil, false
}

func (el *Elaborator) lookupLVar(name string) (*lvarEntry, int, bool) {
	for i := len(el.scopes) - 1; i >= 0; i-- {
		if e, ok := el.scopes[i].lvars[name]; ok {
			return e, i, true
		}
	}
	return nil, -1, false
}

// resolveLVarRef resolves a bare name against the context stack: walk
// contexts outward; every lambda boundary crossed between the definition
// site and the reference site gets a capture-list entry (the outermost
// crossed lambda captures the real variable; any lambda nested inside it
// gets a capture-forward entry instead).
func (el *Elaborator) resolveLVarRef(name string, pos ast.Pos) (HExpr, bool) {
	entry, defScope, found := el.lookupLVar(name)
	if !found {
		return nil, false
	}
	var lambdaIdxs []int
	for i := defScope + 1; i < len(el.scopes); i++ {
		if el.scopes[i].kind == scopeLambda {
			lambdaIdxs = append(lambdaIdxs, i)
		}
	}
	if len(lambdaIdxs) == 0 {
		return &HLVarRef{hbase: hbase{Ty: entry.Ty, P: pos}, Name: name}, true
	}
	var node HExpr
	for k, li := range lambdaIdxs {
		ls := el.scopes[li]
		if ls.captureIndex == nil {
			ls.captureIndex = map[string]int{}
		}
		capIdx, already := ls.captureIndex[name]
		if !already {
			capIdx = len(ls.captures)
			ls.captures = append(ls.captures, Capture{Name: name, Ty: entry.Ty, Idx: capIdx, IsForward: k > 0})
			ls.captureIndex[name] = capIdx
		}
		if k == 0 {
			node = &HCaptureRef{hbase: hbase{Ty: entry.Ty, P: pos}, Idx: capIdx}
		} else {
			node = &HCaptureForward{hbase: hbase{Ty: entry.Ty, P: pos}, Idx: capIdx}
		}
	}
	return node, true
}

// namespaceStack returns every class namespace currently on the context
// stack, innermost first, for the const scope iterator.
func (el *Elaborator) namespaceStack() []names.Namespace {
	var out []names.Namespace
	for i := len(el.scopes) - 1; i >= 0; i-- {
		if el.scopes[i].kind == scopeClass {
			out = append(out, el.scopes[i].ns)
		}
	}
	out = append(out, names.NewNamespace())
	return out
}
