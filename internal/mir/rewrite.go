package mir

// Rewrite rebuilds e bottom-up, applying f to every node after its
// children have been rewritten. Passes that consume and produce fresh
// trees are built on this.
func Rewrite(e Expr, f func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *LVarSet:
		return f(&LVarSet{n.ebase, n.Name, Rewrite(n.Value, f)})
	case *IVarRef:
		return f(&IVarRef{n.ebase, Rewrite(n.Receiver, f), n.Name, n.Idx})
	case *IVarSet:
		return f(&IVarSet{n.ebase, Rewrite(n.Receiver, f), n.Name, n.Idx, Rewrite(n.Value, f)})
	case *ConstSet:
		return f(&ConstSet{n.ebase, n.Name, Rewrite(n.Value, f)})
	case *EnvSet:
		return f(&EnvSet{n.ebase, n.Slot, Rewrite(n.Value, f), n.TypeID})
	case *VTableRef:
		return f(&VTableRef{n.ebase, Rewrite(n.Receiver, f), n.Class, n.Slot})
	case *WTableRef:
		return f(&WTableRef{n.ebase, Rewrite(n.Receiver, f), n.Module, n.ModKey, n.Slot})
	case *FunCall:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Rewrite(a, f)
		}
		return f(&FunCall{n.ebase, Rewrite(n.Callee, f), args})
	case *If:
		return f(&If{n.ebase, Rewrite(n.Cond, f), RewriteExprs(n.Then, f), RewriteExprs(n.Else, f)})
	case *While:
		return f(&While{n.ebase, Rewrite(n.Cond, f), RewriteExprs(n.Body, f)})
	case *Return:
		return f(&Return{n.ebase, Rewrite(n.Value, f)})
	case *Exprs:
		return f(RewriteExprs(n, f))
	case *Cast:
		return f(&Cast{n.ebase, n.Kind, Rewrite(n.Expr, f)})
	case *UnboxInt:
		return f(&UnboxInt{n.ebase, Rewrite(n.Expr, f)})
	default:
		// Leaf nodes: Number, StringRef, PseudoVar, LVarRef, ArgRef,
		// ConstRef, EnvRef, FuncRef, Break, Alloc, CreateObject,
		// CreateTypeObject, RawI64, Nop.
		return f(e)
	}
}

// RewriteExprs rewrites a block, preserving its aggregate type via
// recomputation from the rewritten tail.
func RewriteExprs(es *Exprs, f func(Expr) Expr) *Exprs {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es.Exprs))
	for i, e := range es.Exprs {
		out[i] = Rewrite(e, f)
	}
	return NewExprs(out)
}

// Walk visits every node of e top-down; returning false from f skips the
// node's children.
func Walk(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch n := e.(type) {
	case *LVarSet:
		Walk(n.Value, f)
	case *IVarRef:
		Walk(n.Receiver, f)
	case *IVarSet:
		Walk(n.Receiver, f)
		Walk(n.Value, f)
	case *ConstSet:
		Walk(n.Value, f)
	case *EnvSet:
		Walk(n.Value, f)
	case *VTableRef:
		Walk(n.Receiver, f)
	case *WTableRef:
		Walk(n.Receiver, f)
	case *FunCall:
		Walk(n.Callee, f)
		for _, a := range n.Args {
			Walk(a, f)
		}
	case *If:
		Walk(n.Cond, f)
		if n.Then != nil {
			Walk(n.Then, f)
		}
		if n.Else != nil {
			Walk(n.Else, f)
		}
	case *While:
		Walk(n.Cond, f)
		if n.Body != nil {
			Walk(n.Body, f)
		}
	case *Return:
		Walk(n.Value, f)
	case *Exprs:
		for _, sub := range n.Exprs {
			Walk(sub, f)
		}
	case *Cast:
		Walk(n.Expr, f)
	case *UnboxInt:
		Walk(n.Expr, f)
	}
}

// CountAllocs walks a function body counting Alloc nodes.
func CountAllocs(f *Function) int {
	n := 0
	Walk(f.Body, func(e Expr) bool {
		if _, ok := e.(*Alloc); ok {
			n++
		}
		return true
	})
	return n
}
