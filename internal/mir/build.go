package mir

import "github.com/shiika-lang/shiika-go/internal/names"

// Node constructors for passes living outside this package (asyncness
// inference, the splitter, tests). A constructor whose node type is neither
// fixed nor derived from its operands takes that type first.

func NewStringRef(t Ty, idx int) *StringRef { return &StringRef{typed(t), idx} }

func NewPseudoVar(t Ty, kind PseudoKind) *PseudoVar { return &PseudoVar{typed(t), kind} }

func NewLVarRef(t Ty, name string) *LVarRef { return &LVarRef{typed(t), name} }

func NewLVarSet(name string, value Expr) *LVarSet { return &LVarSet{typed(value.Ty()), name, value} }

func NewIVarRef(t Ty, receiver Expr, name string, idx int) *IVarRef {
	return &IVarRef{typed(t), receiver, name, idx}
}

func NewIVarSet(receiver Expr, name string, idx int, value Expr) *IVarSet {
	return &IVarSet{typed(value.Ty()), receiver, name, idx, value}
}

func NewArgRef(t Ty, idx int, name string) *ArgRef { return &ArgRef{typed(t), idx, name} }

func NewConstRef(t Ty, name names.ConstFullname) *ConstRef { return &ConstRef{typed(t), name} }

func NewConstSet(name names.ConstFullname, value Expr) *ConstSet {
	return &ConstSet{typed(value.Ty()), name, value}
}

func NewEnvRef(t Ty, slot int, typeID int64) *EnvRef { return &EnvRef{typed(t), slot, typeID} }

func NewEnvSet(slot int, value Expr, typeID int64) *EnvSet {
	return &EnvSet{typed(CVoidTy), slot, value, typeID}
}

func NewFuncRef(funTy *FunTy, name string) *FuncRef { return &FuncRef{typed(funTy.Ty()), name} }

func NewVTableRef(funTy *FunTy, receiver Expr, class names.ClassFullname, slot int) *VTableRef {
	return &VTableRef{typed(funTy.Ty()), receiver, class, slot}
}

func NewWTableRef(funTy *FunTy, receiver Expr, module names.ClassFullname, modKey uint64, slot int) *WTableRef {
	return &WTableRef{typed(funTy.Ty()), receiver, module, modKey, slot}
}

func NewFunCall(callee Expr, args []Expr) *FunCall {
	ret := AnyTy
	if callee.Ty().Kind == TyFun {
		ret = callee.Ty().Fun.Ret
	}
	return &FunCall{typed(ret), callee, args}
}

func NewIf(t Ty, cond Expr, then, els *Exprs) *If { return &If{typed(t), cond, then, els} }

func NewWhile(cond Expr, body *Exprs) *While { return &While{typed(Raw("Void")), cond, body} }

func NewBreak() *Break { return &Break{typed(Raw("Never"))} }

func NewAlloc(t Ty, name string) *Alloc { return &Alloc{typed(t), name} }

func NewCast(t Ty, kind CastKind, e Expr) *Cast { return &Cast{typed(t), kind, e} }

func NewCreateObject(className names.ClassFullname) *CreateObject {
	return &CreateObject{typed(Raw(string(className))), className}
}

func NewCreateTypeObject(t Ty, className names.ClassFullname) *CreateTypeObject {
	return &CreateTypeObject{typed(t), className}
}

func NewUnboxInt(e Expr) *UnboxInt { return &UnboxInt{typed(Int64Ty), e} }

// WithFunTy rebuilds a callee-position node with an updated function type,
// used by asyncness application and the splitter's signature
// rewrite.
func WithFunTy(e Expr, funTy *FunTy) Expr {
	switch n := e.(type) {
	case *FuncRef:
		return &FuncRef{typed(funTy.Ty()), n.Name}
	case *VTableRef:
		return &VTableRef{typed(funTy.Ty()), n.Receiver, n.Class, n.Slot}
	case *WTableRef:
		return &WTableRef{typed(funTy.Ty()), n.Receiver, n.Module, n.ModKey, n.Slot}
	case *Cast:
		return &Cast{typed(funTy.Ty()), n.Kind, n.Expr}
	default:
		return e
	}
}
