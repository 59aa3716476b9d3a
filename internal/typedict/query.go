package typedict

import (
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
)

// resolveClass returns the SkType backing a (possibly type-parameter-ref)
// TermTy's erasure.
func (d *SkTypes) resolveClass(t ty.TermTy) (*SkType, bool) {
	return d.Get(t.Erasure().Base())
}

// LookupResult is what method lookup returns on success.
type LookupResult struct {
	Sig   *Signature
	Owner names.ClassFullname
	// Sub is the substitution that specializes Sig for the receiver's own
	// type arguments (class args only; method args come from the call
	// site's explicit/inferred method type arguments).
	Sub ty.Substitution
}

// Lookup resolves a method against a receiver type: resolve the receiver's
// class/metaclass, search its own method map, then each included module (in
// declaration order, translating type arguments through the class's module
// specialization), finally reporting TYP006 if nothing matches.
//
// There is no separate superclass step: buildClass already flattens
// inherited signatures into cls.Methods / cls.ClassMethods (substituted at
// inheritance time), so the receiver's own map holds them, and Owner is the
// receiver's class for any method found there, inherited or not. Modules
// included by a superclass are not searched, so their methods are not found
// through a subclass receiver.
func Lookup(d *SkTypes, receiver ty.TermTy, method names.MethodFirstname) (*LookupResult, *sherrors.Report) {
	t, ok := d.resolveClass(receiver)
	if !ok {
		return nil, sherrors.New(sherrors.TYP006, sherrors.Span{}, "unknown type %q", receiver.Erasure().Base())
	}
	sub := ty.Substitution{ClassArgs: receiver.Erasure().TypeArgs}
	if len(receiver.TypeArgs) > 0 {
		sub.ClassArgs = receiver.TypeArgs
	}

	methods := t.BaseInfo().Methods
	if receiver.IsMeta {
		methods = t.BaseInfo().ClassMethods
	}
	sig, found := methods.Get(method)
	if found {
		return &LookupResult{Sig: substituteSignature(sig, sub), Owner: t.Fullname(), Sub: sub}, nil
	}
	// Step 3: search each included module in declaration order, translating
	// the module's type arguments via the class's module specialization.
	if t.IsClass() && !receiver.IsMeta {
		for _, inc := range t.Class.Includes {
			modT, ok := d.Get(inc.Fullname)
			if !ok || modT.Module == nil {
				continue
			}
			msig, found := modT.Module.Methods.Get(method)
			if !found {
				continue
			}
			modArgs := make([]ty.TermTy, len(inc.TyArgs))
			for i, a := range inc.TyArgs {
				modArgs[i] = a.Substitute(sub)
			}
			modSub := ty.Substitution{ClassArgs: modArgs}
			return &LookupResult{Sig: substituteSignature(msig, modSub), Owner: inc.Fullname, Sub: modSub}, nil
		}
	}
	return nil, sherrors.New(sherrors.TYP006, sherrors.Span{},
		"method %q not found on type %q", method, receiver.String())
}

// SpecializeMethod applies explicit method type arguments to a signature
// already specialized for its receiver.
func SpecializeMethod(sig *Signature, methodArgs []ty.TermTy) *Signature {
	if len(methodArgs) == 0 {
		return sig
	}
	return substituteSignature(sig, ty.Substitution{MethodArgs: methodArgs})
}

// AncestorChain returns the chain of literal types from t
// up to and including Object, substituting each superclass's own type
// arguments through the accumulated substitution as the walk proceeds.
func AncestorChain(d *SkTypes, t ty.TermTy) []ty.TermTy {
	if t.IsTyParamRef() {
		if t.UpperBound != nil {
			return AncestorChain(d, *t.UpperBound)
		}
		t = ty.Object
	}
	var chain []ty.TermTy
	cur := t
	for {
		chain = append(chain, cur)
		skt, ok := d.Get(cur.Base())
		if !ok || !skt.IsClass() || skt.Class.Superclass == nil {
			break
		}
		sub := ty.Substitution{ClassArgs: cur.TypeArgs}
		super := skt.Class.Superclass
		args := make([]ty.TermTy, len(super.TyArgs))
		for i, a := range super.TyArgs {
			args[i] = a.Substitute(sub)
		}
		next := ty.Lit(string(super.Fullname), args...)
		if next.IsMeta != cur.IsMeta {
			next.IsMeta = cur.IsMeta
		}
		if next.Base() == cur.Base() {
			break // reached Object (its own superclass pointer is nil, guarded above)
		}
		cur = next
	}
	return chain
}

// Conforms is the subtyping relation. Never is
// bottom; type-parameter refs compare bounds; literal types walk t1's
// ancestor chain looking for an ancestor sharing t2's base, accepting if
// every argument of the found ancestor's image is Never or its type
// arguments conform to t2's under the base's declared variance
// (argsConform). A function type conforms to a function type returning Void
// regardless of its own return type (the "discarding results" special
// case).
func Conforms(d *SkTypes, t1, t2 ty.TermTy) bool {
	if t1.Equals(ty.Never) {
		return true
	}
	if t1.Equals(t2) {
		return true
	}
	if t1.IsTyParamRef() || t2.IsTyParamRef() {
		return conformsTyParam(d, t1, t2)
	}
	if isFnType(t1) && isFnType(t2) && t2.TypeArgs[len(t2.TypeArgs)-1].Equals(ty.Void) {
		return sameFnArgs(t1, t2)
	}
	for _, anc := range AncestorChain(d, t1) {
		if anc.Base() != t2.Base() {
			continue
		}
		if allNever(anc.TypeArgs) {
			return true
		}
		if anc.Erasure().Equals(t2.Erasure()) {
			return argsConform(d, anc, t2)
		}
	}
	return false
}

// argsConform compares type arguments of two same-base specializations
// under the base's declared variance: `out` admits widening, `in` admits
// narrowing, invariant parameters must match exactly.
func argsConform(d *SkTypes, a, b ty.TermTy) bool {
	if len(a.TypeArgs) != len(b.TypeArgs) {
		return false
	}
	var typarams []ty.TyParam
	if skt, ok := d.Get(a.Base()); ok {
		typarams = skt.BaseInfo().TyParams
	}
	for i := range a.TypeArgs {
		v := ty.Invariant
		if i < len(typarams) {
			v = typarams[i].Variance
		}
		switch v {
		case ty.Covariant:
			if !Conforms(d, a.TypeArgs[i], b.TypeArgs[i]) {
				return false
			}
		case ty.Contravariant:
			if !Conforms(d, b.TypeArgs[i], a.TypeArgs[i]) {
				return false
			}
		default:
			if !a.TypeArgs[i].Equals(b.TypeArgs[i]) {
				return false
			}
		}
	}
	return true
}

func isFnType(t ty.TermTy) bool {
	return !t.IsTyParamRef() && len(t.TypeArgs) > 0 && (t.BaseName == "Fn0" || len(t.BaseName) >= 2 && t.BaseName[:2] == "Fn")
}

func sameFnArgs(t1, t2 ty.TermTy) bool {
	if len(t1.TypeArgs) != len(t2.TypeArgs) {
		return false
	}
	for i := 0; i < len(t1.TypeArgs)-1; i++ {
		if !t1.TypeArgs[i].Equals(t2.TypeArgs[i]) {
			return false
		}
	}
	return true
}

func allNever(args []ty.TermTy) bool {
	if len(args) == 0 {
		return false
	}
	for _, a := range args {
		if !a.Equals(ty.Never) {
			return false
		}
	}
	return true
}

// conformsTyParam handles the case where either side is a type-parameter
// reference: "Type-parameter refs are handled by comparing
// upper/lower bounds."
func conformsTyParam(d *SkTypes, t1, t2 ty.TermTy) bool {
	if t1.IsTyParamRef() {
		if t1.UpperBound != nil && Conforms(d, *t1.UpperBound, t2) {
			return true
		}
		return t2.Equals(ty.Object)
	}
	// t2 is a typaram ref: t1 conforms if it conforms to t2's lower bound
	// (the widest type t2 could be asked to accept).
	if t2.LowerBound != nil {
		return Conforms(d, t1, *t2.LowerBound)
	}
	return false
}

// NCA computes the nearest common ancestor of t1 and t2: intersect
// ancestor chains; if only Object
// remains and neither argument is Object, report none.
func NCA(d *SkTypes, t1, t2 ty.TermTy) (ty.TermTy, bool) {
	if t1.Equals(ty.Never) {
		return t2, true
	}
	if t2.Equals(ty.Never) {
		return t1, true
	}
	chain1 := AncestorChain(d, t1)
	set2 := map[names.ClassFullname]ty.TermTy{}
	for _, a := range AncestorChain(d, t2) {
		set2[a.Base()] = a
	}
	for _, a := range chain1 {
		if b, ok := set2[a.Base()]; ok {
			if a.Equals(b) {
				if a.Base() == "Object" && !t1.Equals(ty.Object) && !t2.Equals(ty.Object) {
					return ty.TermTy{}, false
				}
				return a, true
			}
			// Same base, different specialization: the walk moves on
			// outward, except at Object, which is returned only when one of
			// the inputs is Object itself.
			if a.Base() == "Object" {
				if t1.Equals(ty.Object) || t2.Equals(ty.Object) {
					return ty.Object, true
				}
				return ty.TermTy{}, false
			}
		}
	}
	return ty.TermTy{}, false
}
