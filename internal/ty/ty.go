// Package ty implements TermTy, the term-level type representation: a tagged
// variant over literal types and type-parameter references, with
// substitution, erasure, and the metaclass/instance conversions.
package ty

import (
	"fmt"
	"strings"

	"github.com/shiika-lang/shiika-go/internal/names"
)

// Variance is declared at a type-parameter definition site with `in`/`out`.
type Variance int

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "out"
	case Contravariant:
		return "in"
	default:
		return ""
	}
}

// TyParam is a declared type parameter of a class or method.
type TyParam struct {
	Name     string
	Variance Variance
}

// Kind distinguishes a class-level type parameter from a method-level one;
// TermTy's typaram-ref case carries both Kind and a positional Idx within the
// owning parameter list.
type Kind int

const (
	ClassParam Kind = iota
	MethodParam
)

// TermTy is the term-level type representation. Exactly one of the
// two shapes is populated; IsTyParamRef reports which.
type TermTy struct {
	// Literal-type shape (also used for metaclass types when IsMeta is set).
	BaseName string
	TypeArgs []TermTy
	IsMeta   bool

	// Type-parameter-reference shape.
	isTyParamRef bool
	ParamKind    Kind
	ParamName    string
	Idx          int
	UpperBound   *TermTy
	LowerBound   *TermTy

	// cached string form: String() returns it when set, but String() itself
	// never stores its result here.
	cachedStr string
}

// Lit builds a literal (instance) type.
func Lit(baseName string, args ...TermTy) TermTy {
	return TermTy{BaseName: baseName, TypeArgs: args}
}

// Meta builds a metaclass literal type for baseName.
func Meta(baseName string, args ...TermTy) TermTy {
	return TermTy{BaseName: baseName, TypeArgs: args, IsMeta: true}
}

// ParamRef builds a type-parameter reference.
func ParamRef(kind Kind, name string, idx int, upper, lower *TermTy) TermTy {
	return TermTy{isTyParamRef: true, ParamKind: kind, ParamName: name, Idx: idx, UpperBound: upper, LowerBound: lower}
}

// IsTyParamRef reports whether t is a type-parameter reference rather than a
// literal type.
func (t TermTy) IsTyParamRef() bool { return t.isTyParamRef }

// Never is the bottom type.
var Never = Lit("Never")

// Void is the unit/statement type.
var Void = Lit("Void")

// Object is the root of every class's ancestor chain.
var Object = Lit("Object")

// Bool, Int, Float, String are the built-in literal types.
var (
	Bool   = Lit("Bool")
	Int    = Lit("Int")
	Float  = Lit("Float")
	String = Lit("String")
)

// Base returns the unqualified class name a literal type denotes, panicking
// if called on a type-parameter reference (callers must check
// IsTyParamRef first, matching the source's query-layer discipline).
func (t TermTy) Base() names.ClassFullname {
	if t.isTyParamRef {
		panic("ty: Base() called on a type-parameter reference")
	}
	return names.ClassFullname(t.BaseName)
}

// Fullname renders the class-fullname form: "Meta:" prefix plus base plus
// "<args>" when specialized.
func (t TermTy) Fullname() names.ClassFullname {
	if t.isTyParamRef {
		panic("ty: Fullname() called on a type-parameter reference")
	}
	base := t.BaseName
	if t.IsMeta {
		cf, _ := names.NewClassFullname(names.MetaPrefix + base)
		base = string(cf)
	}
	if len(t.TypeArgs) == 0 {
		return names.ClassFullname(base)
	}
	args := make([]string, len(t.TypeArgs))
	for i, a := range t.TypeArgs {
		args[i] = a.String()
	}
	return names.ClassFullname(fmt.Sprintf("%s<%s>", base, strings.Join(args, ", ")))
}

// String renders t for diagnostics and equality caching.
func (t TermTy) String() string {
	if t.cachedStr != "" {
		return t.cachedStr
	}
	var s string
	if t.isTyParamRef {
		s = t.ParamName
	} else {
		s = string(t.Fullname())
	}
	return s
}

// SameBase reports whether two literal types share the same BaseName and
// IsMeta flag, ignoring type arguments.
func (t TermTy) SameBase(o TermTy) bool {
	if t.isTyParamRef || o.isTyParamRef {
		return false
	}
	return t.BaseName == o.BaseName && t.IsMeta == o.IsMeta
}

// Erasure drops type arguments, returning the bare class/metaclass literal.
func (t TermTy) Erasure() TermTy {
	if t.isTyParamRef {
		if t.UpperBound != nil {
			return t.UpperBound.Erasure()
		}
		return Object
	}
	return TermTy{BaseName: t.BaseName, IsMeta: t.IsMeta}
}

// MetaTy returns the metaclass type of t (a no-op if t is already meta).
func (t TermTy) MetaTy() TermTy {
	if t.isTyParamRef {
		panic("ty: MetaTy() called on a type-parameter reference")
	}
	if t.IsMeta {
		return t
	}
	out := t
	out.IsMeta = true
	out.cachedStr = ""
	return out
}

// InstanceTy returns the instance type corresponding to a metaclass type t.
func (t TermTy) InstanceTy() TermTy {
	if t.isTyParamRef {
		panic("ty: InstanceTy() called on a type-parameter reference")
	}
	out := t
	out.IsMeta = false
	out.cachedStr = ""
	return out
}

// Substitution carries the two independent binder spaces a TermTy can be
// closed over: class-level and method-level type arguments.
type Substitution struct {
	ClassArgs  []TermTy
	MethodArgs []TermTy
}

// Substitute replaces every type-parameter reference in t with the
// corresponding argument from sub, recursing into type arguments. A
// class-kind ref is only replaced when ClassArgs supplies an entry at that
// index; an out-of-range ref is left as-is.
func (t TermTy) Substitute(sub Substitution) TermTy {
	if t.isTyParamRef {
		switch t.ParamKind {
		case ClassParam:
			if t.Idx < len(sub.ClassArgs) {
				return sub.ClassArgs[t.Idx]
			}
		case MethodParam:
			if t.Idx < len(sub.MethodArgs) {
				return sub.MethodArgs[t.Idx]
			}
		}
		return t
	}
	if len(t.TypeArgs) == 0 {
		return t
	}
	args := make([]TermTy, len(t.TypeArgs))
	for i, a := range t.TypeArgs {
		args[i] = a.Substitute(sub)
	}
	return TermTy{BaseName: t.BaseName, TypeArgs: args, IsMeta: t.IsMeta}
}

// Equals is structural equality, used by the type dictionary and HIR
// elaborator for cache keys and conformance fast paths.
func (t TermTy) Equals(o TermTy) bool {
	return t.String() == o.String()
}
