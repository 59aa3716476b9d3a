// Package typedict implements the type dictionary (SkTypes): the
// two-pass indexer that collects every class/module/enum-case in a program,
// resolves superclass/module inclusion, builds method-signature maps and
// witness tables, plus the query layer (method lookup, conforms, nearest
// common ancestor) that the HIR elaborator drives.
package typedict

import (
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
)

// Param is one formal parameter of a method signature.
type Param struct {
	Name       string
	Ty         ty.TermTy
	HasDefault bool
}

// Signature is a fully-resolved method signature.
type Signature struct {
	Fullname names.MethodFullname
	TyParams []ty.TyParam // method-level type parameters
	Params   []Param
	RetTy    ty.TermTy
}

// Arity returns the minimum and maximum number of positional arguments this
// signature accepts (default-valued trailing params lower the minimum).
func (s *Signature) Arity() (min, max int) {
	max = len(s.Params)
	min = max
	for i := len(s.Params) - 1; i >= 0; i-- {
		if !s.Params[i].HasDefault {
			break
		}
		min--
	}
	return
}

// MethodMap is an insertion-ordered name->signature map; ordering matters
// for witness-table slot
// assignment.
type MethodMap struct {
	order  []names.MethodFirstname
	byName map[names.MethodFirstname]*Signature
}

func NewMethodMap() *MethodMap {
	return &MethodMap{byName: map[names.MethodFirstname]*Signature{}}
}

// Add inserts or replaces sig, preserving original insertion order on
// replace (so an inherited method overridden in place keeps its slot).
func (m *MethodMap) Add(first names.MethodFirstname, sig *Signature) {
	if _, ok := m.byName[first]; !ok {
		m.order = append(m.order, first)
	}
	m.byName[first] = sig
}

func (m *MethodMap) Get(first names.MethodFirstname) (*Signature, bool) {
	s, ok := m.byName[first]
	return s, ok
}

func (m *MethodMap) Order() []names.MethodFirstname { return append([]names.MethodFirstname{}, m.order...) }

func (m *MethodMap) Len() int { return len(m.order) }

// Base holds the fields every SkType shape shares.
type Base struct {
	Fullname     names.ClassFullname
	TyParams     []ty.TyParam
	Methods      *MethodMap // instance methods
	ClassMethods *MethodMap // methods on the metaclass
	IsForeign    bool
}

func newBase(fullname names.ClassFullname, typarams []ty.TyParam) Base {
	return Base{
		Fullname:     fullname,
		TyParams:     typarams,
		Methods:      NewMethodMap(),
		ClassMethods: NewMethodMap(),
	}
}

// Supertype is a resolved superclass/included-module reference together with
// the type arguments it's specialized with at this use site.
type Supertype struct {
	Fullname names.ClassFullname
	TyArgs   []ty.TermTy
}

func (s Supertype) ToTermTy() ty.TermTy { return ty.Lit(string(s.Fullname), s.TyArgs...) }

// Ivar is one instance variable slot.
type Ivar struct {
	Idx      int
	Ty       ty.TermTy
	Readonly bool
}

// SkClass is the Class shape of SkType.
type SkClass struct {
	Base
	Superclass *Supertype // nil only for the root Object
	Includes   []Supertype
	Ivars      map[string]Ivar
	IvarOrder  []string
	IsFinal    bool
	ConstIsObj bool // true for value-class singletons like enum unit cases
	// Wtable maps an included module's fullname to the ordered list of
	// concrete method fullnames implementing that module's signature, one
	// per slot.
	Wtable map[names.ClassFullname][]names.MethodFullname
}

// SkModule is the Module shape of SkType: "requirements: seq
// signature" plus whatever default-implementation methods it declares (held
// in Base.Methods alongside the requirements, distinguished by Requirements).
type SkModule struct {
	Base
	Requirements []Signature
}

// SkType is a tagged union over the two type shapes. Exactly one of Class or
// Module is non-nil.
type SkType struct {
	Class  *SkClass
	Module *SkModule
}

func (t *SkType) IsClass() bool { return t.Class != nil }

func (t *SkType) BaseInfo() *Base {
	if t.Class != nil {
		return &t.Class.Base
	}
	return &t.Module.Base
}

func (t *SkType) Fullname() names.ClassFullname { return t.BaseInfo().Fullname }

// SkTypes is the program-wide type dictionary, insertion-ordered
// for deterministic iteration (needed by e.g. MIR class-table emission).
type SkTypes struct {
	byName map[names.ClassFullname]*SkType
	order  []names.ClassFullname
	// Consts is the const-fullname -> type map.
	Consts map[names.ConstFullname]ty.TermTy
}

func New() *SkTypes {
	return &SkTypes{byName: map[names.ClassFullname]*SkType{}, Consts: map[names.ConstFullname]ty.TermTy{}}
}

func (d *SkTypes) Get(fullname names.ClassFullname) (*SkType, bool) {
	t, ok := d.byName[fullname]
	return t, ok
}

func (d *SkTypes) Add(fullname names.ClassFullname, t *SkType) {
	if _, ok := d.byName[fullname]; !ok {
		d.order = append(d.order, fullname)
	}
	d.byName[fullname] = t
}

func (d *SkTypes) Order() []names.ClassFullname { return append([]names.ClassFullname{}, d.order...) }

// AddConst records a constant's resolved type, e.g. `E::Some`'s type as the
// metaclass literal of the case class.
func (d *SkTypes) AddConst(fullname names.ConstFullname, t ty.TermTy) {
	d.Consts[fullname] = t
}
