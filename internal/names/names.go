// Package names implements the string-typed identifiers of the compiler:
// class/method/const fullnames and the namespace hierarchy used to resolve
// unqualified names.
package names

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// MetaPrefix marks a metaclass (class-object) type fullname.
const MetaPrefix = "Meta:"

// ClassFirstname is an unqualified class/module/enum name, e.g. "Array".
type ClassFirstname string

// ClassFullname is a `::`-separated qualified name, optionally prefixed with
// "Meta:" to denote the metaclass. Invariants:
//   - never starts with "::"
//   - "Meta:Meta:X" is forbidden (NewClassFullname rejects it)
//   - "Meta:Metaclass" collapses to "Metaclass" (the metaclass of Metaclass
//     is itself, by convention)
type ClassFullname string

// NewClassFullname validates and normalizes s into a ClassFullname.
func NewClassFullname(s string) (ClassFullname, error) {
	if strings.HasPrefix(s, "::") {
		return "", fmt.Errorf("class fullname must not start with '::': %q", s)
	}
	if strings.HasPrefix(s, MetaPrefix+MetaPrefix) {
		return "", fmt.Errorf("Meta:Meta: is forbidden: %q", s)
	}
	if s == MetaPrefix+"Metaclass" {
		s = "Metaclass"
	}
	return ClassFullname(s), nil
}

// IsMeta reports whether this fullname denotes a metaclass.
func (c ClassFullname) IsMeta() bool {
	return strings.HasPrefix(string(c), MetaPrefix)
}

// MetaName returns the Meta: form of c (a no-op if c is already a metaclass,
// collapsing per the Meta:Metaclass rule).
func (c ClassFullname) MetaName() ClassFullname {
	if c.IsMeta() {
		return c
	}
	if c == "Metaclass" {
		return c
	}
	return ClassFullname(MetaPrefix + string(c))
}

// InstanceName strips a leading Meta: prefix, if any.
func (c ClassFullname) InstanceName() ClassFullname {
	return ClassFullname(strings.TrimPrefix(string(c), MetaPrefix))
}

// Base returns the unqualified last component, e.g. "C" for "A::B::C".
func (c ClassFullname) Base() ClassFirstname {
	s := strings.TrimPrefix(string(c), MetaPrefix)
	parts := strings.Split(s, "::")
	return ClassFirstname(parts[len(parts)-1])
}

func (c ClassFullname) String() string { return string(c) }

// MethodFirstname uniquely identifies a method within its owner, e.g. "foo",
// "+@", "[]=".
type MethodFirstname string

// MethodFullname is "<type-fullname>#<first-name>".
type MethodFullname struct {
	Owner ClassFullname
	First MethodFirstname
}

func NewMethodFullname(owner ClassFullname, first MethodFirstname) MethodFullname {
	return MethodFullname{Owner: owner, First: first}
}

func (m MethodFullname) String() string {
	return fmt.Sprintf("%s#%s", m.Owner, m.First)
}

// ConstFullname always begins with "::".
type ConstFullname string

func NewConstFullname(s string) (ConstFullname, error) {
	if !strings.HasPrefix(s, "::") {
		return "", fmt.Errorf("const fullname must start with '::': %q", s)
	}
	return ConstFullname(s), nil
}

func (c ConstFullname) String() string { return string(c) }

// Namespace is an ordered sequence of simple names used for resolution
// walks, stored outermost component first (Prefixes yields the walk
// innermost first).
type Namespace struct {
	names []string
}

// NewNamespace builds a Namespace from its components, outermost first
// (e.g. NewNamespace("A", "B") is the namespace of "A::B").
func NewNamespace(names ...string) Namespace {
	cp := make([]string, len(names))
	copy(cp, names)
	return Namespace{names: cp}
}

// Head returns the namespace truncated to its first k components.
func (n Namespace) Head(k int) Namespace {
	if k > len(n.names) {
		k = len(n.names)
	}
	return Namespace{names: append([]string{}, n.names[:k]...)}
}

// Add appends a simple name, returning a new Namespace.
func (n Namespace) Add(name string) Namespace {
	out := append([]string{}, n.names...)
	out = append(out, name)
	return Namespace{names: out}
}

// Len returns the number of components.
func (n Namespace) Len() int { return len(n.names) }

func (n Namespace) String() string {
	return strings.Join(n.names, "::")
}

// Prefixes yields every prefix namespace of n, innermost (n itself) first,
// down to the empty (toplevel) namespace. Used to walk outward when
// resolving an unqualified name against enclosing scopes.
func (n Namespace) Prefixes() []Namespace {
	out := make([]Namespace, 0, n.Len()+1)
	for k := n.Len(); k >= 0; k-- {
		out = append(out, n.Head(k))
	}
	return out
}

// Qualify joins the namespace and a simple name into a `::`-separated
// fullname string, e.g. Namespace{"A","B"}.Qualify("C") == "A::B::C".
func (n Namespace) Qualify(name string) string {
	if n.Len() == 0 {
		return name
	}
	return n.String() + "::" + name
}

// ModuleKey derives a stable numeric key for a module fullname, used by MIR
// wtable-ref nodes as the witness-table column selector; the LLVM-level
// wtable lookup is an external collaborator
// but MIR still needs a concrete, deterministic key type.
func ModuleKey(fullname ClassFullname) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fullname))
	return h.Sum64()
}
