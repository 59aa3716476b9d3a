package typedict

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
)

// LibraryExport is the serialization surface for prebuilt libraries: the
// type dictionary plus constant-type map plus vtable map a library
// publishes, consumed read-only by the loader.
type LibraryExport struct {
	Classes map[string]ExportedClass  `yaml:"classes"`
	Modules map[string]ExportedModule `yaml:"modules"`
	Consts  map[string]string         `yaml:"consts"` // const fullname -> type string
}

type ExportedClass struct {
	TyParams   []string            `yaml:"ty_params"`
	Superclass string              `yaml:"superclass"`
	Includes   []string            `yaml:"includes"`
	Ivars      []ExportedIvar      `yaml:"ivars"`
	Methods    []ExportedSignature `yaml:"methods"`
	ClassMethods []ExportedSignature `yaml:"class_methods"`
	IsFinal    bool                `yaml:"is_final"`
	Wtable     map[string][]string `yaml:"wtable"`
}

type ExportedModule struct {
	TyParams []string            `yaml:"ty_params"`
	Methods  []ExportedSignature `yaml:"methods"`
}

type ExportedIvar struct {
	Name     string `yaml:"name"`
	Ty       string `yaml:"ty"`
	Readonly bool   `yaml:"readonly"`
}

type ExportedSignature struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params"` // "name:Type" pairs, rendered
	RetTy  string   `yaml:"ret_ty"`
}

// Export serializes a SkTypes for a given set of class fullnames (the
// library's own namespace) into a LibraryExport.
func Export(d *SkTypes, fullnames []names.ClassFullname) *LibraryExport {
	out := &LibraryExport{
		Classes: map[string]ExportedClass{},
		Modules: map[string]ExportedModule{},
		Consts:  map[string]string{},
	}
	for _, fn := range fullnames {
		t, ok := d.Get(fn)
		if !ok {
			continue
		}
		if t.IsClass() {
			out.Classes[string(fn)] = exportClass(t.Class)
		} else {
			out.Modules[string(fn)] = exportModule(t.Module)
		}
	}
	for c, t := range d.Consts {
		out.Consts[string(c)] = t.String()
	}
	return out
}

func exportClass(c *SkClass) ExportedClass {
	ec := ExportedClass{IsFinal: c.IsFinal}
	for _, tp := range c.TyParams {
		ec.TyParams = append(ec.TyParams, tp.Variance.String()+tp.Name)
	}
	if c.Superclass != nil {
		ec.Superclass = string(c.Superclass.ToTermTy().Fullname())
	}
	for _, inc := range c.Includes {
		ec.Includes = append(ec.Includes, string(inc.ToTermTy().Fullname()))
	}
	for _, name := range c.IvarOrder {
		iv := c.Ivars[name]
		ec.Ivars = append(ec.Ivars, ExportedIvar{Name: name, Ty: iv.Ty.String(), Readonly: iv.Readonly})
	}
	ec.Methods = exportSignatures(c.Methods)
	ec.ClassMethods = exportSignatures(c.ClassMethods)
	if len(c.Wtable) > 0 {
		ec.Wtable = map[string][]string{}
		for mod, slots := range c.Wtable {
			var s []string
			for _, m := range slots {
				s = append(s, m.String())
			}
			ec.Wtable[string(mod)] = s
		}
	}
	return ec
}

func exportModule(m *SkModule) ExportedModule {
	em := ExportedModule{}
	for _, tp := range m.TyParams {
		em.TyParams = append(em.TyParams, tp.Variance.String()+tp.Name)
	}
	em.Methods = exportSignatures(m.Methods)
	return em
}

func exportSignatures(mm *MethodMap) []ExportedSignature {
	var out []ExportedSignature
	for _, first := range mm.Order() {
		sig, _ := mm.Get(first)
		es := ExportedSignature{Name: string(first), RetTy: sig.RetTy.String()}
		for _, p := range sig.Params {
			es.Params = append(es.Params, p.Name+":"+p.Ty.String())
		}
		out = append(out, es)
	}
	return out
}

// Marshal renders a LibraryExport as YAML.
func Marshal(le *LibraryExport) ([]byte, error) {
	return yaml.Marshal(le)
}

// Unmarshal parses YAML into a LibraryExport.
func Unmarshal(data []byte) (*LibraryExport, error) {
	var le LibraryExport
	if err := yaml.Unmarshal(data, &le); err != nil {
		return nil, err
	}
	return &le, nil
}

// Import installs a LibraryExport's entries into dict as already-resolved,
// foreign types.
func Import(dict *SkTypes, le *LibraryExport) {
	for fn, ec := range le.Classes {
		cls := &SkClass{
			Base:    newBase(names.ClassFullname(fn), nil),
			Ivars:   map[string]Ivar{},
			IsFinal: ec.IsFinal,
		}
		cls.IsForeign = true
		if ec.Superclass != "" {
			cls.Superclass = &Supertype{Fullname: names.ClassFullname(ec.Superclass)}
		}
		for _, inc := range ec.Includes {
			cls.Includes = append(cls.Includes, Supertype{Fullname: names.ClassFullname(inc)})
		}
		for i, iv := range ec.Ivars {
			cls.Ivars[iv.Name] = Ivar{Idx: i, Ty: ty.Lit(iv.Ty), Readonly: iv.Readonly}
			cls.IvarOrder = append(cls.IvarOrder, iv.Name)
		}
		importSignatures(cls.Methods, names.ClassFullname(fn), ec.Methods)
		importSignatures(cls.ClassMethods, names.ClassFullname(fn).MetaName(), ec.ClassMethods)
		dict.Add(names.ClassFullname(fn), &SkType{Class: cls})
	}
	for fn, em := range le.Modules {
		mod := &SkModule{Base: newBase(names.ClassFullname(fn), nil)}
		mod.IsForeign = true
		importSignatures(mod.Methods, names.ClassFullname(fn), em.Methods)
		dict.Add(names.ClassFullname(fn), &SkType{Module: mod})
	}
	for c, t := range le.Consts {
		if cf, err := names.NewConstFullname(c); err == nil {
			dict.AddConst(cf, ty.Lit(t))
		}
	}
}

func importSignatures(mm *MethodMap, owner names.ClassFullname, sigs []ExportedSignature) {
	for _, es := range sigs {
		sig := &Signature{
			Fullname: names.NewMethodFullname(owner, names.MethodFirstname(es.Name)),
			RetTy:    ty.Lit(es.RetTy),
		}
		for _, p := range es.Params {
			name, tyName, found := strings.Cut(p, ":")
			if !found {
				tyName = p
				name = ""
			}
			sig.Params = append(sig.Params, Param{Name: name, Ty: ty.Lit(tyName)})
		}
		mm.Add(names.MethodFirstname(es.Name), sig)
	}
}
