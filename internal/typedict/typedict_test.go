package typedict_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/parser"
	"github.com/shiika-lang/shiika-go/internal/ty"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

func indexSrc(t *testing.T, src string) *typedict.SkTypes {
	t.Helper()
	p := parser.New([]byte(src), "test.sk")
	prog, perr := p.ParseProgram()
	require.Nil(t, perr, "parse error: %v", perr)
	dict, ierr := typedict.Index(prog)
	require.Nil(t, ierr, "index error: %v", ierr)
	return dict
}

// A class with one method gets an auto-synthesized `new`.
func TestIndexSynthesizesNew(t *testing.T) {
	dict := indexSrc(t, `
class A
  def foo -> Int
    1
  end
end
`)
	skt, ok := dict.Get("A")
	require.True(t, ok, "class A not found")
	require.True(t, skt.IsClass())
	_, ok = skt.Class.Methods.Get("foo")
	assert.True(t, ok, "A#foo not indexed")
	_, ok = skt.Class.ClassMethods.Get("new")
	assert.True(t, ok, "Meta:A#new not synthesized")
}

// A covariant type parameter admits widening through the ancestor chain.
func TestCovariantSubclassConforms(t *testing.T) {
	dict := indexSrc(t, `
class A<out T>
end
class B : A<Int>
end
`)
	aInt := ty.Lit("A", ty.Int)
	aObj := ty.Lit("A", ty.Object)
	b := ty.Lit("B")
	assert.True(t, typedict.Conforms(dict, b, aInt), "B should conform to A<Int>")
	// Covariance declared with `out` admits A<Int> <: A<Object>, and so
	// B <: A<Object> through the ancestor chain.
	assert.True(t, typedict.Conforms(dict, aInt, aObj), "A<Int> should conform to A<Object> under covariance")
	assert.True(t, typedict.Conforms(dict, b, aObj), "B should conform to A<Object> under covariance")
	assert.False(t, typedict.Conforms(dict, aObj, aInt), "A<Object> must not conform to A<Int>")
}

// Witness table construction: C#foo fills M's single slot.
func TestWitnessTableConstruction(t *testing.T) {
	dict := indexSrc(t, `
module M
  requirement def foo -> Int
end
class C : M
  def foo -> Int
    1
  end
end
`)
	c, ok := dict.Get("C")
	require.True(t, ok, "class C not found")
	slots, ok := c.Class.Wtable["M"]
	require.True(t, ok, "no wtable entry for module M")
	require.Len(t, slots, 1)
	assert.Equal(t, "C#foo", slots[0].String())
}

func TestMissingRequirementIsAnError(t *testing.T) {
	p := parser.New([]byte(`
module M
  requirement def foo -> Int
end
class C : M
end
`), "test.sk")
	prog, perr := p.ParseProgram()
	require.Nil(t, perr, "parse error: %v", perr)
	_, err := typedict.Index(prog)
	require.NotNil(t, err, "expected missing-required-method error")
	assert.Equal(t, "NAM006", err.Code)
}

func TestEnumCasesIndexed(t *testing.T) {
	dict := indexSrc(t, `
enum E
  case None
  case Some(v: Int)
end
`)
	noneT, ok := dict.Get("E::None")
	require.True(t, ok, "E::None not indexed")
	assert.True(t, noneT.Class.ConstIsObj, "E::None should be a value-class singleton")
	someT, ok := dict.Get("E::Some")
	require.True(t, ok, "E::Some not indexed")
	_, ok = someT.Class.Ivars["v"]
	assert.True(t, ok, "E::Some should have ivar v")
}

// A library export survives the YAML round trip and installs back as a
// resolvable foreign class.
func TestLibraryExportRoundTrip(t *testing.T) {
	dict := indexSrc(t, `
class A
  def foo(n: Int) -> Int
    n
  end
end
`)
	le := typedict.Export(dict, []names.ClassFullname{"A"})
	data, err := typedict.Marshal(le)
	require.NoError(t, err)
	le2, err := typedict.Unmarshal(data)
	require.NoError(t, err)
	fresh := typedict.New()
	typedict.Import(fresh, le2)
	skt, ok := fresh.Get("A")
	require.True(t, ok, "A not imported")
	require.True(t, skt.IsClass())
	assert.True(t, skt.Class.IsForeign, "imported classes are foreign")
	sig, ok := skt.Class.Methods.Get("foo")
	require.True(t, ok, "A#foo not imported")
	require.Len(t, sig.Params, 1)
	assert.Equal(t, "n", sig.Params[0].Name)
	assert.Equal(t, "Int", sig.Params[0].Ty.String())
	assert.Equal(t, "Int", sig.RetTy.String())
}

func TestNearestCommonAncestorOfUnrelatedClassesIsNone(t *testing.T) {
	dict := indexSrc(t, `
class A
end
class B
end
`)
	_, ok := typedict.NCA(dict, ty.Lit("A"), ty.Lit("B"))
	assert.False(t, ok, "NCA of two unrelated classes should report none")
}
