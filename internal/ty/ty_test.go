package ty

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestLitFullname(t *testing.T) {
	arr := Lit("Array", Int)
	if arr.Fullname() != "Array<Int>" {
		t.Fatalf("got %q", arr.Fullname())
	}
	meta := arr.MetaTy()
	if meta.Fullname() != "Meta:Array<Int>" {
		t.Fatalf("got %q", meta.Fullname())
	}
	if meta.InstanceTy().Fullname() != arr.Fullname() {
		t.Fatal("InstanceTy should invert MetaTy")
	}
}

func TestErasure(t *testing.T) {
	arr := Lit("Array", Int)
	if arr.Erasure().Fullname() != "Array" {
		t.Fatalf("got %q", arr.Erasure().Fullname())
	}
}

func TestSameBase(t *testing.T) {
	a := Lit("Array", Int)
	b := Lit("Array", String)
	if !a.SameBase(b) {
		t.Fatal("expected same base ignoring type args")
	}
	if a.SameBase(Lit("List", Int)) {
		t.Fatal("expected different base")
	}
}

func TestSubstituteClassParamRef(t *testing.T) {
	ref := ParamRef(ClassParam, "T", 0, nil, nil)
	wrapped := Lit("Array", ref)
	sub := Substitution{ClassArgs: []TermTy{Int}}
	got := wrapped.Substitute(sub)
	want := Lit("Array", Int)
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(TermTy{})); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSubstituteOutOfRangeLeavesRef(t *testing.T) {
	ref := ParamRef(MethodParam, "U", 2, nil, nil)
	sub := Substitution{MethodArgs: []TermTy{Int}}
	got := ref.Substitute(sub)
	if !got.IsTyParamRef() || got.ParamName != "U" {
		t.Fatalf("expected ref left unsubstituted, got %v", got)
	}
}

func TestMetaMetaclassCollapse(t *testing.T) {
	mc := Lit("Metaclass")
	if mc.MetaTy().Fullname() != "Metaclass" {
		t.Fatalf("Meta:Metaclass should collapse, got %q", mc.MetaTy().Fullname())
	}
}
