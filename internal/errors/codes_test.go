package errors

import "testing"

func TestRegistryCoversKind(t *testing.T) {
	for code, info := range Registry {
		if info.Code != code {
			t.Errorf("registry key %s does not match Info.Code %s", code, info.Code)
		}
		if info.Kind.String() == "UnknownError" {
			t.Errorf("code %s has unrecognized Kind", code)
		}
	}
}

func TestNewLooksUpKind(t *testing.T) {
	r := New(TYP004, Span{File: "x.sk", Line: 1, Column: 2}, "no common ancestor of %s and %s", "Int", "String")
	if r.Kind != Type {
		t.Fatalf("expected Kind Type, got %v", r.Kind)
	}
	if r.Code != TYP004 {
		t.Fatalf("expected code %s, got %s", TYP004, r.Code)
	}
	want := "x.sk:1:2 [TYP004] TypeError: no common ancestor of Int and String"
	if r.Error() != want {
		t.Fatalf("got %q want %q", r.Error(), want)
	}
}

func TestWithNoteAppends(t *testing.T) {
	r := New(NAM006, Span{}, "missing required method foo").WithNote("required by module M")
	if len(r.Notes) != 1 || r.Notes[0] != "required by module M" {
		t.Fatalf("unexpected notes: %v", r.Notes)
	}
}
