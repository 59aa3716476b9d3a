package names

import "testing"

func TestClassFullnameInvariants(t *testing.T) {
	if _, err := NewClassFullname("::A"); err == nil {
		t.Fatal("expected error for leading ::")
	}
	if _, err := NewClassFullname("Meta:Meta:A"); err == nil {
		t.Fatal("expected error for Meta:Meta:")
	}
	mc, err := NewClassFullname("Meta:Metaclass")
	if err != nil || mc != "Metaclass" {
		t.Fatalf("Meta:Metaclass should collapse to Metaclass, got %q err=%v", mc, err)
	}
}

func TestMetaNameRoundTrip(t *testing.T) {
	c := ClassFullname("A::B")
	m := c.MetaName()
	if m != "Meta:A::B" {
		t.Fatalf("got %q", m)
	}
	if m.InstanceName() != c {
		t.Fatalf("got %q", m.InstanceName())
	}
	if m.MetaName() != m {
		t.Fatalf("MetaName on a metaclass should be idempotent, got %q", m.MetaName())
	}
}

func TestBase(t *testing.T) {
	c := ClassFullname("A::B::C")
	if c.Base() != "C" {
		t.Fatalf("got %q", c.Base())
	}
	if ClassFullname("Meta:A::B").Base() != "B" {
		t.Fatalf("got %q", ClassFullname("Meta:A::B").Base())
	}
}

func TestMethodFullname(t *testing.T) {
	mf := NewMethodFullname("A::B", "foo")
	if mf.String() != "A::B#foo" {
		t.Fatalf("got %q", mf.String())
	}
}

func TestConstFullname(t *testing.T) {
	if _, err := NewConstFullname("A::B"); err == nil {
		t.Fatal("expected error for missing ::")
	}
	cf, err := NewConstFullname("::A::B")
	if err != nil || cf.String() != "::A::B" {
		t.Fatalf("got %q err=%v", cf, err)
	}
}

func TestNamespacePrefixes(t *testing.T) {
	ns := NewNamespace("A", "B", "C")
	prefixes := ns.Prefixes()
	want := []string{"A::B::C", "A::B", "A", ""}
	if len(prefixes) != len(want) {
		t.Fatalf("got %d prefixes, want %d", len(prefixes), len(want))
	}
	for i, p := range prefixes {
		if p.String() != want[i] {
			t.Fatalf("prefix %d: got %q want %q", i, p.String(), want[i])
		}
	}
}

func TestNamespaceQualify(t *testing.T) {
	ns := NewNamespace("A", "B")
	if ns.Qualify("C") != "A::B::C" {
		t.Fatalf("got %q", ns.Qualify("C"))
	}
	if NewNamespace().Qualify("C") != "C" {
		t.Fatalf("got %q", NewNamespace().Qualify("C"))
	}
}

func TestModuleKeyDeterministic(t *testing.T) {
	a := ModuleKey("A::M")
	b := ModuleKey("A::M")
	if a != b {
		t.Fatalf("ModuleKey must be deterministic: %d != %d", a, b)
	}
	if a == ModuleKey("A::N") {
		t.Fatal("distinct module names should not collide in this test vector")
	}
}
