package interp

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/javelinrt/javelin/pkg/timetravel"
)

func TestBindAndGet(t *testing.T) {
	env := NewEnvironment()
	env.Bind("x", IntVal(10))

	v, ok := env.Get("x")
	if !ok || v.Int != 10 {
		t.Fatalf("Get(x) = %v, %v", v, ok)
	}
	if _, ok := env.Get("y"); ok {
		t.Fatal("Get(y) should miss")
	}

	env.Bind("x", IntVal(20))
	v, _ = env.Get("x")
	if v.Int != 20 {
		t.Fatalf("rebind lost: got %d", v.Int)
	}
	if env.Len() != 1 {
		t.Fatalf("Len = %d after rebind, want 1", env.Len())
	}
}

func TestBindingsInsertionOrder(t *testing.T) {
	env := NewEnvironment()
	env.Bind("b", IntVal(2))
	env.Bind("a", IntVal(1))
	env.Bind("b", IntVal(3)) // rebind must not reorder

	want := []timetravel.Binding{
		{Name: "b", Value: "3"},
		{Name: "a", Value: "1"},
	}
	if diff := cmp.Diff(want, env.Bindings()); diff != "" {
		t.Fatalf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestLiveObjects(t *testing.T) {
	env := NewEnvironment()

	a := StrVal("aa")
	a.ObjID = 7
	b := StrVal("bb")
	b.ObjID = 9
	env.Bind("a", a)
	env.Bind("b", b)
	env.Bind("n", IntVal(1)) // no object id

	live := env.LiveObjects()
	if len(live) != 2 || !live[7] || !live[9] {
		t.Fatalf("live = %v, want {7,9}", live)
	}

	// Rebinding drops the old reference.
	c := StrVal("cc")
	c.ObjID = 11
	env.Bind("a", c)
	live = env.LiveObjects()
	if live[7] || !live[11] {
		t.Fatalf("live after rebind = %v, want 7 gone, 11 present", live)
	}
}

func TestEnvReset(t *testing.T) {
	env := NewEnvironment()
	env.Bind("x", IntVal(1))
	env.Reset()
	if env.Len() != 0 {
		t.Fatalf("Len after Reset = %d", env.Len())
	}
	if _, ok := env.Get("x"); ok {
		t.Fatal("x survived Reset")
	}
}
