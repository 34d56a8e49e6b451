package resource

import "testing"

type closer struct{ dropped *int }

func (c closer) Drop() { *c.dropped++ }

func TestObjects(t *testing.T) {
	objs := NewObjects()

	a, err := objs.Insert("Address", "1 Main St")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := objs.Insert("PersonInfo", 42)
	if a == 0 || a == b {
		t.Fatalf("ids = %d, %d", a, b)
	}

	if v, ok := Lookup[string](objs, a, "Address"); !ok || v != "1 Main St" {
		t.Errorf("Lookup = %q, %v", v, ok)
	}
	if _, ok := objs.Get(a, "PersonInfo"); ok {
		t.Error("Get with wrong type should fail")
	}
	if _, ok := Lookup[int](objs, a, "Address"); ok {
		t.Error("Lookup with wrong Go type should fail")
	}
	if _, ok := objs.Get(0, "Address"); ok {
		t.Error("id 0 must be invalid")
	}

	if _, ok := objs.Drop(a, "Address"); !ok {
		t.Fatal("Drop failed")
	}
	if _, ok := objs.Drop(a, "Address"); ok {
		t.Error("second Drop should fail")
	}
	if objs.Len() != 1 {
		t.Errorf("Len = %d, want 1", objs.Len())
	}

	c, _ := objs.Insert("Address", "reused")
	if c != a {
		t.Errorf("freed id not reused: %d vs %d", c, a)
	}

	seen := 0
	objs.Each(func(uint64, string, any) bool { seen++; return true })
	if seen != 2 {
		t.Errorf("Each visited %d, want 2", seen)
	}
}

func TestObjectsDropper(t *testing.T) {
	objs := NewObjects()
	n := 0
	id, _ := objs.Insert("C", closer{dropped: &n})
	_, _ = objs.Insert("C", closer{dropped: &n})

	objs.Drop(id, "C")
	if n != 1 {
		t.Errorf("dropped = %d, want 1", n)
	}
	if err := objs.Close(); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("dropped = %d after Close, want 2", n)
	}
	if _, err := objs.Insert("C", nil); err != ErrClosed {
		t.Errorf("Insert after Close = %v", err)
	}
}
