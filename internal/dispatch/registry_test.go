package dispatch

import "testing"

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Lookup("t1"); ok {
		t.Error("lookup on empty registry reported ok")
	}

	p1 := NewProgress(Pending(0))
	r.Insert("t1", p1)
	if got, ok := r.Lookup("t1"); !ok || got != p1 {
		t.Error("inserted cell not returned")
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}

	// Replacing an entry does not change the count.
	p2 := NewProgress(Pending(1))
	r.Insert("t1", p2)
	if got, _ := r.Lookup("t1"); got != p2 {
		t.Error("replacement cell not returned")
	}
	if r.Len() != 1 {
		t.Errorf("len after replace = %d, want 1", r.Len())
	}

	r.Remove("t1")
	if _, ok := r.Lookup("t1"); ok {
		t.Error("removed entry still present")
	}
	r.Remove("t1")
	if r.Len() != 0 {
		t.Errorf("len = %d, want 0", r.Len())
	}
}
