package pointers

import "testing"

func TestPtrAndDeref(t *testing.T) {
	v := 0.5
	p := Ptr(v)
	v = 0.9
	if *p != 0.5 {
		t.Fatalf("Ptr must copy, got %v", *p)
	}
	if got := Deref(p, 0); got != 0.5 {
		t.Fatalf("Deref = %v", got)
	}
	var nilBool *bool
	if Deref(nilBool, true) != true {
		t.Fatalf("Deref(nil) should return the default")
	}
}
