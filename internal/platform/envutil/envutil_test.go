package envutil

import (
	"testing"
	"time"
)

func TestIntAndPositiveInt(t *testing.T) {
	t.Setenv("KG_TEST_INT", "7")
	if got := Int("KG_TEST_INT", 1); got != 7 {
		t.Fatalf("Int=%d want 7", got)
	}
	t.Setenv("KG_TEST_INT", "nope")
	if got := Int("KG_TEST_INT", 3); got != 3 {
		t.Fatalf("Int on garbage=%d want default 3", got)
	}
	t.Setenv("KG_TEST_INT", "0")
	if got := PositiveInt("KG_TEST_INT", 4); got != 4 {
		t.Fatalf("PositiveInt on zero=%d want default 4", got)
	}
}

func TestBool(t *testing.T) {
	cases := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"off", true, false},
		{"YES", false, true},
		{"maybe", true, true},
	}
	for _, tc := range cases {
		t.Setenv("KG_TEST_BOOL", tc.raw)
		if got := Bool("KG_TEST_BOOL", tc.def); got != tc.want {
			t.Fatalf("Bool(%q, %v)=%v want %v", tc.raw, tc.def, got, tc.want)
		}
	}
}

func TestFloatStringSeconds(t *testing.T) {
	t.Setenv("KG_TEST_FLOAT", "0.25")
	if got := Float("KG_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float=%v", got)
	}
	t.Setenv("KG_TEST_STR", "  x  ")
	if got := String("KG_TEST_STR", "d"); got != "x" {
		t.Fatalf("String=%q", got)
	}
	t.Setenv("KG_TEST_SECS", "-2")
	if got := Seconds("KG_TEST_SECS", 5); got != 5*time.Second {
		t.Fatalf("Seconds=%v", got)
	}
}
