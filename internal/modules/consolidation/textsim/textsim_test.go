package textsim

import (
	"math"
	"testing"
)

func TestKeywords(t *testing.T) {
	got := Keywords("The Mixer and the EQ: mixing-desk for audio, with 2 faders")
	for _, w := range []string{"mixer", "mixing", "desk", "audio", "faders"} {
		if !got[w] {
			t.Fatalf("missing keyword %q in %v", w, got)
		}
	}
	for _, w := range []string{"the", "and", "for", "with", "eq"} {
		if got[w] {
			t.Fatalf("unexpected keyword %q", w)
		}
	}
}

func TestSharesKeyword(t *testing.T) {
	a := Keywords("audio mixer")
	if !SharesKeyword(a, Keywords("Mixer channel")) {
		t.Fatalf("expected overlap")
	}
	if SharesKeyword(a, Keywords("the and for")) {
		t.Fatalf("stop words must not overlap")
	}
}

func TestTopKeywords(t *testing.T) {
	got := TopKeywords([]string{"audio mixer", "audio compressor", "mixer audio gain"}, 2)
	if len(got) != 2 || got[0].Word != "audio" || got[0].Count != 3 || got[1].Word != "mixer" {
		t.Fatalf("TopKeywords=%v", got)
	}
}

func TestMinPairwise(t *testing.T) {
	cases := []struct {
		name string
		docs []string
		lo   float64
		hi   float64
	}{
		{"single", []string{"x"}, 1, 1},
		{"all empty", []string{"", "  "}, 1, 1},
		{"identical", []string{"audio mixing desk", "audio mixing desk"}, 0.999, 1.0001},
		{"disjoint", []string{"audio mixing desk", "river delta sediment"}, 0, 0.0001},
		{"empty vs text", []string{"", "audio mixing desk"}, 0, 0.0001},
	}
	for _, tc := range cases {
		got := MinPairwise(tc.docs)
		if got < tc.lo || got > tc.hi || math.IsNaN(got) {
			t.Fatalf("%s: MinPairwise=%v want in [%v,%v]", tc.name, got, tc.lo, tc.hi)
		}
	}
}

func TestCooccurrenceSampleDeterministic(t *testing.T) {
	texts := []string{"audio mixer", "audio gain", "river delta", "delta sediment", "mixer gain"}
	a := CooccurrenceSample(texts, 200, 7)
	b := CooccurrenceSample(texts, 200, 7)
	if a != b {
		t.Fatalf("same seed gave different samples: %+v vs %+v", a, b)
	}
	if a.Sampled != 200 || a.Rate <= 0 || a.Rate >= 1 {
		t.Fatalf("unexpected report: %+v", a)
	}
}
