package cluster

import (
	"math"
	"reflect"
	"testing"
)

func points1D(xs ...float64) func(i, j int) float64 {
	return func(i, j int) float64 { return math.Abs(xs[i] - xs[j]) }
}

func TestAverageLinkageHeights(t *testing.T) {
	// 0,1 merge at 1; then {0,1} with 5 at avg(5,4)=4.5
	merges := AverageLinkage(3, points1D(0, 1, 5))
	if len(merges) != 2 {
		t.Fatalf("expected 2 merges, got %v", merges)
	}
	if merges[0].Distance != 1 || merges[1].Distance != 4.5 {
		t.Fatalf("unexpected heights: %+v", merges)
	}
	if merges[1].Size != 3 {
		t.Fatalf("final merge size=%d", merges[1].Size)
	}
}

func TestCut(t *testing.T) {
	dist := points1D(0, 0.1, 0.2, 10, 10.1, 50)
	merges := AverageLinkage(6, dist)
	cases := []struct {
		threshold float64
		want      [][]int
	}{
		{0.05, [][]int{{0}, {1}, {2}, {3}, {4}, {5}}},
		{0.3, [][]int{{0, 1, 2}, {3, 4}, {5}}},
		{100, [][]int{{0, 1, 2, 3, 4, 5}}},
	}
	for _, tc := range cases {
		got := Cut(6, merges, tc.threshold)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Cut(%v)=%v want %v", tc.threshold, got, tc.want)
		}
	}
}

func TestAverageLinkageTrivial(t *testing.T) {
	if m := AverageLinkage(1, points1D(0)); m != nil {
		t.Fatalf("single point should not merge: %v", m)
	}
	if got := Cut(1, nil, 0.3); !reflect.DeepEqual(got, [][]int{{0}}) {
		t.Fatalf("Cut single=%v", got)
	}
}
