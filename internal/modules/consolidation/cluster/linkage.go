package cluster

import (
	"math"
	"sort"
)

// Merge joins the clusters represented by slots A and B at the given average
// distance. After the merge the cluster lives in slot A.
type Merge struct {
	A, B     int
	Distance float64
	Size     int
}

// AverageLinkage runs agglomerative clustering with UPGMA distances using the
// nearest-neighbor chain algorithm. distance must be symmetric; it is read once per
// pair. Merges come back sorted by distance.
func AverageLinkage(n int, distance func(i, j int) float64) []Merge {
	if n < 2 {
		return nil
	}
	d := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := distance(i, j)
			d[i*n+j] = v
			d[j*n+i] = v
		}
	}
	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}
	merges := make([]Merge, 0, n-1)
	chain := make([]int, 0, n)
	remaining := n

	for remaining > 1 {
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}
		for {
			a := chain[len(chain)-1]
			prev := -1
			best, bestD := -1, math.Inf(1)
			if len(chain) >= 2 {
				prev = chain[len(chain)-2]
				best, bestD = prev, d[a*n+prev]
			}
			for b := 0; b < n; b++ {
				if b == a || !active[b] {
					continue
				}
				if v := d[a*n+b]; v < bestD {
					best, bestD = b, v
				}
			}
			if best == prev {
				chain = chain[:len(chain)-2]
				keep, drop := a, prev
				if drop < keep {
					keep, drop = drop, keep
				}
				total := size[keep] + size[drop]
				for k := 0; k < n; k++ {
					if !active[k] || k == keep || k == drop {
						continue
					}
					v := (float64(size[keep])*d[keep*n+k] + float64(size[drop])*d[drop*n+k]) / float64(total)
					d[keep*n+k] = v
					d[k*n+keep] = v
				}
				size[keep] = total
				active[drop] = false
				merges = append(merges, Merge{A: keep, B: drop, Distance: bestD, Size: total})
				remaining--
				break
			}
			chain = append(chain, best)
		}
	}
	sort.SliceStable(merges, func(i, j int) bool { return merges[i].Distance < merges[j].Distance })
	return merges
}

// Cut returns the flat clusters formed by every merge at distance <= threshold.
// Clusters are ordered by their lowest member; members ascend.
func Cut(n int, merges []Merge, threshold float64) [][]int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	const eps = 1e-12
	for _, m := range merges {
		if m.Distance > threshold+eps {
			continue
		}
		ra, rb := find(m.A), find(m.B)
		if ra == rb {
			continue
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}
	groups := map[int][]int{}
	order := []int{}
	for i := 0; i < n; i++ {
		r := find(i)
		if _, ok := groups[r]; !ok {
			order = append(order, r)
		}
		groups[r] = append(groups[r], i)
	}
	out := make([][]int, 0, len(order))
	for _, r := range order {
		out = append(out, groups[r])
	}
	return out
}
