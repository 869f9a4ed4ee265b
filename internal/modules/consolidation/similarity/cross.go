package similarity

// CrossMatrix holds similarities of every item in set A against every item in set B.
type CrossMatrix struct {
	rows, cols int
	data       []float64
	validA     []bool
	validB     []bool
}

// Cross computes A×B similarities from raw vectors.
func Cross(a, b [][]float32) (*CrossMatrix, error) {
	ua, va := Normalize(a)
	ub, vb := Normalize(b)
	all := append(append([][]float64{}, ua...), ub...)
	allValid := append(append([]bool{}, va...), vb...)
	if _, err := dimension(all, allValid); err != nil {
		return nil, err
	}
	c := &CrossMatrix{rows: len(a), cols: len(b), data: make([]float64, len(a)*len(b)), validA: va, validB: vb}
	for i := range a {
		for j := range b {
			s := Excluded
			if va[i] && vb[j] {
				s = clamp(dot(ua[i], ub[j]))
			}
			c.data[i*c.cols+j] = s
		}
	}
	return c, nil
}

func (c *CrossMatrix) Rows() int { return c.rows }
func (c *CrossMatrix) Cols() int { return c.cols }

func (c *CrossMatrix) At(i, j int) float64 { return c.data[i*c.cols+j] }

func (c *CrossMatrix) usable(i, j int) bool {
	return c.validA[i] && c.validB[j] && c.data[i*c.cols+j] > Excluded
}

// BestFor returns the best column for row i.
func (c *CrossMatrix) BestFor(i int) (int, float64, bool) {
	bestJ, best, ok := -1, 0.0, false
	for j := 0; j < c.cols; j++ {
		if !c.usable(i, j) {
			continue
		}
		s := c.At(i, j)
		if !ok || s > best {
			bestJ, best, ok = j, s, true
		}
	}
	return bestJ, best, ok
}

// Best returns the globally highest pair. Ties go to the lowest row, then column.
func (c *CrossMatrix) Best() (int, int, float64, bool) {
	bi, bj, best, ok := -1, -1, 0.0, false
	for i := 0; i < c.rows; i++ {
		j, s, has := c.BestFor(i)
		if !has {
			continue
		}
		if !ok || s > best {
			bi, bj, best, ok = i, j, s, true
		}
	}
	return bi, bj, best, ok
}

// Mean averages every comparable pair. ok is false when no pair is comparable.
func (c *CrossMatrix) Mean() (float64, bool) {
	var sum float64
	n := 0
	for i := 0; i < c.rows; i++ {
		for j := 0; j < c.cols; j++ {
			if !c.usable(i, j) {
				continue
			}
			sum += c.At(i, j)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
