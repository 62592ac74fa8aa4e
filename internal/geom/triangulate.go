package geom

// Triangle is a single triangle; always planar by construction.
type Triangle [3]Point3

// FanTriangulate splits a ring into a triangle fan anchored at the first
// point, dropping degenerate slivers. Correct for convex rings and an
// acceptable last-resort decomposition for the mildly concave ones that
// survive to this stage.
func FanTriangulate(r Ring, tol float64) []Triangle {
	open := r.Dedup(tol)
	if len(open) < 3 {
		return nil
	}
	out := make([]Triangle, 0, len(open)-2)
	for i := 1; i < len(open)-1; i++ {
		t := Triangle{open[0], open[i], open[i+1]}
		ab := t[1].Sub(t[0])
		ac := t[2].Sub(t[0])
		if ab.Cross(ac).Norm() <= tol*tol {
			continue
		}
		out = append(out, t)
	}
	return out
}
