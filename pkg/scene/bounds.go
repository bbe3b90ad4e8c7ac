package scene

import "github.com/chazu/detgeom/pkg/geom"

func corners(lo, hi [3]float64) []geom.Vec {
	out := make([]geom.Vec, 0, 8)
	for i := 0; i < 8; i++ {
		c := geom.Vec{X: lo[0], Y: lo[1], Z: lo[2]}
		if i&1 != 0 {
			c.X = hi[0]
		}
		if i&2 != 0 {
			c.Y = hi[1]
		}
		if i&4 != 0 {
			c.Z = hi[2]
		}
		out = append(out, c)
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Bounds returns the world-frame bounding box of every placed volume.
func (w *World) Bounds() (lo, hi geom.Vec, ok bool) {
	_ = w.Walk(func(p *Placement, global geom.Transform, _ int) error {
		a, b := p.volume.solid.shape.BoundingBox()
		for _, c := range corners(a, b) {
			q := global.Apply(c)
			if !ok {
				lo, hi, ok = q, q, true
				continue
			}
			lo = geom.Vec{X: min(lo.X, q.X), Y: min(lo.Y, q.Y), Z: min(lo.Z, q.Z)}
			hi = geom.Vec{X: max(hi.X, q.X), Y: max(hi.Y, q.Y), Z: max(hi.Z, q.Z)}
		}
		return nil
	})
	return lo, hi, ok
}
