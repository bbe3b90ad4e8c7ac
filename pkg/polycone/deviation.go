package polycone

import (
	"math"

	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/geom"
)

// MaxDeviation reports the largest radial error between the dense table
// and the piecewise-linear profile described by reduced, which must be a
// subsequence of dense.
func MaxDeviation(dense, reduced []geom.ProfilePoint) (float64, error) {
	if len(reduced) == 0 || len(dense) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidProfile, "empty profile")
	}
	if dense[0] != reduced[0] {
		return 0, errors.New(errors.ErrCodeInvalidProfile, "reduced profile does not start at the dense profile's first sample")
	}

	worst := 0.0
	j := 1
	for _, p := range dense[1:] {
		if j < len(reduced) && p == reduced[j] {
			j++
			continue
		}
		if j >= len(reduced) {
			return 0, errors.New(errors.ErrCodeInvalidProfile, "reduced profile is not a subsequence of the dense profile")
		}
		worst = math.Max(worst, deviation(reduced[j-1], reduced[j], p))
	}
	if j != len(reduced) {
		return 0, errors.New(errors.ErrCodeInvalidProfile, "reduced profile is not a subsequence of the dense profile")
	}
	return worst, nil
}
