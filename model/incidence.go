package model

import (
	"gonum.org/v1/gonum/mat"
)

// BuildIncidence accepts exactly one of an N×J incidence matrix or a
// membership list (group index per unit) and derives the other.
func BuildIncidence(delta mat.Matrix, membership []int, N, J int) (*mat.Dense, []int, error) {
	if delta == nil && membership == nil {
		return nil, nil, configErrorf("One of Delta or membership must be supplied")
	}
	if delta != nil && membership != nil {
		return nil, nil, configErrorf("Only one of Delta or membership may be supplied")
	}
	if N < 1 || J < 1 {
		return nil, nil, configErrorf("Invalid unit/group counts N=%d J=%d", N, J)
	}

	if membership != nil {
		if len(membership) != N {
			return nil, nil, configErrorf("Membership has %d entries but there are %d units", len(membership), N)
		}
		out := mat.NewDense(N, J, nil)
		for i, g := range membership {
			if g < 0 || g >= J {
				return nil, nil, configErrorf("Unit %d has group %d outside [0, %d)", i, g, J)
			}
			out.Set(i, g, 1)
		}
		return out, append([]int(nil), membership...), nil
	}

	r, c := delta.Dims()
	if r != N || c != J {
		return nil, nil, configErrorf("Delta is %dx%d but expected %dx%d", r, c, N, J)
	}

	out := mat.DenseCopyOf(delta)
	members := make([]int, N)
	for i := 0; i < N; i++ {
		found := -1
		for j := 0; j < J; j++ {
			switch v := out.At(i, j); v {
			case 0:
			case 1:
				if found >= 0 {
					return nil, nil, configErrorf("Unit %d belongs to groups %d and %d", i, found, j)
				}
				found = j
			default:
				return nil, nil, configErrorf("Delta[%d,%d] = %v is not binary", i, j, v)
			}
		}
		if found < 0 {
			return nil, nil, configErrorf("Unit %d belongs to no group", i)
		}
		members[i] = found
	}

	return out, members, nil
}
