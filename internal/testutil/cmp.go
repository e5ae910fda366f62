package testutil

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

// OrdinateTolerance is the absolute tolerance applied to coordinates.
const OrdinateTolerance = 1e-9

// GeometryOptions compares orb geometries: NaN ordinates (empty points) are
// equal, coordinates match within OrdinateTolerance and nil slices equal
// empty ones.
func GeometryOptions() cmp.Options {
	return cmp.Options{
		cmpopts.EquateNaNs(),
		cmpopts.EquateApprox(0, OrdinateTolerance),
		cmpopts.EquateEmpty(),
	}
}

// GeometryDiff reports the differences between two geometries, (-want +got).
func GeometryDiff(want, got orb.Geometry, opts ...cmp.Option) string {
	return cmp.Diff(want, got, append(cmp.Options{GeometryOptions()}, opts...)...)
}

// AssertGeometry fails t when got differs from want.
func AssertGeometry(t assert.TestingT, want, got orb.Geometry, msgAndArgs ...interface{}) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if diff := GeometryDiff(want, got); diff != "" {
		return assert.Fail(t, "geometry mismatch (-want +got):\n"+diff, msgAndArgs...)
	}
	return true
}
