// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

package geoarrow

import (
	"errors"
	"math"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/arrowarc/geoarc/internal/testutil"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	square = orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}
	hole   = orb.Ring{{1, 1}, {2, 1}, {2, 2}, {1, 1}}
)

func readBack(t *testing.T, col *Column) []orb.Geometry {
	t.Helper()
	out := make([]orb.Geometry, col.Len)
	for i := range out {
		g, err := ValueAt(col.Array, col.Type, i)
		require.NoError(t, err)
		out[i] = g
	}
	return out
}

func TestBuilderTypedRoundTrip(t *testing.T) {
	t.Parallel()

	cases := map[GeometryType][]orb.Geometry{
		Point:           {orb.Point{1, 2}, nil, orb.Point{-3.5, 4}},
		LineString:      {orb.LineString{{0, 0}, {1, 1}}, nil, orb.LineString{}, orb.LineString{{2, 2}, {3, 3}, {4, 4}}},
		Polygon:         {orb.Polygon{square, hole}, nil, orb.Polygon{square}},
		MultiPoint:      {orb.MultiPoint{{1, 1}, {2, 2}}, orb.MultiPoint{{5, 5}}},
		MultiLineString: {orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}}, nil},
		MultiPolygon:    {orb.MultiPolygon{{square}, {square, hole}}, nil, orb.MultiPolygon{{square}}},
	}

	for typ, geoms := range cases {
		typ, geoms := typ, geoms
		t.Run(typ.String(), func(t *testing.T) {
			t.Parallel()
			b := NewBuilder(typ)
			for _, g := range geoms {
				require.NoError(t, b.Append(g))
			}
			require.Equal(t, len(geoms), b.Len())

			col := b.Finish()
			defer col.Release()
			assert.Equal(t, 0, b.Len())
			assert.Equal(t, len(geoms), col.Array.Len())
			assert.True(t, arrow.TypeEqual(DataType(typ), col.Array.DataType()))

			got := readBack(t, col)
			for i, want := range geoms {
				assert.Equal(t, want == nil, IsNull(col.Array, typ, i), "row %d", i)
				if want == nil {
					assert.Nil(t, got[i])
					continue
				}
				testutil.AssertGeometry(t, want, got[i], "row %d", i)
			}
		})
	}
}

func TestBuilderGenericRoundTrip(t *testing.T) {
	t.Parallel()

	geoms := []orb.Geometry{
		orb.Point{1, 2},
		orb.LineString{{0, 0}, {3, 3}},
		nil,
		orb.Polygon{square},
		orb.Collection{orb.Point{7, 8}, orb.MultiPoint{{1, 1}}},
		orb.MultiPolygon{{square, hole}},
		orb.Point{math.NaN(), math.NaN()},
		orb.Collection{},
	}

	b := NewBuilder(Geometry)
	for _, g := range geoms {
		require.NoError(t, b.Append(g))
	}
	col := b.Finish()
	defer col.Release()

	got := readBack(t, col)
	for i, want := range geoms {
		assert.Equal(t, want == nil, IsNull(col.Array, Geometry, i), "row %d", i)
		if want == nil {
			assert.Nil(t, got[i])
			continue
		}
		testutil.AssertGeometry(t, want, got[i], "row %d", i)
	}
}

func TestBuilderShapeMismatch(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Point)
	require.NoError(t, b.Append(orb.Point{1, 1}))

	err := b.Append(orb.LineString{{0, 0}, {1, 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.Geometry))

	var se *ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Point, se.Expected)
	assert.Equal(t, "LineString", se.Observed)
	assert.Equal(t, 1, se.Row)

	// the failed append left no trace
	assert.Equal(t, 1, b.Len())
	col := b.Finish()
	defer col.Release()
	assert.Equal(t, 1, col.Array.Len())
}

func TestBuilderRejectsNestedCollections(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Geometry)
	err := b.Append(orb.Collection{orb.Point{1, 1}, orb.Collection{orb.Point{2, 2}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.Geometry))
	assert.Equal(t, 0, b.Len())

	require.NoError(t, b.Append(orb.Collection{orb.Point{1, 1}}))
	col := b.Finish()
	defer col.Release()
	got := readBack(t, col)
	assert.Equal(t, orb.Collection{orb.Point{1, 1}}, got[0])
}

func TestBuilderBound(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Geometry)
	require.NoError(t, b.Append(orb.Point{-1, 5}))
	require.NoError(t, b.Append(nil))
	require.NoError(t, b.Append(orb.Point{math.NaN(), math.NaN()}))
	require.NoError(t, b.Append(orb.LineString{{2, -3}, {0, 0}}))
	col := b.Finish()
	defer col.Release()
	assert.Equal(t, orb.Bound{Min: orb.Point{-1, -3}, Max: orb.Point{2, 5}}, col.Bound)

	empty := NewBuilder(Point).Finish()
	defer empty.Release()
	assert.True(t, empty.Bound.IsEmpty())
	assert.Equal(t, 0, empty.Array.Len())
}

func TestParseGeometryType(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"point", "POINT", " MultiPolygon ", "geometry", ""} {
		_, err := ParseGeometryType(name)
		assert.NoError(t, err, name)
	}
	typ, _ := ParseGeometryType("MultiLineString")
	assert.Equal(t, MultiLineString, typ)

	_, err := ParseGeometryType("circle")
	assert.True(t, errors.Is(err, geoerr.Configuration))
}

func TestFieldMetadata(t *testing.T) {
	t.Parallel()

	f := Field("geom", Polygon)
	assert.True(t, f.Nullable)
	name, ok := f.Metadata.GetValue("ARROW:extension:name")
	require.True(t, ok)
	assert.Equal(t, "geoarrow.polygon", name)

	typ, ok := TypeFromField(f)
	require.True(t, ok)
	assert.Equal(t, Polygon, typ)

	_, ok = TypeFromField(arrow.Field{Name: "plain", Type: arrow.BinaryTypes.String})
	assert.False(t, ok)
}
