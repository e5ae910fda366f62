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

package geojson

import (
	"errors"
	"testing"

	"github.com/arrowarc/geoarc/internal/testutil"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/paulmach/orb"
	orbgeojson "github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ring = orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}

func TestDecodeGeometryRoundTrip(t *testing.T) {
	t.Parallel()

	cases := map[string]orb.Geometry{
		"point":           orb.Point{2.35, 48.85},
		"linestring":      orb.LineString{{0, 0}, {1, 1}, {2, 0.5}},
		"polygon":         orb.Polygon{ring, {{1, 1}, {2, 1}, {2, 2}, {1, 1}}},
		"multipoint":      orb.MultiPoint{{1, 2}, {-3, 4}},
		"multilinestring": orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}}},
		"multipolygon":    orb.MultiPolygon{{ring}, {ring}},
		"collection":      orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {3, 3}}},
	}

	for name, want := range cases {
		want := want
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			data, err := orbgeojson.NewGeometry(want).MarshalJSON()
			require.NoError(t, err)

			got, err := DecodeGeometry(data)
			require.NoError(t, err, string(data))
			testutil.AssertGeometry(t, want, got, string(data))
		})
	}
}

func TestDecodeGeometryNull(t *testing.T) {
	t.Parallel()

	g, err := DecodeGeometry([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestDecodeGeometryDiscardsZ(t *testing.T) {
	t.Parallel()

	g, err := DecodeGeometry([]byte(`{"type":"Point","coordinates":[1,2,300]}`))
	require.NoError(t, err)
	assert.Equal(t, orb.Point{1, 2}, g)
}

func TestDecodeGeometryErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		doc  string
		path string
		msg  string
	}{
		{`{"type":"Point","coordinates":[1]}`, "$.coordinates", "at least 2 ordinates"},
		{`{"type":"Point","coordinates":[[1,2],[3,4]]}`, "$.coordinates[0]", "expected number, found array"},
		{`{"type":"Point","coordinates":[[1,2]]}`, "$.coordinates[0]", "coordinates nested too deeply"},
		{`{"type":"LineString","coordinates":[[[0,0]],[[1,1]]]}`, "$.coordinates[0][0]", "coordinates nested too deeply"},
		{`{"type":"LineString","coordinates":[1,2]}`, "$.coordinates[0]", "expected array, found number"},
		{`{"type":"Polygon","coordinates":[[0,0],[1,0],[1,1],[0,0]]}`, "$.coordinates[0][0]", "expected array, found number"},
		{`{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]}`, "$.coordinates[0]", "at least 4 positions"},
		{`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`, "$.coordinates[0]", "not closed"},
		{`{"type":"MultiPolygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, "$.coordinates[0][0][0]", "expected array, found number"},
		{`{"type":"MultiPoint","coordinates":[["a",1]]}`, "$.coordinates[0][0]", "expected number, found string"},
		{`{"type":"Point"}`, "$.coordinates", "expected array, found null"},
		{`{"type":"Circle","coordinates":[1,2]}`, "$.type", `unknown geometry type "Circle"`},
		{`{"coordinates":[1,2]}`, "$", `no "type" member`},
		{`[1,2]`, "$", "expected geometry object, found array"},
		{`{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1,2]},null]}`, "$.geometries[1]", "member is null"},
		{`{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1]}]}`, "$.geometries[0].coordinates", "at least 2 ordinates"},
	}

	for _, tc := range cases {
		g, err := DecodeGeometry([]byte(tc.doc))
		require.Error(t, err, tc.doc)
		assert.Nil(t, g, tc.doc)
		assert.True(t, errors.Is(err, geoerr.Parse), tc.doc)

		var pe *PathError
		require.True(t, errors.As(err, &pe), tc.doc)
		assert.Equal(t, tc.path, pe.Path, tc.doc)
		assert.Contains(t, pe.Msg, tc.msg, tc.doc)
	}
}
