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

package generator

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShapes(t *testing.T) {
	t.Parallel()

	features := Generate(9, geoarrow.Geometry)
	require.Len(t, features, 9)
	for i, f := range features {
		assert.EqualValues(t, i, f.ID)
		assert.NotEmpty(t, f.Name)
		assert.Contains(t, f.Email, "@")
		switch i % 3 {
		case 0:
			assert.IsType(t, orb.Point{}, f.Geometry)
		case 1:
			assert.IsType(t, orb.LineString{}, f.Geometry)
		case 2:
			p, ok := f.Geometry.(orb.Polygon)
			require.True(t, ok)
			assert.Equal(t, p[0][0], p[0][len(p[0])-1])
		}
	}

	for _, f := range Generate(3, geoarrow.MultiPoint) {
		assert.IsType(t, orb.MultiPoint{}, f.Geometry)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Generate(5, geoarrow.LineString)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"id", "name", "email", "score", "active", GeometryColumnCSV}, rows[0])
	for _, row := range rows[1:] {
		assert.True(t, strings.HasPrefix(row[5], "LINESTRING("), row[5])
	}
}

func TestGenerateFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	seq := filepath.Join(dir, "f.geojsonl")
	require.NoError(t, GenerateFile(seq, FormatGeoJSONSeq, 4, geoarrow.Point))
	data, err := os.ReadFile(seq)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))

	fc := filepath.Join(dir, "f.geojson")
	require.NoError(t, GenerateFile(fc, FormatGeoJSON, 4, geoarrow.Point))
	data, err = os.ReadFile(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)

	assert.Error(t, GenerateFile(filepath.Join(dir, "f.kml"), "kml", 1, geoarrow.Point))
}
