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

package csv

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/record"
	"github.com/arrowarc/geoarc/pkg/schema"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, e *Extractor) []*record.Record {
	t.Helper()
	var out []*record.Record
	for {
		rec, err := e.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestExtractRows(t *testing.T) {
	t.Parallel()

	data := "name,wkt,pop\nParis,POINT(2.35 48.85),2100000\nNowhere,,\n"
	e, err := NewExtractor(strings.NewReader(data), DefaultCSVReadOptions("wkt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "wkt", "pop"}, e.Header())
	assert.Equal(t, 1, e.GeometryIndex())

	recs := drain(t, e)
	require.Len(t, recs, 2)

	assert.Equal(t, orb.Point{2.35, 48.85}, recs[0].Geometry)
	assert.Nil(t, recs[1].Geometry)

	name, ok := recs[0].Properties.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Paris", name.StringVal())
	pop, _ := recs[0].Properties.Get("pop")
	assert.Equal(t, int64(2100000), pop.IntegerVal())
	pop, _ = recs[1].Properties.Get("pop")
	assert.True(t, pop.IsNull())

	_, ok = recs[0].Properties.Get("wkt")
	assert.False(t, ok)

	assert.Equal(t, 2, recs[0].Pos.Line)
	assert.Equal(t, 1, recs[0].Pos.Record)
	assert.Equal(t, 3, recs[1].Pos.Line)
}

func TestExtractWithoutHeader(t *testing.T) {
	t.Parallel()

	opts := &CSVReadOptions{Delimiter: ';', GeometryColumn: "column_1"}
	e, err := NewExtractor(strings.NewReader("a;POINT(1 1)\nb;POINT(2 2)\n"), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"column_0", "column_1"}, e.Header())

	recs := drain(t, e)
	require.Len(t, recs, 2)
	v, _ := recs[0].Properties.Get("column_0")
	assert.Equal(t, "a", v.StringVal())
	assert.Equal(t, orb.Point{2, 2}, recs[1].Geometry)
}

func TestExtractGeometryColumnRequired(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor(strings.NewReader("a,b\n"), &CSVReadOptions{HasHeader: true})
	assert.True(t, errors.Is(err, geoerr.Configuration))

	_, err = NewExtractor(strings.NewReader("a,b\n"), nil)
	assert.True(t, errors.Is(err, geoerr.Configuration))

	_, err = NewExtractor(strings.NewReader("a,b\n1,2\n"), DefaultCSVReadOptions("geom"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.Configuration))
	assert.Contains(t, err.Error(), `"geom"`)
}

func TestExtractBadWKTCarriesPosition(t *testing.T) {
	t.Parallel()

	opts := DefaultCSVReadOptions("geom")
	opts.Locator = "cities.csv"
	data := "id,geom\n1,POINT(1 1)\n2,POINT(1 x)\n"
	e, err := NewExtractor(strings.NewReader(data), opts)
	require.NoError(t, err)

	_, err = e.Next()
	require.NoError(t, err)
	_, err = e.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.Parse))

	var ge *geoerr.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "cities.csv", ge.Locator)
	assert.Equal(t, 3, ge.Pos.Line)
	assert.Equal(t, 2, ge.Pos.Record)
	assert.Equal(t, "geom", ge.Pos.Field)
}

func TestExtractMalformedRow(t *testing.T) {
	t.Parallel()

	e, err := NewExtractor(strings.NewReader("id,geom\n1,POINT(1 1)\n2,\"POINT(2 2)\n"), DefaultCSVReadOptions("geom"))
	require.NoError(t, err)
	_, err = e.Next()
	require.NoError(t, err)
	_, err = e.Next()
	assert.True(t, errors.Is(err, geoerr.Parse))
}

func TestExtractLimit(t *testing.T) {
	t.Parallel()

	opts := DefaultCSVReadOptions("geom")
	opts.Limit = 2
	e, err := NewExtractor(strings.NewReader("geom\nPOINT(0 0)\nPOINT(1 1)\nPOINT(2 2)\n"), opts)
	require.NoError(t, err)
	assert.Len(t, drain(t, e), 2)
}

func TestInferValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		token string
		want  record.Type
	}{
		{"42", record.Integer},
		{"-7", record.Integer},
		{"4.2", record.Float},
		{"1e3", record.Float},
		{"99999999999999999999", record.Float},
		{"TRUE", record.Bool},
		{"false", record.Bool},
		{"NaN", record.String},
		{"Inf", record.String},
		{"1_000", record.String},
		{"0x1p-2", record.String},
		{"-0X10", record.String},
		{"+1.5", record.Float},
		{"Paris", record.String},
		{"12 Main St", record.String},
		{"", record.Null},
		{"NA", record.Null},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InferValue(tc.token, []string{"NA"}).Type(), tc.token)
	}

	v := InferValue("007", nil)
	assert.Equal(t, int64(7), v.IntegerVal())
	assert.Equal(t, "007", v.String())
}

func TestInferCSVSchema(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("name,value,geom\n")
	for i := 0; i < 9; i++ {
		sb.WriteString("a,42,POINT(1 1)\n")
	}
	sb.WriteString("b,4.2,POINT(2 2)\n")

	s, err := InferCSVSchema(context.Background(), strings.NewReader(sb.String()), DefaultCSVReadOptions("geom"), 0, geoarrow.Point)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "value", "geom"}, s.Names())
	assert.Equal(t, schema.String, s.Columns[0].Type)
	assert.Equal(t, schema.Float, s.Columns[1].Type)
	assert.Equal(t, schema.Geometry, s.Columns[2].Type)
	assert.Equal(t, geoarrow.Point, s.Columns[2].GeometryType)
}

func TestInferCSVSchemaAbortsOnParseError(t *testing.T) {
	t.Parallel()

	_, err := InferCSVSchema(context.Background(), strings.NewReader("geom\nPOINT(\n"), DefaultCSVReadOptions("geom"), 10, geoarrow.Geometry)
	assert.True(t, errors.Is(err, geoerr.Parse))
}

func TestExtractRejectsDuplicateHeader(t *testing.T) {
	t.Parallel()

	opts := DefaultCSVReadOptions("geom")
	opts.Locator = "dup.csv"
	_, err := NewExtractor(strings.NewReader("a,a,geom\n1,x,POINT(1 1)\n"), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.Configuration))
	assert.Contains(t, err.Error(), `duplicate column "a"`)

	var ge *geoerr.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "dup.csv", ge.Locator)
	assert.Equal(t, "a", ge.Pos.Field)

	_, err = InferCSVSchema(context.Background(), strings.NewReader("geom,b,geom\nPOINT(0 0),1,POINT(1 1)\n"), DefaultCSVReadOptions("geom"), 0, geoarrow.Geometry)
	assert.True(t, errors.Is(err, geoerr.Configuration))
}
