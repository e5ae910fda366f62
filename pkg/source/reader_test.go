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

package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrowarc/geoarc/generator"
	"github.com/arrowarc/geoarc/internal/storage"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/schema"
	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeFeatures(t *testing.T, name, format string, rows int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, generator.GenerateFile(path, format, rows, geoarrow.Geometry))
	return path
}

// readAll drains r and returns the row count of every batch.
func readAll(t *testing.T, r *Reader) []int64 {
	t.Helper()
	var sizes []int64
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return sizes
		}
		require.NoError(t, err)
		sizes = append(sizes, rec.NumRows())
		rec.Release()
	}
}

func TestReaderCSVSingleRowBatches(t *testing.T) {
	t.Parallel()

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	path := writeFile(t, "cities.csv", "name,geometry\nParis,POINT(2.35 48.85)\nNowhere,\n")
	r, err := NewReader(context.Background(), Options{
		Driver:         DriverCSV,
		Locator:        path,
		GeometryColumn: "geometry",
		BatchSize:      1,
		Allocator:      mem,
	})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, StrategyWholePayload, r.Strategy())
	assert.Equal(t, []string{"name", "geometry"}, r.ColumnSchema().Names())

	first, err := r.Read()
	require.NoError(t, err)
	require.EqualValues(t, 1, first.NumRows())
	assert.Equal(t, "Paris", first.Column(0).(*array.String).Value(0))
	g, err := geoarrow.ValueAt(first.Column(1), geoarrow.Geometry, 0)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{2.35, 48.85}, g)
	first.Release()

	second, err := r.Read()
	require.NoError(t, err)
	require.EqualValues(t, 1, second.NumRows())
	assert.Equal(t, "Nowhere", second.Column(0).(*array.String).Value(0))
	assert.True(t, geoarrow.IsNull(second.Column(1), geoarrow.Geometry, 0))
	second.Release()

	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)

	st := r.Stats()
	assert.EqualValues(t, 2, st.Records)
	assert.EqualValues(t, 2, st.Batches)
	assert.EqualValues(t, len("name,geometry\nParis,POINT(2.35 48.85)\nNowhere,\n"), st.Bytes)
}

func TestReaderGeoJSONCollection(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "fc.geojson", `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"a","pop":1},"geometry":{"type":"Point","coordinates":[1,2]}},
		{"type":"Feature","properties":{"name":"b","pop":2.5},"geometry":null}
	]}`)
	r, err := NewReader(context.Background(), Options{
		Driver:       DriverGeoJSON,
		Locator:      path,
		GeometryType: geoarrow.Point,
	})
	require.NoError(t, err)
	defer r.Close()

	col, ok := r.ColumnSchema().GeometryColumn()
	require.True(t, ok)
	assert.Equal(t, schema.DefaultGeometryColumn, col.Name)
	idx := r.ColumnSchema().Index("pop")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, schema.Float, r.ColumnSchema().Columns[idx].Type)

	rec, err := r.Read()
	require.NoError(t, err)
	defer rec.Release()
	require.EqualValues(t, 2, rec.NumRows())

	pops := rec.Column(idx).(*array.Float64)
	assert.Equal(t, []float64{1, 2.5}, pops.Float64Values())

	geom := rec.Column(rec.Schema().FieldIndices(schema.DefaultGeometryColumn)[0])
	g, err := geoarrow.ValueAt(geom, geoarrow.Point, 0)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{1, 2}, g)
	assert.True(t, geoarrow.IsNull(geom, geoarrow.Point, 1))

	id, ok := rec.Schema().Metadata().GetValue(StreamIDKey)
	require.True(t, ok)
	assert.Equal(t, r.ID(), id)
}

func TestReaderSequenceLimit(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := 0; i < 5; i++ {
		sb.WriteString(`{"type":"Feature","properties":{"n":1},"geometry":{"type":"Point","coordinates":[0,0]}}` + "\n")
	}
	path := writeFile(t, "seq.geojsonl", sb.String())

	r, err := NewReader(context.Background(), Options{
		Driver:   DriverGeoJSON,
		Locator:  path,
		Sequence: true,
		Limit:    1,
	})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, StrategyIncremental, r.Strategy())
	assert.Equal(t, []int64{1}, readAll(t, r))
	assert.EqualValues(t, 1, r.Stats().Records)
}

func TestReaderGzip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	generated := generator.Generate(40, geoarrow.Geometry)
	zw := gzip.NewWriter(&buf)
	require.NoError(t, generator.WriteGeoJSON(zw, generated, true))
	require.NoError(t, zw.Close())
	path := writeFile(t, "features.geojsonl.gz", buf.String())

	for _, sequence := range []bool{false, true} {
		r, err := NewReader(context.Background(), Options{
			Driver:      DriverGeoJSON,
			Locator:     path,
			Sequence:    sequence,
			Compression: "GZIP",
			BatchSize:   16,
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{16, 16, 8}, readAll(t, r))
		assert.Positive(t, r.Stats().Bytes)
		require.NoError(t, r.Close())
	}
}

func TestReaderProjection(t *testing.T) {
	t.Parallel()

	path := writeFeatures(t, "features.csv", generator.FormatCSV, 12)
	r, err := NewReader(context.Background(), Options{
		Driver:         DriverCSV,
		Locator:        path,
		GeometryColumn: generator.GeometryColumnCSV,
		Projection:     []string{"geometry", "id"},
	})
	require.NoError(t, err)
	defer r.Close()

	fields := r.Schema().Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "geometry", fields[0].Name)
	assert.Equal(t, "id", fields[1].Name)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, fields[1].Type)

	rec, err := r.Read()
	require.NoError(t, err)
	defer rec.Release()
	ids := rec.Column(1).(*array.Int64)
	for i := 0; i < ids.Len(); i++ {
		assert.EqualValues(t, i, ids.Value(i))
	}

	_, err = NewReader(context.Background(), Options{
		Driver:         DriverCSV,
		Locator:        path,
		GeometryColumn: generator.GeometryColumnCSV,
		Projection:     []string{"missing"},
	})
	assert.ErrorIs(t, err, geoerr.Configuration)
}

func TestInferSchemaGenerated(t *testing.T) {
	t.Parallel()

	path := writeFeatures(t, "features.csv", generator.FormatCSV, 30)
	s, err := InferSchema(context.Background(), Options{
		Driver:         DriverCSV,
		Locator:        path,
		GeometryColumn: generator.GeometryColumnCSV,
	})
	require.NoError(t, err)

	want := map[string]schema.DataType{
		"id":     schema.Integer,
		"name":   schema.String,
		"email":  schema.String,
		"score":  schema.Float,
		"active": schema.Bool,
	}
	for name, typ := range want {
		i := s.Index(name)
		require.GreaterOrEqual(t, i, 0, name)
		assert.Equal(t, typ, s.Columns[i].Type, name)
	}
	geom, ok := s.GeometryColumn()
	require.True(t, ok)
	assert.Equal(t, generator.GeometryColumnCSV, geom.Name)
}

func TestReaderFixedSchema(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "x.csv", "v,geometry\n1,POINT(0 0)\nabc,POINT(1 1)\n")
	fixed := &schema.Schema{Columns: []schema.Column{
		{Name: "v", Type: schema.Integer, Nullable: true},
		{Name: "geometry", Type: schema.Geometry, Nullable: true, GeometryType: geoarrow.Point},
	}}
	r, err := NewReader(context.Background(), Options{
		Driver:         DriverCSV,
		Locator:        path,
		GeometryColumn: "geometry",
		Schema:         fixed,
	})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, geoerr.Validation)
	var ge *geoerr.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, path, ge.Locator)
	assert.Equal(t, "v", ge.Pos.Field)
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewReader(ctx, Options{Driver: "shapefile", Locator: "x"})
	assert.ErrorIs(t, err, geoerr.Configuration)

	_, err = NewReader(ctx, Options{Driver: DriverCSV, Locator: "x.csv"})
	assert.ErrorIs(t, err, geoerr.Configuration)

	_, err = NewReader(ctx, Options{Driver: DriverGeoJSON, Locator: "x.json", Compression: "zstd"})
	assert.ErrorIs(t, err, geoerr.Configuration)

	missing := filepath.Join(t.TempDir(), "missing.geojson")
	_, err = NewReader(ctx, Options{Driver: DriverGeoJSON, Locator: missing})
	assert.ErrorIs(t, err, geoerr.Io)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReaderMidStreamParseError(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bad.csv", "name,geometry\na,POINT(1 1)\nb,POINT(2 2)\nc,POINT(3\n")
	r, err := NewReader(context.Background(), Options{
		Driver:         DriverCSV,
		Locator:        path,
		GeometryColumn: "geometry",
		SampleSize:     1,
	})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, geoerr.Parse)
	var ge *geoerr.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, path, ge.Locator)
	assert.Equal(t, 4, ge.Pos.Line)

	_, again := r.Read()
	assert.Equal(t, err, again)
}

func TestReaderCancel(t *testing.T) {
	t.Parallel()

	path := writeFeatures(t, "features.geojsonl", generator.FormatGeoJSONSeq, 10)
	ctx, cancel := context.WithCancel(context.Background())
	r, err := NewReader(ctx, Options{Driver: DriverGeoJSON, Locator: path, Sequence: true, BatchSize: 2})
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Read()
	require.NoError(t, err)
	rec.Release()

	cancel()
	_, err = r.Read()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadGeoFileStream(t *testing.T) {
	t.Parallel()

	path := writeFeatures(t, "features.geojson", generator.FormatGeoJSON, 25)
	records, errs := ReadGeoFileStream(context.Background(), Options{
		Driver:    DriverGeoJSON,
		Locator:   path,
		BatchSize: 10,
	})

	var rows []int64
	for rec := range records {
		rows = append(rows, rec.NumRows())
		rec.Release()
	}
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{10, 10, 5}, rows)
}

func TestReadGeoFileStreamError(t *testing.T) {
	t.Parallel()

	records, errs := ReadGeoFileStream(context.Background(), Options{
		Driver:  DriverGeoJSON,
		Locator: filepath.Join(t.TempDir(), "missing.geojson"),
	})
	for rec := range records {
		rec.Release()
	}
	err := <-errs
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadMany(t *testing.T) {
	t.Parallel()

	sizes := []int{7, 20, 33}
	sources := make([]Options, len(sizes))
	for i, n := range sizes {
		sources[i] = Options{
			Driver:         DriverCSV,
			Locator:        writeFeatures(t, "features.csv", generator.FormatCSV, n),
			GeometryColumn: generator.GeometryColumnCSV,
			BatchSize:      8,
		}
	}

	var (
		mu   sync.Mutex
		rows = make([]int64, len(sizes))
	)
	err := ReadMany(context.Background(), sources, 2, func(source int, rec arrow.Record) error {
		defer rec.Release()
		mu.Lock()
		rows[source] += rec.NumRows()
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	for i, n := range sizes {
		assert.EqualValues(t, n, rows[i], "source %d", i)
	}

	stop := errors.New("stop")
	err = ReadMany(context.Background(), sources, 0, func(_ int, rec arrow.Record) error {
		rec.Release()
		return stop
	})
	assert.ErrorIs(t, err, stop)
}
