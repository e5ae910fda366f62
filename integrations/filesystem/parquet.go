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

package integrations

import (
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/arrowarc/geoarc/internal/json"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// GeoParquetMetadataKey is the file metadata key holding the GeoParquet
// column description.
const GeoParquetMetadataKey = "geo"

type geoColumn struct {
	Encoding      string    `json:"encoding"`
	GeometryTypes []string  `json:"geometry_types"`
	BBox          []float64 `json:"bbox,omitempty"`
}

type geoMetadata struct {
	Version       string               `json:"version"`
	PrimaryColumn string               `json:"primary_column"`
	Columns       map[string]geoColumn `json:"columns"`
}

func NewDefaultParquetWriterProperties(mem memory.Allocator) *parquet.WriterProperties {
	return parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(mem),
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithDataPageSize(1024*1024),
		parquet.WithMaxRowGroupLength(64*1024),
		parquet.WithCreatedBy("geoarc"),
	)
}

// ParquetWriter writes batches as GeoParquet: geometry columns become WKB
// binary columns and the "geo" file metadata describes them.
type ParquetWriter struct {
	file   *os.File
	writer *pqarrow.FileWriter
	schema *arrow.Schema
	geoms  map[int]geoarrow.GeometryType
	mem    memory.Allocator
	rows   int64
	closed bool
}

// NewParquetWriter creates filePath for batches of schema. GeoParquet
// metadata must be known before the first row group, so the bbox is left out.
func NewParquetWriter(filePath string, schema *arrow.Schema, mem memory.Allocator) (*ParquetWriter, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	meta := geoMetadata{Version: "1.1.0", Columns: make(map[string]geoColumn)}
	geoms := make(map[int]geoarrow.GeometryType)
	fields := make([]arrow.Field, len(schema.Fields()))
	for i, f := range schema.Fields() {
		if t, ok := geoarrow.TypeFromField(f); ok {
			geoms[i] = t
			if meta.PrimaryColumn == "" {
				meta.PrimaryColumn = f.Name
			}
			meta.Columns[f.Name] = geoColumn{Encoding: "WKB", GeometryTypes: geoParquetTypes(t)}
			f = arrow.Field{Name: f.Name, Type: arrow.BinaryTypes.Binary, Nullable: true}
		}
		fields[i] = f
	}

	md := schema.Metadata()
	keys, values := append([]string(nil), md.Keys()...), append([]string(nil), md.Values()...)
	if len(meta.Columns) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		keys, values = append(keys, GeoParquetMetadataKey), append(values, string(data))
	}
	kv := arrow.NewMetadata(keys, values)
	out := arrow.NewSchema(fields, &kv)

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}
	writer, err := pqarrow.NewFileWriter(out, file, NewDefaultParquetWriterProperties(mem), pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	return &ParquetWriter{file: file, writer: writer, schema: out, geoms: geoms, mem: mem}, nil
}

// geoParquetTypes names the geometry types a column may hold. An empty list
// means any type.
func geoParquetTypes(t geoarrow.GeometryType) []string {
	switch t {
	case geoarrow.Point:
		return []string{"Point"}
	case geoarrow.LineString:
		return []string{"LineString"}
	case geoarrow.Polygon:
		return []string{"Polygon"}
	case geoarrow.MultiPoint:
		return []string{"MultiPoint"}
	case geoarrow.MultiLineString:
		return []string{"MultiLineString"}
	case geoarrow.MultiPolygon:
		return []string{"MultiPolygon"}
	default:
		return []string{}
	}
}

// Write writes rec as one row group. The caller keeps ownership of rec.
func (p *ParquetWriter) Write(rec arrow.Record) error {
	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := range cols {
		t, ok := p.geoms[i]
		if !ok {
			cols[i] = rec.Column(i)
			cols[i].Retain()
			continue
		}
		arr, err := p.wkbColumn(rec.Column(i), t)
		if err != nil {
			return fmt.Errorf("column %q: %w", rec.ColumnName(i), err)
		}
		cols[i] = arr
	}

	out := array.NewRecord(p.schema, cols, rec.NumRows())
	defer out.Release()
	if err := p.writer.Write(out); err != nil {
		return fmt.Errorf("failed to write record to parquet: %w", err)
	}
	p.rows += rec.NumRows()
	return nil
}

func (p *ParquetWriter) wkbColumn(arr arrow.Array, t geoarrow.GeometryType) (arrow.Array, error) {
	b := array.NewBinaryBuilder(p.mem, arrow.BinaryTypes.Binary)
	defer b.Release()
	b.Reserve(arr.Len())
	for i := 0; i < arr.Len(); i++ {
		g, err := geoarrow.ValueAt(arr, t, i)
		if err != nil {
			return nil, err
		}
		if g == nil {
			b.AppendNull()
			continue
		}
		data, err := wkb.Marshal(g)
		if err != nil {
			return nil, err
		}
		b.Append(data)
	}
	return b.NewArray(), nil
}

// Rows returns the number of rows written so far.
func (p *ParquetWriter) Rows() int64 { return p.rows }

// Close writes the footer and closes the file.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.writer.Close(); err != nil {
		p.file.Close()
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	if err := p.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// DecodeWKB parses a value of a GeoParquet geometry column.
func DecodeWKB(data []byte) (orb.Geometry, error) {
	return wkb.Unmarshal(data)
}
