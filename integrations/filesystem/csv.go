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
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/hashicorp/go-multierror"
	"github.com/paulmach/orb/encoding/wkt"
)

// CSVRecordWriter writes batches to a delimited file. Geometry columns are
// rendered as WKT text.
type CSVRecordWriter struct {
	file   *os.File
	writer *csv.Writer
	schema *arrow.Schema
	geoms  map[int]geoarrow.GeometryType
	mem    memory.Allocator
	rows   int64
	closed bool
}

// NewCSVRecordWriter creates filePath for batches of schema. Null values are
// written as empty fields.
func NewCSVRecordWriter(filePath string, schema *arrow.Schema, delimiter rune, mem memory.Allocator) (*CSVRecordWriter, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if delimiter == 0 {
		delimiter = ','
	}

	geoms := make(map[int]geoarrow.GeometryType)
	fields := make([]arrow.Field, len(schema.Fields()))
	for i, f := range schema.Fields() {
		if t, ok := geoarrow.TypeFromField(f); ok {
			geoms[i] = t
			f = arrow.Field{Name: f.Name, Type: arrow.BinaryTypes.String, Nullable: true}
		}
		fields[i] = f
	}
	out := arrow.NewSchema(fields, nil)

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}

	writer := csv.NewWriter(file, out,
		csv.WithComma(delimiter),
		csv.WithHeader(true),
		csv.WithNullWriter(""),
	)

	return &CSVRecordWriter{file: file, writer: writer, schema: out, geoms: geoms, mem: mem}, nil
}

// Write writes rec. The caller keeps ownership of rec.
func (w *CSVRecordWriter) Write(rec arrow.Record) error {
	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := range cols {
		t, ok := w.geoms[i]
		if !ok {
			cols[i] = rec.Column(i)
			cols[i].Retain()
			continue
		}
		arr, err := w.wktColumn(rec.Column(i), t)
		if err != nil {
			return fmt.Errorf("column %q: %w", rec.ColumnName(i), err)
		}
		cols[i] = arr
	}

	out := array.NewRecord(w.schema, cols, rec.NumRows())
	defer out.Release()
	if err := w.writer.Write(out); err != nil {
		return fmt.Errorf("failed to write record to CSV: %w", err)
	}
	w.rows += rec.NumRows()
	return nil
}

func (w *CSVRecordWriter) wktColumn(arr arrow.Array, t geoarrow.GeometryType) (arrow.Array, error) {
	b := array.NewStringBuilder(w.mem)
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
		b.Append(wkt.MarshalString(g))
	}
	return b.NewArray(), nil
}

// Rows returns the number of rows written so far.
func (w *CSVRecordWriter) Rows() int64 { return w.rows }

// Close flushes the writer and closes the file.
func (w *CSVRecordWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var errs *multierror.Error
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("CSV writer encountered an error: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
