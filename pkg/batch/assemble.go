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

// Package batch assembles extracted records into Arrow record batches.
package batch

import (
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/record"
	"github.com/arrowarc/geoarc/pkg/schema"
)

// DefaultBatchSize is the number of rows per batch when none is configured.
const DefaultBatchSize = 8192

// ValidationError reports a property value that the column type cannot hold.
type ValidationError struct {
	Column   string
	Row      int
	Expected schema.DataType
	Observed record.Value
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("column %q row %d: expected %s, observed %s %q",
		e.Column, e.Row, e.Expected, e.Observed.Type(), e.Observed.String())
}

type Options struct {
	// Projection lists the columns to materialize, in output order. Nil keeps
	// every column.
	Projection []string
	Allocator  memory.Allocator
	// Metadata is attached to the output schema.
	Metadata map[string]string
}

// Assembler turns slices of records into batches of a fixed, possibly
// projected, schema.
type Assembler struct {
	cols  []schema.Column
	out   *arrow.Schema
	mem   memory.Allocator
	geoms map[int]*geoarrow.Builder
}

func NewAssembler(s *schema.Schema, opts Options) (*Assembler, error) {
	projected, err := s.Project(opts.Projection)
	if err != nil {
		return nil, err
	}
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	var md *arrow.Metadata
	if len(opts.Metadata) > 0 {
		m := arrow.MetadataFrom(opts.Metadata)
		md = &m
	}

	a := &Assembler{
		cols:  projected.Columns,
		out:   projected.Arrow(md),
		mem:   mem,
		geoms: make(map[int]*geoarrow.Builder),
	}
	for i, c := range a.cols {
		if c.Type == schema.Geometry {
			a.geoms[i] = geoarrow.NewBuilder(c.GeometryType)
		}
	}
	return a, nil
}

// Schema returns the Arrow schema of every batch.
func (a *Assembler) Schema() *arrow.Schema { return a.out }

// Assemble builds one batch from records. Unprojected properties are never
// read. The caller owns the returned record.
func (a *Assembler) Assemble(records []*record.Record) (arrow.Record, error) {
	if len(a.cols) == 0 {
		return array.NewRecord(a.out, nil, int64(len(records))), nil
	}

	arrs := make([]arrow.Array, 0, len(a.cols))
	defer func() {
		for _, arr := range arrs {
			arr.Release()
		}
	}()

	for i, c := range a.cols {
		var (
			arr arrow.Array
			err error
		)
		if gb, ok := a.geoms[i]; ok {
			arr, err = a.geometryColumn(gb, c, records)
		} else {
			arr, err = a.propertyColumn(c, records)
		}
		if err != nil {
			return nil, err
		}
		arrs = append(arrs, arr)
	}
	return array.NewRecord(a.out, arrs, int64(len(records))), nil
}

func (a *Assembler) geometryColumn(gb *geoarrow.Builder, c schema.Column, records []*record.Record) (arrow.Array, error) {
	for _, rec := range records {
		if err := gb.Append(rec.Geometry); err != nil {
			// drop the partial column so the builder starts clean next time
			gb.Finish().Release()
			pos := rec.Pos
			pos.Field = c.Name
			var ge *geoerr.Error
			if errors.As(err, &ge) {
				return nil, ge.At(pos)
			}
			return nil, geoerr.Wrap(geoerr.Geometry, err).At(pos)
		}
	}
	return gb.Finish().Array, nil
}

func (a *Assembler) propertyColumn(c schema.Column, records []*record.Record) (arrow.Array, error) {
	b := array.NewBuilder(a.mem, c.Type.ArrowType())
	defer b.Release()
	b.Reserve(len(records))

	for row, rec := range records {
		v, _ := rec.Properties.Get(c.Name)
		if v.IsNull() {
			b.AppendNull()
			continue
		}
		w, ok := Widen(v, c.Type)
		if !ok {
			pos := rec.Pos
			pos.Field = c.Name
			return nil, geoerr.Wrap(geoerr.Validation, &ValidationError{
				Column:   c.Name,
				Row:      row,
				Expected: c.Type,
				Observed: v,
			}).At(pos)
		}
		switch b := b.(type) {
		case *array.BooleanBuilder:
			b.Append(w.BoolVal())
		case *array.Int64Builder:
			b.Append(w.IntegerVal())
		case *array.Float64Builder:
			b.Append(w.FloatVal())
		case *array.StringBuilder:
			b.Append(w.StringVal())
		}
	}
	return b.NewArray(), nil
}

// Widen converts a non-null value to the value type of a column of type t.
// Values convert only upwards along Bool < Integer < Float < String; any
// value renders as a string.
func Widen(v record.Value, t schema.DataType) (record.Value, bool) {
	want := t.ValueType()
	got := v.Type()
	switch {
	case got == want:
		return v, true
	case got > want:
		return v, false
	case want == record.String:
		return record.StringValue(v.String()), true
	}

	switch got {
	case record.Bool:
		n := int64(0)
		if v.BoolVal() {
			n = 1
		}
		if want == record.Integer {
			return record.IntegerValue(n), true
		}
		return record.FloatValue(float64(n)), true
	case record.Integer:
		return record.FloatValue(float64(v.IntegerVal())), true
	}
	return v, false
}
