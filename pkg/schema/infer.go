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

package schema

import (
	"context"
	"errors"
	"io"

	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/record"
)

// Options configures the geometry column of an inferred schema.
type Options struct {
	// GeometryColumn defaults to DefaultGeometryColumn.
	GeometryColumn string
	GeometryType   geoarrow.GeometryType
}

func (o Options) geometryColumn() string {
	if o.GeometryColumn == "" {
		return DefaultGeometryColumn
	}
	return o.GeometryColumn
}

// Join returns the least upper bound of two observed value types on the chain
// Null < Bool < Integer < Float < String.
func Join(a, b record.Type) record.Type {
	if a > b {
		return a
	}
	return b
}

// Resolve maps a joined value type to a column type. A column only ever
// observed as Null becomes String.
func Resolve(t record.Type) DataType {
	switch t {
	case record.Bool:
		return Bool
	case record.Integer:
		return Integer
	case record.Float:
		return Float
	default:
		return String
	}
}

// Inferrer folds records into a schema one at a time.
type Inferrer struct {
	opts   Options
	order  []string
	joined map[string]record.Type
}

func NewInferrer(opts Options) *Inferrer {
	return &Inferrer{opts: opts, joined: make(map[string]record.Type)}
}

// Observe joins the property types of rec into the running schema. A property
// named like the geometry column is ignored.
func (in *Inferrer) Observe(rec *record.Record) {
	geom := in.opts.geometryColumn()
	for _, p := range rec.Properties.All() {
		if p.Name == geom {
			continue
		}
		t, seen := in.joined[p.Name]
		if !seen {
			in.order = append(in.order, p.Name)
		}
		in.joined[p.Name] = Join(t, p.Value.Type())
	}
}

// Schema returns the schema of everything observed so far.
func (in *Inferrer) Schema() *Schema {
	cols := make([]Column, 0, len(in.order)+1)
	for _, name := range in.order {
		cols = append(cols, Column{Name: name, Type: Resolve(in.joined[name]), Nullable: true})
	}
	cols = append(cols, Column{
		Name:         in.opts.geometryColumn(),
		Type:         Geometry,
		Nullable:     true,
		GeometryType: in.opts.GeometryType,
	})
	return &Schema{Columns: cols}
}

// Infer builds the schema of a sample. An empty sample yields the geometry
// column alone.
func Infer(sample []*record.Record, opts Options) *Schema {
	in := NewInferrer(opts)
	for _, rec := range sample {
		in.Observe(rec)
	}
	return in.Schema()
}

// Sample pulls up to n records from ext. Any extraction error aborts the
// sample.
func Sample(ctx context.Context, ext record.Extractor, n int) ([]*record.Record, error) {
	var out []*record.Record
	for n <= 0 || len(out) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := ext.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
