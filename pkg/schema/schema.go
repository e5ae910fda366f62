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

// Package schema infers column schemas from sampled records and maps them to
// Arrow schemas.
package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/record"
)

// DefaultGeometryColumn names the geometry column when none is configured.
const DefaultGeometryColumn = "geometry"

// DataType is the declared type of a column.
type DataType int

const (
	Bool DataType = iota
	Integer
	Float
	String
	Geometry
)

func (t DataType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Geometry:
		return "geometry"
	default:
		return "unknown"
	}
}

// ArrowType returns the Arrow storage type of a property column.
func (t DataType) ArrowType() arrow.DataType {
	switch t {
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Integer:
		return arrow.PrimitiveTypes.Int64
	case Float:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// ValueType is the property value type a column of type t holds.
func (t DataType) ValueType() record.Type {
	switch t {
	case Bool:
		return record.Bool
	case Integer:
		return record.Integer
	case Float:
		return record.Float
	default:
		return record.String
	}
}

type Column struct {
	Name     string
	Type     DataType
	Nullable bool
	// GeometryType is the target type of the geometry column.
	GeometryType geoarrow.GeometryType
}

// Field returns the Arrow field of the column.
func (c Column) Field() arrow.Field {
	if c.Type == Geometry {
		return geoarrow.Field(c.Name, c.GeometryType)
	}
	return arrow.Field{Name: c.Name, Type: c.Type.ArrowType(), Nullable: c.Nullable}
}

func (c Column) String() string {
	if c.Type == Geometry {
		return fmt.Sprintf("%s: geometry(%s)", c.Name, c.GeometryType)
	}
	if c.Nullable {
		return fmt.Sprintf("%s: %s?", c.Name, c.Type)
	}
	return fmt.Sprintf("%s: %s", c.Name, c.Type)
}

// Schema is an ordered set of uniquely named columns. An inferred schema ends
// with its single geometry column.
type Schema struct {
	Columns []Column
}

// Index returns the position of the named column, or -1.
func (s *Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// GeometryColumn returns the geometry column, if the schema has one.
func (s *Schema) GeometryColumn() (Column, bool) {
	for _, c := range s.Columns {
		if c.Type == Geometry {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Project returns the schema restricted to names, in the order given. A nil
// projection keeps every column. Unknown or repeated names are configuration
// errors.
func (s *Schema) Project(names []string) (*Schema, error) {
	if names == nil {
		return s, nil
	}
	out := &Schema{Columns: make([]Column, 0, len(names))}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, geoerr.New(geoerr.Configuration, "column %q projected twice", name)
		}
		seen[name] = true
		i := s.Index(name)
		if i < 0 {
			return nil, geoerr.New(geoerr.Configuration, "projected column %q not in schema (%s)", name, strings.Join(s.Names(), ", "))
		}
		out.Columns = append(out.Columns, s.Columns[i])
	}
	return out, nil
}

// Arrow converts the schema. metadata may be nil.
func (s *Schema) Arrow(metadata *arrow.Metadata) *arrow.Schema {
	fields := make([]arrow.Field, len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = c.Field()
	}
	return arrow.NewSchema(fields, metadata)
}

func (s *Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.String()
	}
	return strings.Join(parts, "\n")
}
