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

// Package geoarrow encodes orb geometries into GeoArrow native columns:
// interleaved xy coordinates addressed by nested list offsets, one layout per
// geometry type, and a dense union over all of them for mixed columns.
package geoarrow

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/paulmach/orb"
)

// GeometryType is the target type of a geometry column. The zero value is the
// generic type that accepts any shape.
type GeometryType int

const (
	Geometry GeometryType = iota
	Point
	LineString
	Polygon
	MultiPoint
	MultiLineString
	MultiPolygon
)

var typeNames = [...]string{
	Geometry:        "geometry",
	Point:           "point",
	LineString:      "linestring",
	Polygon:         "polygon",
	MultiPoint:      "multipoint",
	MultiLineString: "multilinestring",
	MultiPolygon:    "multipolygon",
}

func (t GeometryType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// ParseGeometryType reads a case-insensitive type name. The empty string is the
// generic type.
func ParseGeometryType(s string) (GeometryType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Geometry, nil
	}
	for t, n := range typeNames {
		if n == name {
			return GeometryType(t), nil
		}
	}
	return 0, geoerr.New(geoerr.Configuration, "unknown geometry type %q (expected one of %s)", s, strings.Join(typeNames[:], ", "))
}

// ExtensionName is the GeoArrow extension type name for the column.
func (t GeometryType) ExtensionName() string {
	if t == Geometry {
		return "geoarrow.geometry"
	}
	return "geoarrow." + t.String()
}

// Accepts reports whether a column of type t can hold g without coercion.
func (t GeometryType) Accepts(g orb.Geometry) bool {
	switch g.(type) {
	case nil:
		return true
	case orb.Point:
		return t == Geometry || t == Point
	case orb.LineString:
		return t == Geometry || t == LineString
	case orb.Polygon:
		return t == Geometry || t == Polygon
	case orb.MultiPoint:
		return t == Geometry || t == MultiPoint
	case orb.MultiLineString:
		return t == Geometry || t == MultiLineString
	case orb.MultiPolygon:
		return t == Geometry || t == MultiPolygon
	case orb.Collection:
		return t == Geometry
	default:
		return false
	}
}

// Union type codes follow the GeoArrow geometry ids.
const (
	codePoint arrow.UnionTypeCode = iota + 1
	codeLineString
	codePolygon
	codeMultiPoint
	codeMultiLineString
	codeMultiPolygon
	codeCollection
)

var (
	coordType = arrow.FixedSizeListOfField(2, arrow.Field{Name: "xy", Type: arrow.PrimitiveTypes.Float64})

	pointType      = coordType
	lineStringType = arrow.ListOfField(arrow.Field{Name: "vertices", Type: coordType})
	polygonType    = arrow.ListOfField(arrow.Field{Name: "rings", Type: lineStringType})
	multiPointType = arrow.ListOfField(arrow.Field{Name: "points", Type: coordType})
	multiLineType  = arrow.ListOfField(arrow.Field{Name: "linestrings", Type: lineStringType})
	multiPolyType  = arrow.ListOfField(arrow.Field{Name: "polygons", Type: polygonType})

	simpleFields = []arrow.Field{
		{Name: "Point", Type: pointType, Nullable: true},
		{Name: "LineString", Type: lineStringType, Nullable: true},
		{Name: "Polygon", Type: polygonType, Nullable: true},
		{Name: "MultiPoint", Type: multiPointType, Nullable: true},
		{Name: "MultiLineString", Type: multiLineType, Nullable: true},
		{Name: "MultiPolygon", Type: multiPolyType, Nullable: true},
	}
	simpleCodes = []arrow.UnionTypeCode{codePoint, codeLineString, codePolygon, codeMultiPoint, codeMultiLineString, codeMultiPolygon}

	simpleUnionType = arrow.DenseUnionOf(simpleFields, simpleCodes)
	collectionType  = arrow.ListOfField(arrow.Field{Name: "geometries", Type: simpleUnionType, Nullable: true})

	geometryType = arrow.DenseUnionOf(
		append(append([]arrow.Field(nil), simpleFields...), arrow.Field{Name: "GeometryCollection", Type: collectionType, Nullable: true}),
		append(append([]arrow.UnionTypeCode(nil), simpleCodes...), codeCollection),
	)
)

// DataType returns the Arrow storage type of a column of type t.
func DataType(t GeometryType) arrow.DataType {
	switch t {
	case Point:
		return pointType
	case LineString:
		return lineStringType
	case Polygon:
		return polygonType
	case MultiPoint:
		return multiPointType
	case MultiLineString:
		return multiLineType
	case MultiPolygon:
		return multiPolyType
	default:
		return geometryType
	}
}

// Field returns a nullable geometry field carrying GeoArrow extension
// metadata.
func Field(name string, t GeometryType) arrow.Field {
	return arrow.Field{
		Name:     name,
		Type:     DataType(t),
		Nullable: true,
		Metadata: arrow.NewMetadata(
			[]string{"ARROW:extension:name", "ARROW:extension:metadata"},
			[]string{t.ExtensionName(), "{}"},
		),
	}
}

// TypeFromField recovers the geometry type from a field built by Field.
func TypeFromField(f arrow.Field) (GeometryType, bool) {
	name, ok := f.Metadata.GetValue("ARROW:extension:name")
	if !ok || !strings.HasPrefix(name, "geoarrow.") {
		return 0, false
	}
	t, err := ParseGeometryType(strings.TrimPrefix(name, "geoarrow."))
	return t, err == nil
}
