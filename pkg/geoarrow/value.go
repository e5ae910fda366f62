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

package geoarrow

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/paulmach/orb"
)

// ValueAt decodes row i of a column of type t back into an orb geometry. Null
// rows return nil.
func ValueAt(arr arrow.Array, t GeometryType, i int) (orb.Geometry, error) {
	switch t {
	case Point:
		return pointAt(arr, i)
	case LineString:
		return seqAt(arr, i, func(pts []orb.Point) orb.Geometry { return orb.LineString(pts) })
	case MultiPoint:
		return seqAt(arr, i, func(pts []orb.Point) orb.Geometry { return orb.MultiPoint(pts) })
	case Polygon:
		return nestedAt(arr, i, func(parts [][]orb.Point) orb.Geometry {
			p := make(orb.Polygon, len(parts))
			for j := range parts {
				p[j] = orb.Ring(parts[j])
			}
			return p
		})
	case MultiLineString:
		return nestedAt(arr, i, func(parts [][]orb.Point) orb.Geometry {
			m := make(orb.MultiLineString, len(parts))
			for j := range parts {
				m[j] = orb.LineString(parts[j])
			}
			return m
		})
	case MultiPolygon:
		return multiPolygonAt(arr, i)
	default:
		return unionAt(arr, i)
	}
}

// IsNull reports whether row i of a column of type t is null. Generic columns
// store nulls in their point child.
func IsNull(arr arrow.Array, t GeometryType, i int) bool {
	u, ok := arr.(*array.DenseUnion)
	if t != Geometry || !ok {
		return arr.IsNull(i)
	}
	return u.Field(u.ChildID(i)).IsNull(int(u.ValueOffset(i)))
}

func pointAt(arr arrow.Array, i int) (orb.Geometry, error) {
	fl, ok := arr.(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("geoarrow: point column has type %s", arr.DataType())
	}
	if fl.IsNull(i) {
		return nil, nil
	}
	pts := coords(fl, int64(i), int64(i+1))
	return pts[0], nil
}

// coords reads vertices [start, end) of a coordinate array.
func coords(xy *array.FixedSizeList, start, end int64) []orb.Point {
	values := xy.ListValues().(*array.Float64)
	base := int64(xy.Data().Offset())
	pts := make([]orb.Point, 0, end-start)
	for j := start; j < end; j++ {
		at := int((base + j) * 2)
		pts = append(pts, orb.Point{values.Value(at), values.Value(at + 1)})
	}
	return pts
}

func list(arr arrow.Array) (*array.List, error) {
	l, ok := arr.(*array.List)
	if !ok {
		return nil, fmt.Errorf("geoarrow: expected list array, got %s", arr.DataType())
	}
	return l, nil
}

func seqAt(arr arrow.Array, i int, wrap func([]orb.Point) orb.Geometry) (orb.Geometry, error) {
	l, err := list(arr)
	if err != nil {
		return nil, err
	}
	if l.IsNull(i) {
		return nil, nil
	}
	start, end := l.ValueOffsets(i)
	return wrap(coords(l.ListValues().(*array.FixedSizeList), start, end)), nil
}

func parts(l *array.List, i int) [][]orb.Point {
	start, end := l.ValueOffsets(i)
	inner := l.ListValues().(*array.List)
	xy := inner.ListValues().(*array.FixedSizeList)
	out := make([][]orb.Point, 0, end-start)
	for j := start; j < end; j++ {
		s, e := inner.ValueOffsets(int(j))
		out = append(out, coords(xy, s, e))
	}
	return out
}

func nestedAt(arr arrow.Array, i int, wrap func([][]orb.Point) orb.Geometry) (orb.Geometry, error) {
	l, err := list(arr)
	if err != nil {
		return nil, err
	}
	if l.IsNull(i) {
		return nil, nil
	}
	return wrap(parts(l, i)), nil
}

func multiPolygonAt(arr arrow.Array, i int) (orb.Geometry, error) {
	l, err := list(arr)
	if err != nil {
		return nil, err
	}
	if l.IsNull(i) {
		return nil, nil
	}
	start, end := l.ValueOffsets(i)
	polys := l.ListValues().(*array.List)
	mp := make(orb.MultiPolygon, 0, end-start)
	for j := start; j < end; j++ {
		rings := parts(polys, int(j))
		p := make(orb.Polygon, len(rings))
		for k := range rings {
			p[k] = orb.Ring(rings[k])
		}
		mp = append(mp, p)
	}
	return mp, nil
}

var childTypes = [...]GeometryType{Point, LineString, Polygon, MultiPoint, MultiLineString, MultiPolygon}

func unionAt(arr arrow.Array, i int) (orb.Geometry, error) {
	u, ok := arr.(*array.DenseUnion)
	if !ok {
		return nil, fmt.Errorf("geoarrow: geometry column has type %s", arr.DataType())
	}
	child := u.ChildID(i)
	offset := int(u.ValueOffset(i))
	if child < len(childTypes) {
		return ValueAt(u.Field(child), childTypes[child], offset)
	}

	l, err := list(u.Field(child))
	if err != nil {
		return nil, err
	}
	start, end := l.ValueOffsets(offset)
	members := l.ListValues()
	c := make(orb.Collection, 0, end-start)
	for j := start; j < end; j++ {
		g, err := unionAt(members, int(j))
		if err != nil {
			return nil, err
		}
		c = append(c, g)
	}
	return c, nil
}
