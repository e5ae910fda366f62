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
	"math"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/paulmach/orb"
)

// ShapeError reports a geometry whose shape does not fit the column.
type ShapeError struct {
	Expected GeometryType
	Observed string
	Row      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("cannot append %s to %s column at row %d", e.Observed, e.Expected, e.Row)
}

// Column is a finished geometry column.
type Column struct {
	Type  GeometryType
	Array arrow.Array
	Len   int
	// Bound covers every non-empty geometry. It is empty when there is none.
	Bound orb.Bound
}

// Release frees the column array.
func (c *Column) Release() {
	if c.Array != nil {
		c.Array.Release()
	}
}

// Builder accumulates geometries into a column of a fixed target type. A
// failed Append leaves the builder unchanged.
type Builder struct {
	target GeometryType
	nested *nested
	union  *union
	rows   int
	bound  orb.Bound
	bounds bool
}

func NewBuilder(target GeometryType) *Builder {
	b := &Builder{target: target}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.rows = 0
	b.bounds = false
	b.bound = orb.Bound{}
	b.nested, b.union = nil, nil
	switch b.target {
	case Point:
		b.nested = newNested(0)
	case LineString, MultiPoint:
		b.nested = newNested(1)
	case Polygon, MultiLineString:
		b.nested = newNested(2)
	case MultiPolygon:
		b.nested = newNested(3)
	default:
		b.union = newUnion(true)
	}
}

// Type returns the target type.
func (b *Builder) Type() GeometryType { return b.target }

// Len returns the number of rows appended since the last Finish.
func (b *Builder) Len() int { return b.rows }

// AppendNull appends a null geometry.
func (b *Builder) AppendNull() {
	if b.union != nil {
		b.union.appendNull()
	} else {
		b.nested.appendNull()
	}
	b.rows++
}

// Append appends g. A nil geometry appends a null.
func (b *Builder) Append(g orb.Geometry) error {
	if g == nil {
		b.AppendNull()
		return nil
	}
	if !b.target.Accepts(g) {
		return geoerr.Wrap(geoerr.Geometry, &ShapeError{Expected: b.target, Observed: g.GeoJSONType(), Row: b.rows})
	}

	if b.union != nil {
		if err := b.union.check(g); err != nil {
			return geoerr.Wrap(geoerr.Geometry, fmt.Errorf("row %d: %w", b.rows, err))
		}
		b.union.append(g)
	} else {
		b.nested.appendGeometry(g)
	}
	b.rows++
	b.extend(g)
	return nil
}

func (b *Builder) extend(g orb.Geometry) {
	bnd := g.Bound()
	if bnd.IsEmpty() || hasNaN(bnd.Min) || hasNaN(bnd.Max) {
		return
	}
	if !b.bounds {
		b.bound, b.bounds = bnd, true
		return
	}
	b.bound = b.bound.Union(bnd)
}

func hasNaN(p orb.Point) bool { return math.IsNaN(p[0]) || math.IsNaN(p[1]) }

// Finish returns the accumulated column and resets the builder.
func (b *Builder) Finish() *Column {
	var data arrow.ArrayData
	if b.union != nil {
		data = b.union.data(DataType(b.target).(*arrow.DenseUnionType))
	} else {
		data = b.nested.data(DataType(b.target))
	}
	defer data.Release()

	col := &Column{
		Type:  b.target,
		Array: array.MakeFromData(data),
		Len:   b.rows,
	}
	if b.bounds {
		col.Bound = b.bound
	} else {
		col.Bound = orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{-1, -1}}
	}
	b.reset()
	return col
}

// nested holds one geometry type: interleaved coordinates plus one offsets
// buffer per nesting level above them.
type nested struct {
	depth   int
	coords  []float64
	offsets [][]int32
	valid   []bool
	nulls   int
}

func newNested(depth int) *nested {
	n := &nested{depth: depth, offsets: make([][]int32, depth)}
	for i := range n.offsets {
		n.offsets[i] = []int32{0}
	}
	return n
}

func (n *nested) len() int { return len(n.valid) }

func (n *nested) vertices() int32 { return int32(len(n.coords) / 2) }

func (n *nested) appendNull() {
	n.valid = append(n.valid, false)
	n.nulls++
	if n.depth == 0 {
		n.coords = append(n.coords, 0, 0)
		return
	}
	top := n.offsets[0]
	n.offsets[0] = append(top, top[len(top)-1])
}

func (n *nested) appendGeometry(g orb.Geometry) {
	n.valid = append(n.valid, true)
	switch g := g.(type) {
	case orb.Point:
		n.coords = append(n.coords, g[0], g[1])
	case orb.LineString:
		n.appendPoints(0, g)
	case orb.MultiPoint:
		n.appendPoints(0, g)
	case orb.Polygon:
		for _, r := range g {
			n.appendPoints(1, r)
		}
		n.close(0)
	case orb.MultiLineString:
		for _, ls := range g {
			n.appendPoints(1, ls)
		}
		n.close(0)
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				n.appendPoints(2, r)
			}
			n.close(1)
		}
		n.close(0)
	}
}

// appendPoints writes pts and closes the sequence at offsets level k.
func (n *nested) appendPoints(k int, pts []orb.Point) {
	for _, p := range pts {
		n.coords = append(n.coords, p[0], p[1])
	}
	n.offsets[k] = append(n.offsets[k], n.vertices())
}

// close ends an element at level k whose children live at level k+1.
func (n *nested) close(k int) {
	n.offsets[k] = append(n.offsets[k], int32(len(n.offsets[k+1])-1))
}

func (n *nested) data(typ arrow.DataType) arrow.ArrayData {
	return n.level(typ, 0)
}

func (n *nested) level(typ arrow.DataType, k int) arrow.ArrayData {
	var validity *memory.Buffer
	nulls := 0
	if k == 0 {
		validity, nulls = bitmap(n.valid, n.nulls), n.nulls
	}

	if k == n.depth {
		values := array.NewData(arrow.PrimitiveTypes.Float64, len(n.coords),
			[]*memory.Buffer{nil, memory.NewBufferBytes(arrow.Float64Traits.CastToBytes(n.coords))}, nil, 0, 0)
		defer values.Release()
		return array.NewData(typ, len(n.coords)/2, []*memory.Buffer{validity}, []arrow.ArrayData{values}, nulls, 0)
	}

	child := n.level(typ.(*arrow.ListType).Elem(), k+1)
	defer child.Release()
	offs := n.offsets[k]
	return array.NewData(typ, len(offs)-1,
		[]*memory.Buffer{validity, memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offs))},
		[]arrow.ArrayData{child}, nulls, 0)
}

func bitmap(valid []bool, nulls int) *memory.Buffer {
	if nulls == 0 {
		return nil
	}
	buf := make([]byte, bitutil.BytesForBits(int64(len(valid))))
	for i, v := range valid {
		if v {
			bitutil.SetBit(buf, i)
		}
	}
	return memory.NewBufferBytes(buf)
}

// union is a dense union over the six simple types plus, at the top level,
// collections of simple types. Nulls are stored as null points.
type union struct {
	children   [6]*nested
	collection *collection
	typeIDs    []arrow.UnionTypeCode
	offsets    []int32
}

func newUnion(collections bool) *union {
	u := &union{}
	for i, depth := range [6]int{0, 1, 2, 1, 2, 3} {
		u.children[i] = newNested(depth)
	}
	if collections {
		u.collection = &collection{inner: newUnion(false), offsets: []int32{0}}
	}
	return u
}

func (u *union) len() int { return len(u.typeIDs) }

func (u *union) push(code arrow.UnionTypeCode, offset int) {
	u.typeIDs = append(u.typeIDs, code)
	u.offsets = append(u.offsets, int32(offset))
}

func (u *union) appendNull() {
	child := u.children[0]
	u.push(codePoint, child.len())
	child.appendNull()
}

// check validates g without changing any state.
func (u *union) check(g orb.Geometry) error {
	c, ok := g.(orb.Collection)
	if !ok {
		return nil
	}
	if u.collection == nil {
		return fmt.Errorf("nested geometry collections are not supported")
	}
	for i, m := range c {
		if _, nestedCollection := m.(orb.Collection); nestedCollection {
			return fmt.Errorf("collection member %d: nested geometry collections are not supported", i)
		}
		if m != nil && !Geometry.Accepts(m) {
			return fmt.Errorf("collection member %d: unsupported geometry %s", i, m.GeoJSONType())
		}
	}
	return nil
}

func (u *union) append(g orb.Geometry) {
	if g == nil {
		u.appendNull()
		return
	}
	if c, ok := g.(orb.Collection); ok {
		u.push(codeCollection, u.collection.len())
		u.collection.append(c)
		return
	}

	idx := simpleIndex(g)
	child := u.children[idx]
	u.push(simpleCodes[idx], child.len())
	child.appendGeometry(g)
}

func simpleIndex(g orb.Geometry) int {
	switch g.(type) {
	case orb.Point:
		return 0
	case orb.LineString:
		return 1
	case orb.Polygon:
		return 2
	case orb.MultiPoint:
		return 3
	case orb.MultiLineString:
		return 4
	default:
		return 5
	}
}

func (u *union) data(typ *arrow.DenseUnionType) arrow.ArrayData {
	fields := typ.Fields()
	children := make([]arrow.ArrayData, 0, len(fields))
	for i, child := range u.children {
		children = append(children, child.data(fields[i].Type))
	}
	if u.collection != nil {
		children = append(children, u.collection.data(fields[len(u.children)].Type))
	}
	defer func() {
		for _, c := range children {
			c.Release()
		}
	}()

	return array.NewData(typ, len(u.typeIDs), []*memory.Buffer{
		nil,
		memory.NewBufferBytes(arrow.Int8Traits.CastToBytes(u.typeIDs)),
		memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(u.offsets)),
	}, children, 0, 0)
}

type collection struct {
	inner   *union
	offsets []int32
}

func (c *collection) len() int { return len(c.offsets) - 1 }

func (c *collection) append(gc orb.Collection) {
	for _, m := range gc {
		c.inner.append(m)
	}
	c.offsets = append(c.offsets, int32(c.inner.len()))
}

func (c *collection) data(typ arrow.DataType) arrow.ArrayData {
	lt := typ.(*arrow.ListType)
	child := c.inner.data(lt.Elem().(*arrow.DenseUnionType))
	defer child.Release()
	return array.NewData(typ, c.len(),
		[]*memory.Buffer{nil, memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(c.offsets))},
		[]arrow.ArrayData{child}, 0, 0)
}
