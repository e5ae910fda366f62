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

// Package wkt decodes Well-Known-Text geometries into orb geometries.
//
// Only X and Y are kept. Z and M ordinates, whether announced by a dimension
// suffix or not, are read and discarded. An optional EWKT "SRID=n;" prefix is
// accepted and ignored.
package wkt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/paulmach/orb"
)

// SyntaxError describes where and why a WKT string failed to decode.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("wkt: offset %d: %s", e.Offset, e.Msg)
}

// Decode parses text. Blank text decodes to a nil geometry. Any failure is a
// geoerr.Parse error wrapping a *SyntaxError; no partial geometry is returned.
func Decode(text string) (orb.Geometry, error) {
	p := &parser{src: text}
	p.skipSpace()
	if p.eof() {
		return nil, nil
	}
	if err := p.srid(); err != nil {
		return nil, err
	}

	g, err := p.geometry()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf(p.pos, "unexpected trailing input %q", p.rest())
	}
	return g, nil
}

// MustDecode is like Decode but panics on error. It is meant for tests and
// static tables.
func MustDecode(text string) orb.Geometry {
	g, err := Decode(text)
	if err != nil {
		panic(err)
	}
	return g
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) rest() string {
	r := p.src[p.pos:]
	if len(r) > 16 {
		r = r[:16] + "..."
	}
	return r
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) errorf(offset int, format string, args ...any) error {
	return geoerr.Wrap(geoerr.Parse, &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)})
}

// word consumes a run of ASCII letters and returns it upper-cased.
func (p *parser) word() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			break
		}
		p.pos++
	}
	return strings.ToUpper(p.src[start:p.pos])
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.eof() {
			return p.errorf(p.pos, "expected %q, found end of input", c)
		}
		return p.errorf(p.pos, "expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

// more consumes a ',' and reports true, or reports false on ')'.
func (p *parser) more() (bool, error) {
	p.skipSpace()
	switch p.peek() {
	case ',':
		p.pos++
		return true, nil
	case ')':
		return false, nil
	case 0:
		return false, p.errorf(p.pos, "expected ',' or ')', found end of input")
	default:
		return false, p.errorf(p.pos, "expected ',' or ')', found %q", p.peek())
	}
}

// empty consumes an EMPTY keyword when one follows.
func (p *parser) empty() bool {
	p.skipSpace()
	save := p.pos
	if p.word() == "EMPTY" {
		return true
	}
	p.pos = save
	return false
}

func (p *parser) srid() error {
	if len(p.src)-p.pos < 5 || !strings.EqualFold(p.src[p.pos:p.pos+5], "SRID=") {
		return nil
	}
	end := strings.IndexByte(p.src[p.pos:], ';')
	if end < 0 {
		return p.errorf(p.pos, "SRID prefix is not terminated by ';'")
	}
	p.pos += end + 1
	p.skipSpace()
	return nil
}

var keywords = []string{
	"GEOMETRYCOLLECTION",
	"MULTILINESTRING",
	"MULTIPOLYGON",
	"MULTIPOINT",
	"LINESTRING",
	"POLYGON",
	"POINT",
}

// splitKeyword separates a dimension suffix glued to the type keyword, as in
// POINTZ or LINESTRINGZM.
func splitKeyword(w string) (string, bool) {
	for _, kw := range keywords {
		if !strings.HasPrefix(w, kw) {
			continue
		}
		switch w[len(kw):] {
		case "", "Z", "M", "ZM":
			return kw, true
		}
	}
	return "", false
}

func (p *parser) geometry() (orb.Geometry, error) {
	p.skipSpace()
	start := p.pos
	w := p.word()
	if w == "" {
		if p.eof() {
			return nil, p.errorf(start, "expected geometry type keyword, found end of input")
		}
		return nil, p.errorf(start, "expected geometry type keyword, found %q", p.peek())
	}
	kw, ok := splitKeyword(w)
	if !ok {
		return nil, p.errorf(start, "unknown geometry type %q", w)
	}

	p.skipSpace()
	save := p.pos
	switch p.word() {
	case "Z", "M", "ZM":
	default:
		p.pos = save
	}

	if p.empty() {
		return emptyOf(kw), nil
	}

	switch kw {
	case "POINT":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		c, err := p.coord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return c, nil
	case "LINESTRING":
		return p.lineString()
	case "POLYGON":
		return p.polygon()
	case "MULTIPOINT":
		return p.multiPoint()
	case "MULTILINESTRING":
		return p.multiLineString()
	case "MULTIPOLYGON":
		return p.multiPolygon()
	default:
		return p.collection()
	}
}

func emptyOf(kw string) orb.Geometry {
	switch kw {
	case "POINT":
		return orb.Point{math.NaN(), math.NaN()}
	case "LINESTRING":
		return orb.LineString{}
	case "POLYGON":
		return orb.Polygon{}
	case "MULTIPOINT":
		return orb.MultiPoint{}
	case "MULTILINESTRING":
		return orb.MultiLineString{}
	case "MULTIPOLYGON":
		return orb.MultiPolygon{}
	default:
		return orb.Collection{}
	}
}

func (p *parser) number() (float64, error) {
	p.skipSpace()
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',' || c == '(' || c == ')' {
			break
		}
		p.pos++
	}
	tok := p.src[start:p.pos]
	if tok == "" {
		if p.eof() {
			return 0, p.errorf(start, "expected number, found end of input")
		}
		return 0, p.errorf(start, "expected number, found %q", p.peek())
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, p.errorf(start, "malformed number %q", tok)
	}
	return f, nil
}

// coord reads 2 to 4 whitespace separated ordinates and keeps X and Y.
func (p *parser) coord() (orb.Point, error) {
	start := p.pos
	var pt orb.Point
	n := 0
	for {
		p.skipSpace()
		if c := p.peek(); c == ',' || c == ')' || c == 0 {
			break
		}
		if n == 4 {
			return pt, p.errorf(p.pos, "coordinate has more than 4 ordinates")
		}
		f, err := p.number()
		if err != nil {
			return pt, err
		}
		if n < 2 {
			pt[n] = f
		}
		n++
	}
	if n < 2 {
		return pt, p.errorf(start, "coordinate needs at least 2 ordinates, found %d", n)
	}
	return pt, nil
}

func (p *parser) coords() ([]orb.Point, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var pts []orb.Point
	for {
		c, err := p.coord()
		if err != nil {
			return nil, err
		}
		pts = append(pts, c)
		ok, err := p.more()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return pts, p.expect(')')
}

func (p *parser) lineString() (orb.LineString, error) {
	pts, err := p.coords()
	if err != nil {
		return nil, err
	}
	return orb.LineString(pts), nil
}

func (p *parser) ring() (orb.Ring, error) {
	p.skipSpace()
	start := p.pos
	pts, err := p.coords()
	if err != nil {
		return nil, err
	}
	if len(pts) < 4 {
		return nil, p.errorf(start, "ring needs at least 4 coordinates, found %d", len(pts))
	}
	if pts[0] != pts[len(pts)-1] {
		return nil, p.errorf(start, "ring is not closed")
	}
	return orb.Ring(pts), nil
}

func (p *parser) polygon() (orb.Polygon, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var poly orb.Polygon
	for {
		r, err := p.ring()
		if err != nil {
			return nil, err
		}
		poly = append(poly, r)
		ok, err := p.more()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return poly, p.expect(')')
}

// multiPoint accepts both MULTIPOINT((1 2),(3 4)) and MULTIPOINT(1 2,3 4).
func (p *parser) multiPoint() (orb.MultiPoint, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var mp orb.MultiPoint
	for {
		p.skipSpace()
		var (
			pt  orb.Point
			err error
		)
		switch {
		case p.peek() == '(':
			p.pos++
			if pt, err = p.coord(); err != nil {
				return nil, err
			}
			if err = p.expect(')'); err != nil {
				return nil, err
			}
		case p.empty():
			pt = orb.Point{math.NaN(), math.NaN()}
		default:
			if pt, err = p.coord(); err != nil {
				return nil, err
			}
		}
		mp = append(mp, pt)
		ok, err := p.more()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return mp, p.expect(')')
}

func (p *parser) multiLineString() (orb.MultiLineString, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var mls orb.MultiLineString
	for {
		if p.empty() {
			mls = append(mls, orb.LineString{})
		} else {
			ls, err := p.lineString()
			if err != nil {
				return nil, err
			}
			mls = append(mls, ls)
		}
		ok, err := p.more()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return mls, p.expect(')')
}

func (p *parser) multiPolygon() (orb.MultiPolygon, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var mp orb.MultiPolygon
	for {
		if p.empty() {
			mp = append(mp, orb.Polygon{})
		} else {
			poly, err := p.polygon()
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		ok, err := p.more()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return mp, p.expect(')')
}

func (p *parser) collection() (orb.Collection, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var c orb.Collection
	for {
		g, err := p.geometry()
		if err != nil {
			return nil, err
		}
		c = append(c, g)
		ok, err := p.more()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return c, p.expect(')')
}
