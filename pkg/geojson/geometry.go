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

// Package geojson decodes GeoJSON geometries and extracts records from
// GeoJSON documents and newline-delimited GeoJSON sequences.
package geojson

import (
	"fmt"

	"github.com/arrowarc/geoarc/internal/json"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/paulmach/orb"
)

// PathError is a decoding failure at a JSON path such as
// $.features[3].geometry.coordinates[0].
type PathError struct {
	Path string
	Msg  string
}

func (e *PathError) Error() string { return e.Path + ": " + e.Msg }

func pathErr(path, format string, args ...any) *geoerr.Error {
	return geoerr.Wrap(geoerr.Parse, &PathError{Path: path, Msg: fmt.Sprintf(format, args...)})
}

// DecodeGeometry decodes a GeoJSON geometry object. The literal null decodes
// to a nil geometry.
func DecodeGeometry(data []byte) (orb.Geometry, error) {
	return decodeGeometryAt(data, "$")
}

func decodeGeometryAt(data []byte, path string) (orb.Geometry, error) {
	if isNull(data) {
		return nil, nil
	}
	var v any
	if err := json.NewNumberDecoder(data).Decode(&v); err != nil {
		return nil, pathErr(path, "invalid JSON: %v", err)
	}
	return decodeGeometryValue(v, path)
}

func decodeGeometryValue(v any, path string) (orb.Geometry, error) {
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, pathErr(path, "expected geometry object, found %s", describe(v))
	}

	typ, ok := obj["type"].(string)
	if !ok {
		return nil, pathErr(path, `geometry has no "type" member`)
	}
	coordPath := path + ".coordinates"
	coords := obj["coordinates"]

	switch typ {
	case "Point":
		return position(coords, coordPath)
	case "LineString":
		pts, err := positions(coords, coordPath)
		if err != nil {
			return nil, err
		}
		return orb.LineString(pts), nil
	case "MultiPoint":
		pts, err := positions(coords, coordPath)
		if err != nil {
			return nil, err
		}
		return orb.MultiPoint(pts), nil
	case "Polygon":
		return polygon(coords, coordPath)
	case "MultiLineString":
		arr, err := array(coords, coordPath)
		if err != nil {
			return nil, err
		}
		mls := make(orb.MultiLineString, 0, len(arr))
		for i, line := range arr {
			pts, err := positions(line, index(coordPath, i))
			if err != nil {
				return nil, err
			}
			mls = append(mls, orb.LineString(pts))
		}
		return mls, nil
	case "MultiPolygon":
		arr, err := array(coords, coordPath)
		if err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(arr))
		for i, p := range arr {
			poly, err := polygon(p, index(coordPath, i))
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		return mp, nil
	case "GeometryCollection":
		geomPath := path + ".geometries"
		arr, err := array(obj["geometries"], geomPath)
		if err != nil {
			return nil, err
		}
		c := make(orb.Collection, 0, len(arr))
		for i, member := range arr {
			memberPath := index(geomPath, i)
			g, err := decodeGeometryValue(member, memberPath)
			if err != nil {
				return nil, err
			}
			if g == nil {
				return nil, pathErr(memberPath, "geometry collection member is null")
			}
			c = append(c, g)
		}
		return c, nil
	default:
		return nil, pathErr(path+".type", "unknown geometry type %q", typ)
	}
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func array(v any, path string) ([]any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, pathErr(path, "expected array, found %s", describe(v))
	}
	return arr, nil
}

// position decodes one coordinate. Ordinates past the second are discarded.
// Element types are checked before arity so a position nested one level too
// deep reports the depth mismatch.
func position(v any, path string) (orb.Point, error) {
	arr, err := array(v, path)
	if err != nil {
		return orb.Point{}, err
	}
	var pt orb.Point
	for i, o := range arr {
		n, ok := o.(json.Number)
		if !ok {
			if _, nested := o.([]any); nested {
				return orb.Point{}, pathErr(index(path, i), "expected number, found array (coordinates nested too deeply)")
			}
			return orb.Point{}, pathErr(index(path, i), "expected number, found %s", describe(o))
		}
		f, err := n.Float64()
		if err != nil {
			return orb.Point{}, pathErr(index(path, i), "malformed number %q", n.String())
		}
		if i < 2 {
			pt[i] = f
		}
	}
	if len(arr) < 2 {
		return orb.Point{}, pathErr(path, "position needs at least 2 ordinates, found %d", len(arr))
	}
	return pt, nil
}

func positions(v any, path string) ([]orb.Point, error) {
	arr, err := array(v, path)
	if err != nil {
		return nil, err
	}
	pts := make([]orb.Point, 0, len(arr))
	for i, p := range arr {
		pt, err := position(p, index(path, i))
		if err != nil {
			return nil, err
		}
		pts = append(pts, pt)
	}
	return pts, nil
}

func polygon(v any, path string) (orb.Polygon, error) {
	arr, err := array(v, path)
	if err != nil {
		return nil, err
	}
	poly := make(orb.Polygon, 0, len(arr))
	for i, r := range arr {
		ringPath := index(path, i)
		pts, err := positions(r, ringPath)
		if err != nil {
			return nil, err
		}
		if len(pts) < 4 {
			return nil, pathErr(ringPath, "ring needs at least 4 positions, found %d", len(pts))
		}
		if pts[0] != pts[len(pts)-1] {
			return nil, pathErr(ringPath, "ring is not closed")
		}
		poly = append(poly, orb.Ring(pts))
	}
	return poly, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
