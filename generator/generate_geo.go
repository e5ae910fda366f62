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

// Package generator writes synthetic geospatial datasets for tests and
// benchmarks.
package generator

import (
	"bufio"
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"

	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/go-faker/faker/v4"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// Output formats.
const (
	FormatCSV         = "csv"
	FormatGeoJSON     = "geojson"
	FormatGeoJSONSeq  = "geojsonl"
	GeometryColumnCSV = "geometry"
)

// Feature is one generated row.
type Feature struct {
	ID       int64
	Name     string
	Email    string
	Score    float64
	Active   bool
	Geometry orb.Geometry
}

// Generate returns rows features. shape selects the geometry type; the
// generic type cycles through points, linestrings and polygons.
func Generate(rows int, shape geoarrow.GeometryType) []Feature {
	out := make([]Feature, rows)
	for i := range out {
		out[i] = Feature{
			ID:       int64(i),
			Name:     faker.Name(),
			Email:    faker.Email(),
			Score:    float64(secureRandInt(10000)) / 100,
			Active:   secureRandInt(2) == 1,
			Geometry: geometry(i, shape),
		}
	}
	return out
}

func geometry(i int, shape geoarrow.GeometryType) orb.Geometry {
	c := orb.Point{randomOrdinate(180), randomOrdinate(85)}
	d := 0.001 * float64(1+secureRandInt(100))
	if shape == geoarrow.Geometry {
		shape = [...]geoarrow.GeometryType{geoarrow.Point, geoarrow.LineString, geoarrow.Polygon}[i%3]
	}
	switch shape {
	case geoarrow.LineString:
		return orb.LineString{c, {c[0] + d, c[1]}, {c[0] + d, c[1] + d}}
	case geoarrow.Polygon:
		return orb.Polygon{{c, {c[0] + d, c[1]}, {c[0] + d, c[1] + d}, {c[0], c[1] + d}, c}}
	case geoarrow.MultiPoint:
		return orb.MultiPoint{c, {c[0] + d, c[1] + d}}
	default:
		return c
	}
}

// WriteCSV writes features with a header row and a WKT geometry column.
func WriteCSV(w io.Writer, features []Feature) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "email", "score", "active", GeometryColumnCSV}); err != nil {
		return err
	}
	for _, f := range features {
		err := cw.Write([]string{
			strconv.FormatInt(f.ID, 10),
			f.Name,
			f.Email,
			strconv.FormatFloat(f.Score, 'f', 2, 64),
			strconv.FormatBool(f.Active),
			wkt.MarshalString(f.Geometry),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toGeoJSON(f Feature) *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.Properties["id"] = f.ID
	gf.Properties["name"] = f.Name
	gf.Properties["email"] = f.Email
	gf.Properties["score"] = f.Score
	gf.Properties["active"] = f.Active
	return gf
}

// WriteGeoJSON writes a FeatureCollection, or one feature per line when
// sequence is set.
func WriteGeoJSON(w io.Writer, features []Feature, sequence bool) error {
	if !sequence {
		fc := geojson.NewFeatureCollection()
		for _, f := range features {
			fc.Append(toGeoJSON(f))
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	bw := bufio.NewWriter(w)
	for _, f := range features {
		data, err := toGeoJSON(f).MarshalJSON()
		if err != nil {
			return err
		}
		bw.Write(data)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// GenerateFile writes rows generated features to filePath in format.
func GenerateFile(filePath, format string, rows int, shape geoarrow.GeometryType) error {
	out, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	features := Generate(rows, shape)
	switch format {
	case FormatCSV:
		err = WriteCSV(out, features)
	case FormatGeoJSON:
		err = WriteGeoJSON(out, features, false)
	case FormatGeoJSONSeq:
		err = WriteGeoJSON(out, features, true)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", format, err)
	}
	return out.Close()
}

// randomOrdinate returns a value in [-limit, limit) with six decimals.
func randomOrdinate(limit int64) float64 {
	return float64(secureRandInt(2*limit*1_000_000)-limit*1_000_000) / 1_000_000
}

func secureRandInt(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic(fmt.Sprintf("failed to generate secure random number: %v", err))
	}
	return n.Int64()
}
