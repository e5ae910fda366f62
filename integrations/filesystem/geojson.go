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
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/arrowarc/geoarc/internal/json"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type feature struct {
	Type       string            `json:"type"`
	Properties json.RawMessage   `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

// GeoJSONWriter writes batches with a GeoArrow geometry column as GeoJSON
// features, either inside one FeatureCollection or one feature per line.
type GeoJSONWriter struct {
	f        *os.File
	bw       *bufio.Writer
	sequence bool
	written  int64
	closed   bool
}

// NewGeoJSONWriter creates filePath. With sequence set the output is
// newline-delimited GeoJSON.
func NewGeoJSONWriter(filePath string, sequence bool) (*GeoJSONWriter, error) {
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not create file: %w", err)
	}
	w := &GeoJSONWriter{f: f, bw: bufio.NewWriter(f), sequence: sequence}
	if !sequence {
		w.bw.WriteString(`{"type":"FeatureCollection","features":[`)
	}
	return w, nil
}

// Rows returns the number of features written so far.
func (w *GeoJSONWriter) Rows() int64 { return w.written }

// Write appends one feature per row of rec. The first column carrying GeoArrow
// metadata becomes the geometry; every other column becomes a property.
func (w *GeoJSONWriter) Write(rec arrow.Record) error {
	geomCol := -1
	var geomType geoarrow.GeometryType
	for i, f := range rec.Schema().Fields() {
		if t, ok := geoarrow.TypeFromField(f); ok {
			geomCol, geomType = i, t
			break
		}
	}

	for row := 0; row < int(rec.NumRows()); row++ {
		props, err := properties(rec, row, geomCol)
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		feat := feature{Type: "Feature", Properties: props}
		if geomCol >= 0 {
			g, err := geoarrow.ValueAt(rec.Column(geomCol), geomType, row)
			if err != nil {
				return fmt.Errorf("row %d: %w", row, err)
			}
			if g != nil && !isEmptyPoint(g) {
				feat.Geometry = geojson.NewGeometry(g)
			}
		}

		data, err := json.Marshal(feat)
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if err := w.writeFeature(data); err != nil {
			return err
		}
	}
	return nil
}

// properties renders the non-geometry columns of row as a JSON object with
// keys in schema order.
func properties(rec arrow.Record, row, geomCol int) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i, f := range rec.Schema().Fields() {
		if i == geomCol {
			continue
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(rec.Column(i).GetOneForMarshal(row))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// isEmptyPoint reports the NaN point used for POINT EMPTY, which GeoJSON
// cannot represent.
func isEmptyPoint(g orb.Geometry) bool {
	p, ok := g.(orb.Point)
	return ok && math.IsNaN(p[0]) && math.IsNaN(p[1])
}

func (w *GeoJSONWriter) writeFeature(data []byte) error {
	if !w.sequence && w.written > 0 {
		w.bw.WriteByte(',')
	}
	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	if w.sequence {
		w.bw.WriteByte('\n')
	}
	w.written++
	return nil
}

// Close terminates the collection and closes the file.
func (w *GeoJSONWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.sequence {
		w.bw.WriteString("]}")
	}
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
