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

package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/record"
	"github.com/arrowarc/geoarc/pkg/wkt"
)

// DefaultSampleSize is the number of rows sampled for schema inference when
// no limit is configured.
const DefaultSampleSize = 1000

type CSVReadOptions struct {
	Delimiter rune
	HasHeader bool
	// GeometryColumn names the column holding WKT text. It is required.
	GeometryColumn string
	// NullValues lists tokens read as Null in addition to the empty token.
	NullValues []string
	// Limit stops extraction after this many rows. Zero means no limit.
	Limit   int
	Locator string
}

// DefaultCSVReadOptions returns comma-delimited options with a header row.
func DefaultCSVReadOptions(geometryColumn string) *CSVReadOptions {
	return &CSVReadOptions{
		Delimiter:      ',',
		HasHeader:      true,
		GeometryColumn: geometryColumn,
	}
}

// Extractor turns delimited rows into records. The geometry column is decoded
// as WKT and every other column is typed by InferValue.
type Extractor struct {
	reader  *csv.Reader
	opts    CSVReadOptions
	header  []string
	geomIdx int
	first   []string
	rows    int
}

// NewExtractor reads the header (or the first row when there is none) and
// locates the geometry column.
func NewExtractor(r io.Reader, opts *CSVReadOptions) (*Extractor, error) {
	if opts == nil || opts.GeometryColumn == "" {
		return nil, geoerr.New(geoerr.Configuration, "geometry column name is required for delimited sources")
	}
	o := *opts
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}

	reader := csv.NewReader(r)
	reader.Comma = o.Delimiter
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	e := &Extractor{reader: reader, opts: o, geomIdx: -1}

	row, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			if o.HasHeader {
				return nil, geoerr.New(geoerr.Parse, "missing header row").In(o.Locator)
			}
			return nil, geoerr.New(geoerr.Configuration, "geometry column %q not found in empty input", o.GeometryColumn).In(o.Locator)
		}
		return nil, e.readError(err)
	}

	if o.HasHeader {
		e.header = append([]string(nil), row...)
	} else {
		e.header = make([]string, len(row))
		for i := range row {
			e.header[i] = fmt.Sprintf("column_%d", i)
		}
		e.first = append([]string(nil), row...)
	}

	seen := make(map[string]int, len(e.header))
	for i, name := range e.header {
		if first, dup := seen[name]; dup {
			return nil, geoerr.New(geoerr.Configuration, "duplicate column %q in header (positions %d and %d)", name, first, i).
				At(geoerr.Position{Line: 1, Field: name}).
				In(o.Locator)
		}
		seen[name] = i
		if name == o.GeometryColumn {
			e.geomIdx = i
		}
	}
	if e.geomIdx < 0 {
		return nil, geoerr.New(geoerr.Configuration, "geometry column %q not found in header %v", o.GeometryColumn, e.header).In(o.Locator)
	}
	return e, nil
}

// Header returns the column names in file order.
func (e *Extractor) Header() []string { return e.header }

// GeometryIndex returns the position of the geometry column in Header.
func (e *Extractor) GeometryIndex() int { return e.geomIdx }

// Next returns the next row as a record, or io.EOF.
func (e *Extractor) Next() (*record.Record, error) {
	if e.opts.Limit > 0 && e.rows >= e.opts.Limit {
		return nil, io.EOF
	}

	var (
		row []string
		pos geoerr.Position
	)
	if e.first != nil {
		row, e.first = e.first, nil
	} else {
		var err error
		row, err = e.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, e.readError(err)
		}
	}
	// FieldPos refers to the most recent Read, which produced row.
	pos.Line, _ = e.reader.FieldPos(0)
	e.rows++
	pos.Record = e.rows

	rec := &record.Record{
		Properties: record.NewProperties(len(row) - 1),
		Pos:        pos,
	}
	for i, token := range row {
		if i == e.geomIdx {
			continue
		}
		rec.Properties.Set(e.header[i], InferValue(token, e.opts.NullValues))
	}

	g, err := wkt.Decode(row[e.geomIdx])
	if err != nil {
		gpos := pos
		gpos.Field = e.header[e.geomIdx]
		gpos.Line, gpos.Column = e.reader.FieldPos(e.geomIdx)
		var ge *geoerr.Error
		if errors.As(err, &ge) {
			ge.Pos = gpos
			ge.Locator = e.opts.Locator
		}
		return nil, err
	}
	rec.Geometry = g
	return rec, nil
}

func (e *Extractor) readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return geoerr.Wrap(geoerr.Parse, pe.Err).
			At(geoerr.Position{Line: pe.Line, Column: pe.Column, Record: e.rows + 1}).
			In(e.opts.Locator)
	}
	return geoerr.Wrap(geoerr.Io, err).In(e.opts.Locator)
}
