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

// Package source streams geospatial files into Arrow record batches: it
// resolves the locator, samples records for schema inference, then assembles
// the full pass into batches of a fixed size.
package source

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrowarc/geoarc/internal/storage"
	"github.com/arrowarc/geoarc/pkg/batch"
	"github.com/arrowarc/geoarc/pkg/csv"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/geojson"
	"github.com/arrowarc/geoarc/pkg/schema"
	"github.com/go-kit/log"
)

// Driver selects the record extractor.
type Driver string

const (
	DriverCSV     Driver = "csv"
	DriverGeoJSON Driver = "geojson"
)

// ParseDriver reads a case-insensitive driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case DriverCSV, DriverGeoJSON:
		return d, nil
	case "":
		return "", geoerr.New(geoerr.Configuration, "driver is required (csv or geojson)")
	default:
		return "", geoerr.New(geoerr.Configuration, "unknown driver %q (expected csv or geojson)", s)
	}
}

// Compression names accepted by Options.Compression.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
)

type Options struct {
	Driver  Driver
	Locator string

	// GeometryColumn names the WKT column of delimited sources (required) and
	// the geometry column of the output schema.
	GeometryColumn string
	GeometryType   geoarrow.GeometryType

	// Delimited sources only.
	Delimiter  rune
	NoHeader   bool
	NullValues []string

	// Sequence reads GeoJSON one document per line without loading the
	// whole payload.
	Sequence bool

	// BatchSize defaults to batch.DefaultBatchSize.
	BatchSize int
	// SampleSize bounds schema inference. It defaults per driver.
	SampleSize int
	// Projection lists the output columns. Nil keeps every column.
	Projection []string
	// Limit stops after this many records. Zero means no limit.
	Limit int
	// Compression is "none" (default) or "gzip".
	Compression string

	// Schema skips inference when set.
	Schema *schema.Schema

	Resolver  *storage.Resolver
	Allocator memory.Allocator
	Logger    log.Logger
}

func (o *Options) validate() error {
	driver, err := ParseDriver(string(o.Driver))
	if err != nil {
		return err
	}
	if o.Locator == "" {
		return geoerr.New(geoerr.Configuration, "locator is required")
	}
	if driver == DriverCSV && o.GeometryColumn == "" {
		return geoerr.New(geoerr.Configuration, "geometry column name is required for delimited sources").In(o.Locator)
	}
	if o.BatchSize < 0 || o.SampleSize < 0 || o.Limit < 0 {
		return geoerr.New(geoerr.Configuration, "batch size, sample size and limit must not be negative").In(o.Locator)
	}
	switch strings.ToLower(o.Compression) {
	case "", CompressionNone, CompressionGzip:
	default:
		return geoerr.New(geoerr.Configuration, "unknown compression %q", o.Compression).In(o.Locator)
	}
	return nil
}

func (o *Options) withDefaults() Options {
	out := *o
	out.Driver = Driver(strings.ToLower(string(o.Driver)))
	out.Compression = strings.ToLower(o.Compression)
	if out.BatchSize == 0 {
		out.BatchSize = batch.DefaultBatchSize
	}
	if out.SampleSize == 0 {
		if out.Driver == DriverCSV {
			out.SampleSize = csv.DefaultSampleSize
		} else {
			out.SampleSize = geojson.DefaultSampleSize
		}
	}
	if out.Limit > 0 && out.SampleSize > out.Limit {
		out.SampleSize = out.Limit
	}
	if out.Resolver == nil {
		out.Resolver = storage.NewResolver(storage.Config{}, out.Logger)
	}
	if out.Logger == nil {
		out.Logger = log.NewNopLogger()
	}
	return out
}

func (o *Options) schemaOptions() schema.Options {
	return schema.Options{GeometryColumn: o.GeometryColumn, GeometryType: o.GeometryType}
}

func (o *Options) csvOptions() *csv.CSVReadOptions {
	return &csv.CSVReadOptions{
		Delimiter:      o.Delimiter,
		HasHeader:      !o.NoHeader,
		GeometryColumn: o.GeometryColumn,
		NullValues:     o.NullValues,
		Limit:          o.Limit,
		Locator:        o.Locator,
	}
}

func (o *Options) geojsonOptions() geojson.Options {
	return geojson.Options{Limit: o.Limit, Locator: o.Locator}
}
