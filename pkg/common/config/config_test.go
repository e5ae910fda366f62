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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const job = `
version: "1"
name: nightly
log:
  level: debug
  format: json
storage:
  s3:
    region: eu-west-1
    access_key: ${GEOARC_TEST_KEY}
workers: 2
jobs:
  - name: cities
    driver: CSV
    locators: [data/cities.csv]
    geometry_column: wkt
    geometry_type: Point
    delimiter: ";"
    has_header: false
    null_values: [NA]
    batch_size: 100
    projection: [column_0, wkt]
    output:
      format: geojson
      path: out/cities.geojson
  - name: parcels
    driver: geojson
    locators: [s3://bucket/a.geojsonl.gz, gs://bucket/b.geojsonl.gz]
    sequence: true
    compression: gzip
    limit: 10
    output:
      path: out/parcels
`

func TestParseConfig(t *testing.T) {
	t.Setenv("GEOARC_TEST_KEY", "AKIA123")

	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(job), 0o644))

	cfg, err := ParseConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, "AKIA123", cfg.Storage.S3.AccessKey)
	assert.Equal(t, 2, cfg.Workers)
	require.Len(t, cfg.Jobs, 2)

	cities := cfg.Jobs[0]
	opts, err := cities.SourceOptions(nil, nil)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	o := opts[0]
	assert.Equal(t, source.DriverCSV, o.Driver)
	assert.Equal(t, "data/cities.csv", o.Locator)
	assert.Equal(t, "wkt", o.GeometryColumn)
	assert.Equal(t, geoarrow.Point, o.GeometryType)
	assert.Equal(t, ';', o.Delimiter)
	assert.True(t, o.NoHeader)
	assert.Equal(t, []string{"NA"}, o.NullValues)
	assert.Equal(t, 100, o.BatchSize)
	assert.Equal(t, []string{"column_0", "wkt"}, o.Projection)
	assert.Equal(t, "out/cities.geojson", cities.OutputPath(0))
	assert.Equal(t, "geojson", cities.OutputFormat())

	parcels := cfg.Jobs[1]
	opts, err = parcels.SourceOptions(nil, nil)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.True(t, opts[1].Sequence)
	assert.Equal(t, "gzip", opts[1].Compression)
	assert.Equal(t, 10, opts[1].Limit)
	assert.False(t, opts[1].NoHeader)
	assert.Equal(t, "ipc", parcels.OutputFormat())
	assert.Equal(t, filepath.Join("out/parcels", "001-b.geojsonl.arrow"), parcels.OutputPath(1))
}

func TestValidateCollectsProblems(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(strings.NewReader(`
workers: -1
log:
  level: loud
jobs:
  - driver: csv
    locators: [x.csv]
    output: {path: out.arrow}
  - name: b
    driver: kml
    locators: [ftp://host/x.kml]
    output: {path: out.arrow}
  - name: b
    driver: geojson
    locators: []
    output: {path: out.arrow}
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.Configuration))
	msg := err.Error()
	for _, want := range []string{
		"workers must not be negative",
		`unknown log level "loud"`,
		"job 0: name cannot be empty",
		"geometry_column is required",
		`unknown driver "kml"`,
		`job "b": duplicate name`,
		"at least one locator is required",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("jobs: [\n"))
	assert.ErrorIs(t, err, geoerr.Configuration)

	_, err = Parse(strings.NewReader("unknown_key: 1\n"))
	assert.ErrorIs(t, err, geoerr.Configuration)

	_, err = ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, geoerr.Io)

	cfg, err := Parse(strings.NewReader("jobs:\n  - name: a\n    driver: csv\n    geometry_column: g\n    delimiter: ab\n    locators: [x.csv]\n    output: {path: o}\n"))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "must be a single character")
}
