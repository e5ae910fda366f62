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

// Package integrations writes geoarc batches to local files.
package integrations

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrowarc/geoarc/pkg/geoerr"
)

// Sink output formats.
const (
	FormatIPC        = "ipc"
	FormatGeoJSON    = "geojson"
	FormatGeoJSONSeq = "geojsonl"
	FormatCSV        = "csv"
	FormatParquet    = "parquet"
)

// Sink receives batches. Write never takes ownership of the record.
type Sink interface {
	Write(rec arrow.Record) error
	Rows() int64
	Close() error
}

// NewSink opens a file sink for batches of schema in the named format.
func NewSink(format, filePath string, schema *arrow.Schema, mem memory.Allocator) (Sink, error) {
	switch strings.ToLower(format) {
	case FormatIPC, "arrow":
		return NewIPCWriter(filePath, schema, mem)
	case FormatGeoJSON:
		return NewGeoJSONWriter(filePath, false)
	case FormatGeoJSONSeq, "geojsonseq", "ndjson":
		return NewGeoJSONWriter(filePath, true)
	case FormatCSV:
		return NewCSVRecordWriter(filePath, schema, ',', mem)
	case FormatParquet, "geoparquet":
		return NewParquetWriter(filePath, schema, mem)
	default:
		return nil, geoerr.Wrap(geoerr.Configuration, fmt.Errorf("unsupported output format %q", format))
	}
}

var (
	_ Sink = (*GeoJSONWriter)(nil)
	_ Sink = (*IPCWriter)(nil)
	_ Sink = (*CSVRecordWriter)(nil)
	_ Sink = (*ParquetWriter)(nil)
)
