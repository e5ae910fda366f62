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

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/arrowarc/geoarc/internal/logging"
	memoryPool "github.com/arrowarc/geoarc/internal/memory"
	"github.com/arrowarc/geoarc/pkg/batch"
	"github.com/arrowarc/geoarc/pkg/csv"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/geojson"
	"github.com/arrowarc/geoarc/pkg/record"
	"github.com/arrowarc/geoarc/pkg/schema"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
)

// StreamIDKey is the schema metadata key holding the stream id.
const StreamIDKey = "geoarc:stream_id"

// Read strategies.
const (
	StrategyWholePayload = "whole-payload"
	StrategyIncremental  = "incremental"
)

// Stats counts what a Reader has produced so far.
type Stats struct {
	Records int64
	Batches int64
	// Bytes is the number of (decompressed) source bytes consumed.
	Bytes int64
}

// Reader pulls batches from one source. It is not safe for concurrent use.
type Reader struct {
	ctx     context.Context
	opts    Options
	id      string
	logger  log.Logger
	started time.Time

	columns *schema.Schema
	asm     *batch.Assembler

	payload []byte
	ext     record.Extractor
	handle  io.Closer
	pooled  bool
	recs    []*record.Record

	drained bool
	err     error
	closed  bool

	records atomic.Int64
	batches atomic.Int64
	bytes   atomic.Int64
}

// NewReader infers the schema of the source (unless Options.Schema is set)
// and opens it for the full pass. ctx bounds the whole stream: once it is
// done, Read fails and the storage handle is released.
func NewReader(ctx context.Context, opts Options) (*Reader, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	r := newReader(ctx, opts)

	columns := r.opts.Schema
	if columns == nil {
		var err error
		if columns, err = r.infer(ctx); err != nil {
			r.Close()
			return nil, err
		}
	}
	r.columns = columns
	r.bytes.Store(0)

	asm, err := batch.NewAssembler(columns, batch.Options{
		Projection: r.opts.Projection,
		Allocator:  r.opts.Allocator,
		Metadata:   map[string]string{StreamIDKey: r.id},
	})
	if err != nil {
		r.Close()
		return nil, geoerr.WithLocator(err, r.opts.Locator)
	}
	r.asm = asm

	if r.ext, r.handle, err = r.open(ctx); err != nil {
		r.Close()
		return nil, err
	}
	level.Info(r.logger).Log("msg", "stream opened", "strategy", r.Strategy(), "columns", len(asm.Schema().Fields()), "batch_size", r.opts.BatchSize)
	return r, nil
}

// InferSchema samples the source and returns its schema without starting a
// full pass.
func InferSchema(ctx context.Context, opts Options) (*schema.Schema, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	r := newReader(ctx, opts)
	defer r.Close()
	return r.infer(ctx)
}

func newReader(ctx context.Context, opts Options) *Reader {
	o := opts.withDefaults()
	r := &Reader{
		ctx:     ctx,
		opts:    o,
		id:      uuid.NewString(),
		started: time.Now(),
	}
	if r.opts.Allocator == nil {
		r.opts.Allocator = memoryPool.GetAllocator()
		r.pooled = true
	}
	r.logger = log.With(logging.Component(o.Logger, "source"), "stream", r.id, "locator", o.Locator)
	return r
}

// ID returns the stream id, also stored under StreamIDKey in the schema
// metadata.
func (r *Reader) ID() string { return r.id }

// Strategy reports how the source is read.
func (r *Reader) Strategy() string {
	if r.opts.Driver == DriverGeoJSON && r.opts.Sequence {
		return StrategyIncremental
	}
	return StrategyWholePayload
}

// Schema returns the Arrow schema of every batch.
func (r *Reader) Schema() *arrow.Schema { return r.asm.Schema() }

// ColumnSchema returns the inferred (unprojected) column schema.
func (r *Reader) ColumnSchema() *schema.Schema { return r.columns }

func (r *Reader) Stats() Stats {
	return Stats{
		Records: r.records.Load(),
		Batches: r.batches.Load(),
		Bytes:   r.bytes.Load(),
	}
}

func (r *Reader) infer(ctx context.Context) (*schema.Schema, error) {
	level.Debug(r.logger).Log("msg", "inferring schema", "strategy", r.Strategy(), "sample_size", r.opts.SampleSize)
	ext, handle, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	sample, err := schema.Sample(ctx, ext, r.opts.SampleSize)
	if err != nil {
		return nil, geoerr.WithLocator(err, r.opts.Locator)
	}
	s := schema.Infer(sample, r.opts.schemaOptions())
	level.Debug(r.logger).Log("msg", "schema inferred", "sampled", len(sample), "columns", len(s.Columns))
	return s, nil
}

// open returns a fresh extractor positioned at the first record. The
// incremental strategy reopens the object each time. The whole-payload
// strategy fetches the object once and reuses it.
func (r *Reader) open(ctx context.Context) (record.Extractor, io.Closer, error) {
	if r.Strategy() == StrategyIncremental {
		rc, err := r.opts.Resolver.Open(ctx, r.opts.Locator)
		if err != nil {
			return nil, nil, err
		}
		stream, err := r.decompress(rc)
		if err != nil {
			rc.Close()
			return nil, nil, err
		}
		counted := &countingReader{r: stream, n: &r.bytes}
		return geojson.NewSequenceExtractor(counted, r.opts.geojsonOptions()), stream, nil
	}

	if r.payload == nil {
		data, err := r.opts.Resolver.ReadAll(ctx, r.opts.Locator)
		if err != nil {
			return nil, nil, err
		}
		if r.gzipped() {
			zr, err := gzip.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, nil, geoerr.Wrap(geoerr.Io, fmt.Errorf("gzip: %w", err)).In(r.opts.Locator)
			}
			if data, err = io.ReadAll(zr); err != nil {
				return nil, nil, geoerr.Wrap(geoerr.Io, fmt.Errorf("gzip: %w", err)).In(r.opts.Locator)
			}
		}
		r.payload = data
		level.Debug(r.logger).Log("msg", "payload loaded", "bytes", len(data))
	}

	var (
		ext record.Extractor
		err error
	)
	switch r.opts.Driver {
	case DriverCSV:
		ext, err = csv.NewExtractor(bytes.NewReader(r.payload), r.opts.csvOptions())
	default:
		ext, err = geojson.NewExtractor(r.payload, r.opts.geojsonOptions())
	}
	if err != nil {
		return nil, nil, geoerr.WithLocator(err, r.opts.Locator)
	}
	return ext, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func (r *Reader) gzipped() bool { return r.opts.Compression == CompressionGzip }

func (r *Reader) decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	if !r.gzipped() {
		return rc, nil
	}
	zr, err := gzip.NewReader(rc)
	if err != nil {
		return nil, geoerr.Wrap(geoerr.Io, fmt.Errorf("gzip: %w", err)).In(r.opts.Locator)
	}
	return &gzipStream{Reader: zr, src: rc}, nil
}

// Read returns the next batch, or io.EOF after the last one. A batch holds
// up to BatchSize rows; only the last may be shorter. The caller owns the
// returned record.
func (r *Reader) Read() (arrow.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.closed {
		return nil, io.EOF
	}

	recs := r.recs[:0]
	for !r.drained && len(recs) < r.opts.BatchSize {
		if err := r.ctx.Err(); err != nil {
			return nil, r.fail(err)
		}
		rec, err := r.ext.Next()
		if errors.Is(err, io.EOF) {
			r.drained = true
			r.release()
			break
		}
		if err != nil {
			return nil, r.fail(geoerr.WithLocator(err, r.opts.Locator))
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		r.err = io.EOF
		level.Info(r.logger).Log("msg", "stream complete", "records", r.records.Load(), "batches", r.batches.Load(), "duration", time.Since(r.started))
		return nil, io.EOF
	}

	out, err := r.asm.Assemble(recs)
	clear(recs)
	r.recs = recs[:0]
	if err != nil {
		return nil, r.fail(geoerr.WithLocator(err, r.opts.Locator))
	}
	r.records.Add(int64(len(recs)))
	r.batches.Add(1)
	return out, nil
}

func (r *Reader) fail(err error) error {
	r.err = err
	r.release()
	level.Error(r.logger).Log("msg", "stream failed", "err", err)
	return err
}

// release drops the storage handle and the loaded payload.
func (r *Reader) release() error {
	if r.Strategy() == StrategyWholePayload && r.payload != nil {
		r.bytes.Store(int64(len(r.payload)))
	}
	r.payload = nil
	if r.handle == nil {
		return nil
	}
	err := r.handle.Close()
	r.handle = nil
	return err
}

// Close releases the storage handle. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.release()
	if r.pooled {
		memoryPool.PutAllocator(r.opts.Allocator)
		r.pooled = false
	}
	return err
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

type gzipStream struct {
	*gzip.Reader
	src io.Closer
}

func (g *gzipStream) Close() error {
	var errs *multierror.Error
	if err := g.Reader.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := g.src.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
