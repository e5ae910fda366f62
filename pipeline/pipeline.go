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

// Package pipeline moves batches from a reader to a writer and reports what
// went through.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/arrowarc/geoarc/internal/arrio"
	"github.com/arrowarc/geoarc/internal/interfaces"
	"github.com/arrowarc/geoarc/internal/json"
	"github.com/arrowarc/geoarc/internal/logging"
	"github.com/arrowarc/geoarc/pkg/source"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid"
	"golang.org/x/sync/errgroup"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a sortable identifier for one pipeline run.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Metrics stores pipeline processing metrics
type Metrics struct {
	sync.Mutex
	RunID            string
	Batches          int64
	RecordsProcessed int64
	TotalBytes       int64
	StartTime        time.Time
	EndTime          time.Time
	TotalDuration    time.Duration
	Throughput       float64
	ThroughputBytes  float64
}

func (m *Metrics) add(rec arrow.Record) {
	m.Lock()
	defer m.Unlock()
	m.Batches++
	m.RecordsProcessed += rec.NumRows()
	m.TotalBytes += calculateRecordSize(rec)
}

// merge folds o into m. Start and end times widen to cover both.
func (m *Metrics) merge(o *Metrics) {
	m.Lock()
	defer m.Unlock()
	m.Batches += o.Batches
	m.RecordsProcessed += o.RecordsProcessed
	m.TotalBytes += o.TotalBytes
	if m.StartTime.IsZero() || o.StartTime.Before(m.StartTime) {
		m.StartTime = o.StartTime
	}
	if o.EndTime.After(m.EndTime) {
		m.EndTime = o.EndTime
	}
}

// UpdateMetrics calculates the total duration, throughput, and throughput in bytes.
func (m *Metrics) UpdateMetrics() {
	m.Lock()
	defer m.Unlock()

	m.TotalDuration = m.EndTime.Sub(m.StartTime)
	if m.TotalDuration > 0 {
		m.Throughput = float64(m.RecordsProcessed) / m.TotalDuration.Seconds()
		m.ThroughputBytes = float64(m.TotalBytes) / m.TotalDuration.Seconds()
	} else {
		m.Throughput = 0
		m.ThroughputBytes = 0
	}
}

// Report renders the metrics as indented JSON.
func (m *Metrics) Report() string {
	m.Lock()
	defer m.Unlock()

	report := struct {
		RunID            string  `json:"run_id"`
		Batches          int64   `json:"batches"`
		RecordsProcessed int64   `json:"records_processed"`
		TotalBytes       int64   `json:"total_bytes"`
		TotalDuration    string  `json:"total_duration"`
		Throughput       float64 `json:"throughput_records_per_second"`
		ThroughputBytes  float64 `json:"throughput_bytes_per_second"`
	}{
		RunID:            m.RunID,
		Batches:          m.Batches,
		RecordsProcessed: m.RecordsProcessed,
		TotalBytes:       m.TotalBytes,
		TotalDuration:    m.TotalDuration.String(),
		Throughput:       m.Throughput,
		ThroughputBytes:  m.ThroughputBytes,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error generating report: %v", err)
	}
	return string(data)
}

// calculateRecordSize calculates the approximate size of a record based on its columns
func calculateRecordSize(record arrow.Record) int64 {
	size := int64(0)
	for _, col := range record.Columns() {
		size += dataSize(col.Data())
	}
	return size
}

func dataSize(d arrow.ArrayData) int64 {
	var size int64
	for _, buf := range d.Buffers() {
		if buf != nil {
			size += int64(buf.Len())
		}
	}
	for _, child := range d.Children() {
		size += dataSize(child)
	}
	return size
}

// Option configures a DataPipeline.
type Option func(*DataPipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(dp *DataPipeline) { dp.logger = logger }
}

// WithBuffer sets how many batches may wait between the reader and the
// writer. Zero reads and writes on the calling goroutine.
func WithBuffer(n int) Option {
	return func(dp *DataPipeline) { dp.buffer = n }
}

// DataPipeline defines the structure for a data processing pipeline
type DataPipeline struct {
	reader  interfaces.Reader
	writer  interfaces.Writer
	logger  log.Logger
	buffer  int
	metrics *Metrics
}

// NewDataPipeline creates a pipeline that owns reader and writer; both are
// closed when Start returns.
func NewDataPipeline(reader interfaces.Reader, writer interfaces.Writer, opts ...Option) *DataPipeline {
	dp := &DataPipeline{
		reader:  reader,
		writer:  writer,
		buffer:  16,
		metrics: &Metrics{RunID: NewRunID()},
	}
	for _, opt := range opts {
		opt(dp)
	}
	dp.logger = log.With(logging.Component(dp.logger, "pipeline"), "run", dp.metrics.RunID)
	return dp
}

// Metrics returns the metrics collected so far.
func (dp *DataPipeline) Metrics() *Metrics { return dp.metrics }

// Write meters rec and hands it to the underlying writer.
func (dp *DataPipeline) Write(rec arrow.Record) error {
	if err := dp.writer.Write(rec); err != nil {
		return err
	}
	dp.metrics.add(rec)
	return nil
}

// Start runs the pipeline to completion and returns the metrics report.
func (dp *DataPipeline) Start(ctx context.Context) (string, error) {
	dp.metrics.StartTime = time.Now()
	level.Info(dp.logger).Log("msg", "pipeline started", "buffer", dp.buffer)

	var err error
	if dp.buffer <= 0 {
		_, _, err = arrio.Copy(ctx, dp, dp.reader)
	} else {
		err = dp.run(ctx)
	}
	if cerr := dp.close(); cerr != nil && err == nil {
		err = cerr
	}

	dp.metrics.EndTime = time.Now()
	dp.metrics.UpdateMetrics()
	if err != nil {
		level.Error(dp.logger).Log("msg", "pipeline failed", "records", dp.metrics.RecordsProcessed, "err", err)
		return "", err
	}
	level.Info(dp.logger).Log(
		"msg", "pipeline complete",
		"batches", dp.metrics.Batches,
		"records", dp.metrics.RecordsProcessed,
		"bytes", dp.metrics.TotalBytes,
		"duration", dp.metrics.TotalDuration,
		"records_per_second", dp.metrics.Throughput,
	)
	return dp.metrics.Report(), nil
}

// run reads on one goroutine and writes on another.
func (dp *DataPipeline) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	ch := make(chan arrow.Record, dp.buffer)

	g.Go(func() error {
		defer close(ch)
		for {
			rec, err := dp.reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case ch <- rec:
			case <-ctx.Done():
				rec.Release()
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for rec := range ch {
			err := dp.Write(rec)
			rec.Release()
			if err != nil {
				return err
			}
		}
		return nil
	})

	err := g.Wait()
	for rec := range ch {
		rec.Release()
	}
	return err
}

func (dp *DataPipeline) close() error {
	var errs *multierror.Error
	if err := dp.reader.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close reader: %w", err))
	}
	if err := dp.writer.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close writer: %w", err))
	}
	return errs.ErrorOrNil()
}

// SinkFactory opens the writer for one source once its schema is known.
type SinkFactory func(source int, schema *arrow.Schema) (interfaces.Writer, error)

// IngestMany reads every source, at most workers at a time, into the writer
// newSink returns for it. The returned metrics cover all sources.
func IngestMany(ctx context.Context, sources []source.Options, workers int, newSink SinkFactory, logger log.Logger) (*Metrics, error) {
	total := &Metrics{RunID: NewRunID(), StartTime: time.Now()}
	logger = log.With(logging.Component(logger, "pipeline"), "run", total.RunID)

	var (
		mu    sync.Mutex
		sinks = make(map[int]interfaces.Writer, len(sources))
		stats = make(map[int]*Metrics, len(sources))
	)
	sinkFor := func(i int, schema *arrow.Schema) (interfaces.Writer, *Metrics, error) {
		mu.Lock()
		defer mu.Unlock()
		if w, ok := sinks[i]; ok {
			return w, stats[i], nil
		}
		w, err := newSink(i, schema)
		if err != nil {
			return nil, nil, err
		}
		sinks[i] = w
		stats[i] = &Metrics{StartTime: time.Now()}
		return w, stats[i], nil
	}

	err := source.ReadMany(ctx, sources, workers, func(i int, rec arrow.Record) error {
		defer rec.Release()
		w, m, err := sinkFor(i, rec.Schema())
		if err != nil {
			return err
		}
		if err := w.Write(rec); err != nil {
			return err
		}
		m.add(rec)
		m.EndTime = time.Now()
		return nil
	})

	var errs *multierror.Error
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for i, w := range sinks {
		if cerr := w.Close(); cerr != nil {
			errs = multierror.Append(errs, fmt.Errorf("close sink %d: %w", i, cerr))
		}
		total.merge(stats[i])
		level.Debug(logger).Log("msg", "source done", "source", i, "locator", sources[i].Locator, "records", stats[i].RecordsProcessed)
	}
	total.EndTime = time.Now()
	total.UpdateMetrics()

	if err := errs.ErrorOrNil(); err != nil {
		level.Error(logger).Log("msg", "ingest failed", "err", err)
		return total, err
	}
	level.Info(logger).Log("msg", "ingest complete", "sources", len(sources), "records", total.RecordsProcessed, "duration", total.TotalDuration)
	return total, nil
}
