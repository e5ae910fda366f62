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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
)

// IPCWriter streams batches to an Arrow IPC stream file. It keeps an xxhash
// digest of every byte written so runs can be compared cheaply.
type IPCWriter struct {
	f      *os.File
	digest *xxhash.Digest
	w      *ipc.Writer
	rows   int64
	closed bool
}

// NewIPCWriter creates filePath and writes the schema header.
func NewIPCWriter(filePath string, schema *arrow.Schema, mem memory.Allocator) (*IPCWriter, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not create file: %w", err)
	}
	d := xxhash.New()
	return &IPCWriter{
		f:      f,
		digest: d,
		w:      ipc.NewWriter(io.MultiWriter(f, d), ipc.WithAllocator(mem), ipc.WithSchema(schema)),
	}, nil
}

// Write appends rec. The caller keeps ownership of rec.
func (w *IPCWriter) Write(rec arrow.Record) error {
	if err := w.w.Write(rec); err != nil {
		return fmt.Errorf("could not write record: %w", err)
	}
	w.rows += rec.NumRows()
	return nil
}

// Rows returns the number of rows written so far.
func (w *IPCWriter) Rows() int64 { return w.rows }

// Checksum returns the xxhash64 of the bytes written so far. It is final once
// Close has returned.
func (w *IPCWriter) Checksum() uint64 { return w.digest.Sum64() }

// Close writes the end-of-stream marker and closes the file.
func (w *IPCWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var errs *multierror.Error
	if err := w.w.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("could not close writer: %w", err))
	}
	if err := w.f.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// IPCReader reads back a file written by IPCWriter.
type IPCReader struct {
	f *os.File
	r *ipc.Reader
}

func NewIPCReader(filePath string, mem memory.Allocator) (*IPCReader, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC file: %w", err)
	}
	r, err := ipc.NewReader(f, ipc.WithAllocator(mem))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create IPC reader: %w", err)
	}
	return &IPCReader{f: f, r: r}, nil
}

func (r *IPCReader) Schema() *arrow.Schema { return r.r.Schema() }

// Read returns the next batch or io.EOF. The caller owns the record.
func (r *IPCReader) Read() (arrow.Record, error) {
	if !r.r.Next() {
		if err := r.r.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading IPC file: %w", err)
		}
		return nil, io.EOF
	}
	rec := r.r.Record()
	rec.Retain()
	return rec, nil
}

func (r *IPCReader) Close() error {
	r.r.Release()
	return r.f.Close()
}
