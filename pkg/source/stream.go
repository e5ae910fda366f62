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
	"context"
	"errors"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"golang.org/x/sync/errgroup"
)

// ReadGeoFileStream reads the source on its own goroutine and sends each
// batch on the returned channel. At most one error is sent. Both channels are
// closed when the stream ends. Cancelling ctx stops the reads and releases the
// storage handle; a batch that was not delivered is released.
func ReadGeoFileStream(ctx context.Context, opts Options) (<-chan arrow.Record, <-chan error) {
	recordChan := make(chan arrow.Record)
	errChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errChan)

		reader, err := NewReader(ctx, opts)
		if err != nil {
			errChan <- err
			return
		}
		defer reader.Close()

		for {
			record, err := reader.Read()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errChan <- err
				}
				return
			}

			select {
			case recordChan <- record:
			case <-ctx.Done():
				record.Release()
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return recordChan, errChan
}

// ReadMany reads every source, at most workers at a time (unbounded when
// workers <= 0). fn receives each batch with the index of its source; calls
// for one source are sequential and in batch order, calls for different
// sources may run concurrently. fn owns the record. The first error cancels
// the remaining sources and is returned.
func ReadMany(ctx context.Context, sources []Options, workers int, fn func(source int, rec arrow.Record) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i := range sources {
		i := i
		g.Go(func() error {
			reader, err := NewReader(ctx, sources[i])
			if err != nil {
				return err
			}
			defer reader.Close()

			for {
				rec, err := reader.Read()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := fn(i, rec); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}
