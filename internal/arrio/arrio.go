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

// Package arrio exposes functions to move record batches between readers and
// writers, using interfaces not unlike the ones defined in the stdlib io
// package.
package arrio

import (
	"context"
	"errors"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
)

// Reader is the interface that wraps the Read method.
type Reader interface {
	// Read returns the next record, owned by the caller. When the Reader
	// reaches the end of the underlying stream, it returns (nil, io.EOF).
	Read() (arrow.Record, error)
}

// Writer is the interface that wraps the Write method. Write does not take
// ownership of rec.
type Writer interface {
	Write(rec arrow.Record) error
}

// Copy copies all the records available from src to dst, releasing each one
// once written. It returns the number of records and rows copied and the
// first error encountered, if any.
//
// A successful Copy returns err == nil, not err == EOF. Because Copy is
// defined to read from src until EOF, it does not treat an EOF from Read as an
// error to be reported.
func Copy(ctx context.Context, dst Writer, src Reader) (n, rows int64, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return n, rows, err
		}
		rec, err := src.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, rows, nil
			}
			return n, rows, err
		}
		err = dst.Write(rec)
		nr := rec.NumRows()
		rec.Release()
		if err != nil {
			return n, rows, err
		}
		n++
		rows += nr
	}
}
