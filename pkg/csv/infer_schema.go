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
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/record"
	"github.com/arrowarc/geoarc/pkg/schema"
)

// InferCSVSchema samples up to sampleSize rows of r (DefaultSampleSize when
// zero) and infers their schema. The geometry column is typed as target.
func InferCSVSchema(ctx context.Context, r io.Reader, opts *CSVReadOptions, sampleSize int, target geoarrow.GeometryType) (*schema.Schema, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	ext, err := NewExtractor(r, opts)
	if err != nil {
		return nil, err
	}

	sample, err := schema.Sample(ctx, ext, sampleSize)
	if err != nil {
		return nil, err
	}
	return schema.Infer(sample, schema.Options{
		GeometryColumn: opts.GeometryColumn,
		GeometryType:   target,
	}), nil
}

// InferValue types a raw token: integer, then float, then true/false in any
// case, then string. The empty token and any of nullValues read as Null.
// Typed values keep the token for string rendering.
func InferValue(token string, nullValues []string) record.Value {
	if token == "" || isNullValue(token, nullValues) {
		return record.NullValue()
	}

	if looksNumeric(token) {
		if i, err := strconv.ParseInt(token, 10, 64); err == nil {
			return record.IntegerValue(i).WithRaw(token)
		}
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return record.FloatValue(f).WithRaw(token)
		}
	}

	switch {
	case strings.EqualFold(token, "true"):
		return record.BoolValue(true).WithRaw(token)
	case strings.EqualFold(token, "false"):
		return record.BoolValue(false).WithRaw(token)
	}

	return record.StringValue(token)
}

// looksNumeric rejects tokens ParseFloat would accept but that read as words,
// such as "NaN" or "Infinity", and Go literal forms: digit separators and
// hexadecimal mantissas.
func looksNumeric(token string) bool {
	if !strings.ContainsAny(token, "0123456789") || strings.ContainsRune(token, '_') {
		return false
	}
	unsigned := strings.TrimLeft(token, "+-")
	return !strings.HasPrefix(unsigned, "0x") && !strings.HasPrefix(unsigned, "0X")
}

func isNullValue(value string, nullValues []string) bool {
	for _, nullValue := range nullValues {
		if value == nullValue {
			return true
		}
	}
	return false
}
