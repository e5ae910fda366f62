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

package storage

import (
	"context"
	"io"

	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/thanos-io/objstore"
)

// BucketBackend adapts an objstore.Bucket. The bucket is owned by whoever
// registered it, so Close leaves it open.
type BucketBackend struct {
	bkt    objstore.Bucket
	scheme string
}

func NewBucketBackend(bkt objstore.Bucket, scheme string) *BucketBackend {
	return &BucketBackend{bkt: bkt, scheme: scheme}
}

func (b *BucketBackend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := b.bkt.Get(ctx, name)
	if err != nil {
		if b.bkt.IsObjNotFoundErr(err) {
			return nil, notFound(name)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, geoerr.Wrap(geoerr.Io, err)
	}
	return rc, nil
}

func (b *BucketBackend) Close() error { return nil }

func (b *BucketBackend) Type() string { return b.scheme }
