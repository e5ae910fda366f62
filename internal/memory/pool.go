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

// Package memory pools the Arrow allocators handed to stream readers.
package memory

import (
	"sync"
	"sync/atomic"

	"github.com/apache/arrow/go/v17/arrow/memory"
)

var (
	memPool = sync.Pool{
		New: func() interface{} {
			return memory.NewGoAllocator()
		},
	}
	leased atomic.Int64
)

// GetAllocator leases an allocator from the pool, creating one when the pool
// is empty.
func GetAllocator() memory.Allocator {
	leased.Add(1)
	return memPool.Get().(memory.Allocator)
}

// PutAllocator returns a leased allocator. Nil is ignored.
func PutAllocator(alloc memory.Allocator) {
	if alloc == nil {
		return
	}
	leased.Add(-1)
	memPool.Put(alloc)
}

// Leased reports how many allocators are out of the pool.
func Leased() int64 {
	return leased.Load()
}
