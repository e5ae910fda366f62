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

package record

import (
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/paulmach/orb"
)

// Property is one named value of a record.
type Property struct {
	Name  string
	Value Value
}

// Properties is an insertion-ordered property map.
type Properties struct {
	list  []Property
	index map[string]int
}

// NewProperties returns an empty property list sized for n entries.
func NewProperties(n int) Properties {
	return Properties{
		list:  make([]Property, 0, n),
		index: make(map[string]int, n),
	}
}

// Set stores v under name. A repeated name keeps its first position and takes
// the latest value.
func (p *Properties) Set(name string, v Value) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[name]; ok {
		p.list[i].Value = v
		return
	}
	p.index[name] = len(p.list)
	p.list = append(p.list, Property{Name: name, Value: v})
}

// Get returns the value stored under name.
func (p *Properties) Get(name string) (Value, bool) {
	i, ok := p.index[name]
	if !ok {
		return Value{}, false
	}
	return p.list[i].Value, true
}

func (p *Properties) Len() int { return len(p.list) }

// All returns the properties in insertion order. The slice must not be
// modified.
func (p *Properties) All() []Property { return p.list }

// Record is one extracted row: its properties, its geometry (nil when absent)
// and where it came from.
type Record struct {
	Properties Properties
	Geometry   orb.Geometry
	Pos        geoerr.Position
}

// Extractor yields the records of one source in order.
type Extractor interface {
	// Next returns the next record, or io.EOF after the last one.
	Next() (*Record, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func() (*Record, error)

func (f ExtractorFunc) Next() (*Record, error) { return f() }
