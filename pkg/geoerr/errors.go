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

// Package geoerr defines the error taxonomy shared by the decoders, extractors,
// builders and readers of geoarc.
//
// Every error carries a Kind so callers can branch with errors.Is:
//
//	if errors.Is(err, geoerr.Parse) { ... }
//
// and, where available, the locator of the source and a position inside it.
package geoerr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies an ingestion failure.
type Kind int

const (
	// Io is a storage read failure (network, permission, not found).
	Io Kind = iota + 1
	// Parse is malformed WKT, malformed JSON or a grammar mismatch.
	Parse
	// Geometry is a shape mismatch against the target geometry type.
	Geometry
	// Validation is a property value that does not fit the inferred schema.
	Validation
	// Configuration is a missing or invalid option.
	Configuration
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case Parse:
		return "parse"
	case Geometry:
		return "geometry"
	case Validation:
		return "validation"
	case Configuration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string { return k.String() + " error" }

// Position locates a failure inside a source. Zero fields are unknown.
type Position struct {
	Line      int
	Column    int
	Record    int
	Offset    int64
	HasOffset bool
	Field     string
}

// AtLine returns a position holding only a 1-based line number.
func AtLine(line int) Position { return Position{Line: line} }

// AtOffset returns a position holding only a byte offset.
func AtOffset(offset int64) Position { return Position{Offset: offset, HasOffset: true} }

// IsZero reports whether no part of the position is known.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0 && p.Record == 0 && !p.HasOffset && p.Field == ""
}

func (p Position) String() string {
	var parts []string
	if p.Line > 0 {
		parts = append(parts, "line "+strconv.Itoa(p.Line))
	}
	if p.Column > 0 {
		parts = append(parts, "column "+strconv.Itoa(p.Column))
	}
	if p.Record > 0 {
		parts = append(parts, "record "+strconv.Itoa(p.Record))
	}
	if p.HasOffset {
		parts = append(parts, "byte "+strconv.FormatInt(p.Offset, 10))
	}
	if p.Field != "" {
		parts = append(parts, "field "+p.Field)
	}
	return strings.Join(parts, ", ")
}

// Error is the concrete error type returned by geoarc packages.
type Error struct {
	Kind    Kind
	Locator string
	Pos     Position
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Locator != "" {
		b.WriteString(" in ")
		b.WriteString(e.Locator)
	}
	if !e.Pos.IsZero() {
		b.WriteString(" at ")
		b.WriteString(e.Pos.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// At sets the position and returns the receiver.
func (e *Error) At(pos Position) *Error {
	e.Pos = pos
	return e
}

// In sets the locator and returns the receiver.
func (e *Error) In(locator string) *Error {
	e.Locator = locator
	return e
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

// WithLocator stamps locator on the first *Error in err's chain when it has
// none. Errors of other types, except context cancellation, are wrapped as Io
// errors.
func WithLocator(err error, locator string) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ge *Error
	if errors.As(err, &ge) {
		if ge.Locator == "" {
			ge.Locator = locator
		}
		return err
	}
	return &Error{Kind: Io, Locator: locator, Err: err}
}
