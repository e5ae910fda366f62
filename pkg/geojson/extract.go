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

package geojson

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/arrowarc/geoarc/internal/json"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/record"
	"github.com/hashicorp/go-multierror"
)

// DefaultSampleSize is the number of features sampled for schema inference
// when no limit is configured.
const DefaultSampleSize = 1024

// Options configure an Extractor.
type Options struct {
	// Limit stops extraction after this many records. Zero means no limit.
	Limit int
	// Locator names the source in errors.
	Locator string
}

// pending is one feature (or bare geometry) waiting to be decoded.
type pending struct {
	raw      json.RawMessage
	path     string
	pos      geoerr.Position
	geometry bool
}

// Extractor yields one record per GeoJSON feature. It reads either a whole
// document held in memory (FeatureCollection, Feature or bare geometry) or a
// sequence of documents, one per line.
type Extractor struct {
	opts    Options
	queue   []pending
	lines   *lineSource
	emitted int
}

// NewExtractor detects the layout of payload. It first parses payload as a
// single document and, when that fails, as a newline-delimited sequence. When
// both fail the returned Parse error quotes both failures.
func NewExtractor(payload []byte, opts Options) (*Extractor, error) {
	queue, docErr := expand(payload, "$", geoerr.Position{})
	if docErr == nil {
		return &Extractor{opts: opts, queue: queue}, nil
	}

	e := NewSequenceExtractor(bytes.NewReader(payload), opts)
	if seqErr := e.prime(); seqErr != nil {
		merr := multierror.Append(nil,
			fmt.Errorf("not a GeoJSON document: %w", docErr),
			fmt.Errorf("not a GeoJSON sequence: %w", seqErr),
		)
		merr.ErrorFormat = joinErrors
		return nil, geoerr.Wrap(geoerr.Parse, merr).In(opts.Locator)
	}
	return e, nil
}

// NewSequenceExtractor reads one GeoJSON document per line from r, pulling
// lines as records are requested. Blank lines and RFC 8142 record separators
// are skipped. A sequence without any feature is a Parse error.
func NewSequenceExtractor(r io.Reader, opts Options) *Extractor {
	return &Extractor{
		opts:  opts,
		lines: &lineSource{r: bufio.NewReader(r)},
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// prime reads ahead until at least one feature is queued.
func (e *Extractor) prime() error {
	for len(e.queue) == 0 {
		units, err := e.lines.next()
		if err != nil {
			if errors.Is(err, io.EOF) && e.lines.found == 0 {
				return geoerr.New(geoerr.Parse, "no GeoJSON features found").In(e.opts.Locator)
			}
			return err
		}
		e.queue = append(e.queue, units...)
	}
	return nil
}

// Next returns the next record or io.EOF.
func (e *Extractor) Next() (*record.Record, error) {
	if e.opts.Limit > 0 && e.emitted >= e.opts.Limit {
		return nil, io.EOF
	}
	if len(e.queue) == 0 {
		if e.lines == nil {
			return nil, io.EOF
		}
		if err := e.prime(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, geoerr.WithLocator(err, e.opts.Locator)
		}
	}

	u := e.queue[0]
	e.queue = e.queue[1:]
	e.emitted++

	u.pos.Record = e.emitted
	rec, err := decodeFeature(u)
	if err != nil {
		return nil, geoerr.WithLocator(err, e.opts.Locator)
	}
	return rec, nil
}

// expand splits one GeoJSON document into its features.
func expand(raw []byte, path string, pos geoerr.Position) ([]pending, error) {
	var head struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&head); err != nil {
		return nil, geoerr.Wrap(geoerr.Parse, err).At(pos)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, geoerr.New(geoerr.Parse, "unexpected data after top-level value").At(pos)
	}

	switch head.Type {
	case "FeatureCollection":
		units := make([]pending, len(head.Features))
		for i, f := range head.Features {
			units[i] = pending{raw: f, path: index(path+".features", i), pos: pos}
		}
		return units, nil
	case "Feature":
		return []pending{{raw: raw, path: path, pos: pos}}, nil
	case "Point", "LineString", "Polygon", "MultiPoint", "MultiLineString", "MultiPolygon", "GeometryCollection":
		return []pending{{raw: raw, path: path, pos: pos, geometry: true}}, nil
	case "":
		return nil, geoerr.New(geoerr.Parse, `document has no "type" member`).At(pos)
	default:
		return nil, geoerr.New(geoerr.Parse, "unsupported GeoJSON type %q", head.Type).At(pos)
	}
}

func decodeFeature(u pending) (*record.Record, error) {
	rec := &record.Record{Pos: u.pos}
	if u.geometry {
		g, err := decodeGeometryAt(u.raw, u.path)
		if err != nil {
			return nil, atPos(err, u.pos)
		}
		rec.Geometry = g
		return rec, nil
	}

	var f struct {
		Type       string          `json:"type"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(u.raw, &f); err != nil {
		return nil, pathErr(u.path, "invalid feature: %v", err).At(u.pos)
	}
	if f.Type != "Feature" {
		return nil, pathErr(u.path+".type", `expected "Feature", found %q`, f.Type).At(u.pos)
	}

	props, err := decodeProperties(f.Properties, u.path+".properties")
	if err != nil {
		return nil, atPos(err, u.pos)
	}
	rec.Properties = props

	g, err := decodeGeometryAt(f.Geometry, u.path+".geometry")
	if err != nil {
		return nil, atPos(err, u.pos)
	}
	rec.Geometry = g
	return rec, nil
}

func atPos(err error, pos geoerr.Position) error {
	var ge *geoerr.Error
	if errors.As(err, &ge) && ge.Pos.IsZero() {
		ge.Pos = pos
	}
	return err
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// lineSource pulls newline-delimited documents from a reader.
type lineSource struct {
	r      *bufio.Reader
	line   int
	offset int64
	found  int
}

// next returns the features of the next non-blank line.
func (s *lineSource) next() ([]pending, error) {
	for {
		buf, err := s.r.ReadBytes('\n')
		if len(buf) == 0 && err != nil {
			return nil, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		s.line++
		pos := geoerr.Position{Line: s.line, Offset: s.offset, HasOffset: true}
		s.offset += int64(len(buf))

		line := bytes.TrimSpace(bytes.TrimLeft(buf, "\x1e"))
		if len(line) == 0 {
			continue
		}
		if !utf8.Valid(line) {
			return nil, geoerr.New(geoerr.Parse, "line is not valid UTF-8").At(pos)
		}

		units, perr := expand(line, "$", pos)
		if perr != nil {
			return nil, perr
		}
		s.found += len(units)
		if len(units) > 0 {
			return units, nil
		}
	}
}
