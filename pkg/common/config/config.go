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

// Package config loads geoarc job files.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	integrations "github.com/arrowarc/geoarc/integrations/filesystem"
	"github.com/arrowarc/geoarc/internal/logging"
	"github.com/arrowarc/geoarc/internal/storage"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/arrowarc/geoarc/pkg/source"
	"github.com/go-kit/log"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Version string         `yaml:"version"`
	Name    string         `yaml:"name"`
	Log     Log            `yaml:"log"`
	Storage storage.Config `yaml:"storage"`
	Workers int            `yaml:"workers"`
	Jobs    []Job          `yaml:"jobs"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Job reads one or more sources of the same layout into one output each.
type Job struct {
	Name           string   `yaml:"name"`
	Driver         string   `yaml:"driver"`
	Locators       []string `yaml:"locators"`
	GeometryColumn string   `yaml:"geometry_column"`
	GeometryType   string   `yaml:"geometry_type"`
	Delimiter      string   `yaml:"delimiter"`
	HasHeader      *bool    `yaml:"has_header"`
	NullValues     []string `yaml:"null_values"`
	Sequence       bool     `yaml:"sequence"`
	BatchSize      int      `yaml:"batch_size"`
	SampleSize     int      `yaml:"sample_size"`
	Projection     []string `yaml:"projection"`
	Limit          int      `yaml:"limit"`
	Compression    string   `yaml:"compression"`
	Output         Output   `yaml:"output"`
}

type Output struct {
	Format string `yaml:"format"`
	// Path is a file for a single locator and a directory otherwise.
	Path string `yaml:"path"`
}

// ParseConfig reads a job file. ${VAR} references are expanded from the
// environment before decoding.
func ParseConfig(configPath string) (*Config, error) {
	configFile, err := os.Open(configPath)
	if err != nil {
		return nil, geoerr.Wrap(geoerr.Io, err).In(configPath)
	}
	defer configFile.Close()

	cfg, err := Parse(configFile)
	if err != nil {
		return nil, geoerr.WithLocator(err, configPath)
	}
	return cfg, nil
}

func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, geoerr.Wrap(geoerr.Io, err)
	}

	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, geoerr.Wrap(geoerr.Configuration, fmt.Errorf("decode job file: %w", err))
	}
	return &config, nil
}

// Validate reports every problem of the file at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	add := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Workers < 0 {
		add("workers must not be negative")
	}
	if _, err := logging.New(io.Discard, c.Log.Format, c.Log.Level); err != nil {
		add("log: %v", err)
	}
	if len(c.Jobs) == 0 {
		add("at least one job is required")
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		name := job.Name
		if name == "" {
			add("job %d: name cannot be empty", i)
			name = fmt.Sprintf("#%d", i)
		} else if seen[name] {
			add("job %q: duplicate name", name)
		}
		seen[name] = true

		if err := job.validate(); err != nil {
			add("job %q: %v", name, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return geoerr.Wrap(geoerr.Configuration, err)
	}
	return nil
}

func (j *Job) validate() error {
	if len(j.Locators) == 0 {
		return fmt.Errorf("at least one locator is required")
	}
	if j.Output.Path == "" {
		return fmt.Errorf("output path is required")
	}
	switch strings.ToLower(j.Output.Format) {
	case "", integrations.FormatIPC, integrations.FormatParquet, integrations.FormatGeoJSON,
		integrations.FormatGeoJSONSeq, integrations.FormatCSV:
	default:
		return fmt.Errorf("unknown output format %q", j.Output.Format)
	}
	if _, err := j.delimiter(); err != nil {
		return err
	}
	opts, err := j.SourceOptions(nil, nil)
	if err != nil {
		return err
	}
	for _, o := range opts {
		if _, err := storage.ParseLocation(o.Locator); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) delimiter() (rune, error) {
	switch r := []rune(j.Delimiter); len(r) {
	case 0:
		return 0, nil
	case 1:
		return r[0], nil
	default:
		if j.Delimiter == `\t` {
			return '\t', nil
		}
		return 0, fmt.Errorf("delimiter %q must be a single character", j.Delimiter)
	}
}

// SourceOptions returns the reader options of every locator of the job.
func (j *Job) SourceOptions(resolver *storage.Resolver, logger log.Logger) ([]source.Options, error) {
	driver, err := source.ParseDriver(j.Driver)
	if err != nil {
		return nil, err
	}
	gt, err := geoarrow.ParseGeometryType(j.GeometryType)
	if err != nil {
		return nil, err
	}
	delim, err := j.delimiter()
	if err != nil {
		return nil, geoerr.Wrap(geoerr.Configuration, err)
	}
	geomCol := j.GeometryColumn
	if driver == source.DriverCSV && geomCol == "" {
		return nil, geoerr.New(geoerr.Configuration, "geometry_column is required for csv jobs")
	}

	out := make([]source.Options, len(j.Locators))
	for i, locator := range j.Locators {
		out[i] = source.Options{
			Driver:         driver,
			Locator:        locator,
			GeometryColumn: geomCol,
			GeometryType:   gt,
			Delimiter:      delim,
			NoHeader:       j.HasHeader != nil && !*j.HasHeader,
			NullValues:     j.NullValues,
			Sequence:       j.Sequence,
			BatchSize:      j.BatchSize,
			SampleSize:     j.SampleSize,
			Projection:     j.Projection,
			Limit:          j.Limit,
			Compression:    j.Compression,
			Resolver:       resolver,
			Logger:         logger,
		}
		if j.BatchSize < 0 || j.SampleSize < 0 || j.Limit < 0 {
			return nil, geoerr.New(geoerr.Configuration, "batch_size, sample_size and limit must not be negative")
		}
		switch strings.ToLower(j.Compression) {
		case "", source.CompressionNone, source.CompressionGzip:
		default:
			return nil, geoerr.New(geoerr.Configuration, "unknown compression %q", j.Compression)
		}
	}
	return out, nil
}

// OutputPath returns where the batches of locator i go. A job with several
// locators writes one file per locator under Output.Path.
func (j *Job) OutputPath(i int) string {
	if len(j.Locators) == 1 {
		return j.Output.Path
	}
	base := filepath.Base(j.Locators[i])
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(j.Output.Path, fmt.Sprintf("%03d-%s.%s", i, base, j.outputExt()))
}

func (j *Job) outputExt() string {
	switch strings.ToLower(j.Output.Format) {
	case "", integrations.FormatIPC:
		return "arrow"
	default:
		return strings.ToLower(j.Output.Format)
	}
}

// OutputFormat defaults to Arrow IPC.
func (j *Job) OutputFormat() string {
	if j.Output.Format == "" {
		return integrations.FormatIPC
	}
	return j.Output.Format
}
