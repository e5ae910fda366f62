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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/arrowarc/geoarc/generator"
	integrations "github.com/arrowarc/geoarc/integrations/filesystem"
	"github.com/arrowarc/geoarc/internal/interfaces"
	"github.com/arrowarc/geoarc/internal/logging"
	"github.com/arrowarc/geoarc/internal/storage"
	"github.com/arrowarc/geoarc/pipeline"
	"github.com/arrowarc/geoarc/pkg/common/config"
	"github.com/arrowarc/geoarc/pkg/geoarrow"
	"github.com/arrowarc/geoarc/pkg/source"
	"github.com/docopt/docopt-go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
)

const usage = `geoarc: stream geospatial files into Arrow record batches.

Usage:
  geoarc ingest <locator> --driver=<driver> --output=<path> [options]
  geoarc schema <locator> --driver=<driver> [options]
  geoarc run --config=<file>
  geoarc generate --output=<path> [--rows=<n>] [--layout=<fmt>] [--geometry-type=<type>]
  geoarc -h | --help

Options:
  -h --help                   Show this screen.
  --driver=<driver>           csv or geojson.
  --output=<path>             Output file.
  --format=<fmt>              ipc, parquet, geojson, geojsonl or csv. [default: ipc]
  --geometry-column=<name>    WKT column of delimited sources. [default: geometry]
  --geometry-type=<type>      geometry, point, linestring, polygon, multipoint,
                              multilinestring or multipolygon. [default: geometry]
  --delimiter=<c>             Field delimiter of delimited sources. [default: ,]
  --no-header                 Delimited source has no header row.
  --null=<tokens>             Comma separated tokens read as null.
  --sequence                  Read GeoJSON one feature per line.
  --batch-size=<n>            Rows per batch. [default: 8192]
  --sample-size=<n>           Records sampled for schema inference.
  --select=<columns>          Comma separated output columns.
  --limit=<n>                 Stop after n records.
  --compression=<c>           none or gzip. [default: none]
  --rows=<n>                  Generated rows. [default: 1000]
  --layout=<fmt>              Generated file: csv, geojson or geojsonl. [default: geojson]
  --config=<file>             Job file.
  --env=<file>                .env file with storage credentials. [default: .env]
  --log-level=<lvl>           debug, info, warn or error. [default: info]
  --log-format=<fmt>          logfmt or json. [default: logfmt]
`

func main() {
	args, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(2)
	}

	if envPath, _ := args.String("--env"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", envPath, err)
				os.Exit(1)
			}
		}
	}

	lvl, _ := args.String("--log-level")
	format, _ := args.String("--log-format")
	logger, err := logging.New(os.Stderr, format, lvl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case flag(args, "ingest"):
		err = ingest(ctx, args, logger)
	case flag(args, "schema"):
		err = printSchema(ctx, args, logger)
	case flag(args, "run"):
		err = run(ctx, args)
	case flag(args, "generate"):
		err = generate(args)
	}
	if err != nil {
		level.Error(logger).Log("msg", "command failed", "err", err)
		os.Exit(1)
	}
}

func flag(args docopt.Opts, name string) bool {
	v, _ := args.Bool(name)
	return v
}

func intArg(args docopt.Opts, name string) (int, error) {
	s, _ := args.String(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func listArg(args docopt.Opts, name string) []string {
	s, _ := args.String(name)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func sourceOptions(args docopt.Opts, logger log.Logger) (source.Options, error) {
	locator, _ := args.String("<locator>")
	driver, _ := args.String("--driver")
	geomCol, _ := args.String("--geometry-column")
	geomType, _ := args.String("--geometry-type")
	delim, _ := args.String("--delimiter")
	compression, _ := args.String("--compression")

	d, err := source.ParseDriver(driver)
	if err != nil {
		return source.Options{}, err
	}
	gt, err := geoarrow.ParseGeometryType(geomType)
	if err != nil {
		return source.Options{}, err
	}
	opts := source.Options{
		Driver:         d,
		Locator:        locator,
		GeometryColumn: geomCol,
		GeometryType:   gt,
		NoHeader:       flag(args, "--no-header"),
		NullValues:     listArg(args, "--null"),
		Sequence:       flag(args, "--sequence"),
		Projection:     listArg(args, "--select"),
		Compression:    compression,
		Resolver:       storage.NewResolver(storage.Config{}, logger),
		Logger:         logger,
	}
	if r := []rune(delim); len(r) == 1 {
		opts.Delimiter = r[0]
	} else if delim == `\t` {
		opts.Delimiter = '\t'
	} else {
		return source.Options{}, fmt.Errorf("--delimiter must be a single character")
	}
	if opts.BatchSize, err = intArg(args, "--batch-size"); err != nil {
		return source.Options{}, err
	}
	if opts.SampleSize, err = intArg(args, "--sample-size"); err != nil {
		return source.Options{}, err
	}
	if opts.Limit, err = intArg(args, "--limit"); err != nil {
		return source.Options{}, err
	}
	return opts, nil
}

func ingest(ctx context.Context, args docopt.Opts, logger log.Logger) error {
	opts, err := sourceOptions(args, logger)
	if err != nil {
		return err
	}
	output, _ := args.String("--output")
	format, _ := args.String("--format")

	r, err := source.NewReader(ctx, opts)
	if err != nil {
		return err
	}
	sink, err := integrations.NewSink(format, output, r.Schema(), nil)
	if err != nil {
		r.Close()
		return err
	}

	report, err := pipeline.NewDataPipeline(r, sink, pipeline.WithLogger(logger)).Start(ctx)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

func printSchema(ctx context.Context, args docopt.Opts, logger log.Logger) error {
	opts, err := sourceOptions(args, logger)
	if err != nil {
		return err
	}
	s, err := source.InferSchema(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Println(s.String())
	return nil
}

func run(ctx context.Context, args docopt.Opts) error {
	path, _ := args.String("--config")
	cfg, err := config.ParseConfig(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	resolver := storage.NewResolver(cfg.Storage, logger)

	for _, job := range cfg.Jobs {
		jobLogger := log.With(logger, "job", job.Name)
		opts, err := job.SourceOptions(resolver, jobLogger)
		if err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
		if len(opts) > 1 {
			if err := os.MkdirAll(job.Output.Path, 0o755); err != nil {
				return fmt.Errorf("job %q: %w", job.Name, err)
			}
		}

		m, err := pipeline.IngestMany(ctx, opts, cfg.Workers, func(i int, schema *arrow.Schema) (interfaces.Writer, error) {
			return integrations.NewSink(job.OutputFormat(), job.OutputPath(i), schema, nil)
		}, jobLogger)
		if err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
		fmt.Println(m.Report())
	}
	return nil
}

func generate(args docopt.Opts) error {
	output, _ := args.String("--output")
	format, _ := args.String("--layout")
	geomType, _ := args.String("--geometry-type")
	rows, err := intArg(args, "--rows")
	if err != nil {
		return err
	}
	gt, err := geoarrow.ParseGeometryType(geomType)
	if err != nil {
		return err
	}
	return generator.GenerateFile(output, format, rows, gt)
}
