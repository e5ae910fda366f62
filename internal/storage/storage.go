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

// Package storage opens source objects named by locators: local paths, S3,
// GCS, Azure Blob, HTTP(S) and any registered objstore bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/arrowarc/geoarc/internal/logging"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
	"github.com/thanos-io/objstore"
)

// ErrNotFound is wrapped by every backend when the object does not exist.
var ErrNotFound = errors.New("file not found")

// Backend reads objects from one storage service.
type Backend interface {
	// Open returns a reader over the object at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Close releases the clients held by the backend.
	Close() error

	// Type returns the storage type identifier ("local", "s3", etc.)
	Type() string
}

// Fetcher is implemented by backends with a faster whole-object read than
// Open followed by io.ReadAll.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

type AzureConfig struct {
	ConnectionString   string `yaml:"connection_string"`
	AccountName        string `yaml:"account_name"`
	AccountKey         string `yaml:"account_key"`
	SASToken           string `yaml:"sas_token"`
	UseManagedIdentity bool   `yaml:"use_managed_identity"`
	Endpoint           string `yaml:"endpoint"`
}

// Config carries the credentials of every remote backend. Empty fields fall
// back to the usual environment variables of each SDK.
type Config struct {
	S3    S3Config    `yaml:"s3"`
	GCS   GCSConfig   `yaml:"gcs"`
	Azure AzureConfig `yaml:"azure"`
	// HTTPClient is used for http(s) locators. Defaults to http.DefaultClient.
	HTTPClient *http.Client `yaml:"-"`
}

// Resolver maps locators to backends. It is safe for concurrent use.
type Resolver struct {
	cfg    Config
	logger log.Logger

	mu      sync.RWMutex
	buckets map[string]objstore.Bucket
}

func NewResolver(cfg Config, logger log.Logger) *Resolver {
	return &Resolver{
		cfg:     cfg,
		logger:  logging.Component(logger, "storage"),
		buckets: make(map[string]objstore.Bucket),
	}
}

// Register serves locators of the form scheme://dir/object from bkt.
func (r *Resolver) Register(scheme string, bkt objstore.Bucket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[strings.ToLower(scheme)] = bkt
}

func (r *Resolver) schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.buckets))
	for s := range r.buckets {
		out = append(out, s)
	}
	return out
}

// Resolve returns a backend for locator and the object path within it. The
// caller closes the backend.
func (r *Resolver) Resolve(ctx context.Context, locator string) (Backend, string, error) {
	loc, err := ParseLocation(locator, r.schemes()...)
	if err != nil {
		return nil, "", err
	}
	level.Debug(r.logger).Log("msg", "resolving locator", "locator", locator, "type", loc.Type)

	var b Backend
	switch loc.Type {
	case TypeLocal:
		return NewLocalBackend(), loc.Key, nil
	case TypeHTTP:
		return NewHTTPBackend(r.cfg.HTTPClient), loc.URL, nil
	case TypeS3:
		b, err = NewS3Backend(ctx, loc.Bucket, r.cfg.S3, r.logger)
	case TypeGCS:
		b, err = NewGCSBackend(ctx, loc.Bucket, r.cfg.GCS)
	case TypeAzure:
		cfg := r.cfg.Azure
		if loc.Account != "" && cfg.ConnectionString == "" {
			cfg.AccountName = loc.Account
		}
		b, err = NewAzureBackend(loc.Bucket, cfg, r.logger)
	default:
		r.mu.RLock()
		bkt := r.buckets[loc.Type]
		r.mu.RUnlock()
		return NewBucketBackend(bkt, loc.Type), loc.Bucket + "/" + loc.Key, nil
	}
	if err != nil {
		return nil, "", geoerr.Wrap(geoerr.Configuration, err).In(locator)
	}
	return b, loc.Key, nil
}

// Open resolves locator and opens its object. Closing the reader also closes
// the backend.
func (r *Resolver) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	b, path, err := r.Resolve(ctx, locator)
	if err != nil {
		return nil, err
	}
	rc, err := b.Open(ctx, path)
	if err != nil {
		b.Close()
		return nil, geoerr.WithLocator(err, locator)
	}
	return &handle{ReadCloser: rc, backend: b}, nil
}

// ReadAll resolves locator and reads its whole object.
func (r *Resolver) ReadAll(ctx context.Context, locator string) ([]byte, error) {
	b, path, err := r.Resolve(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if f, ok := b.(Fetcher); ok {
		data, err := f.Fetch(ctx, path)
		return data, geoerr.WithLocator(err, locator)
	}

	rc, err := b.Open(ctx, path)
	if err != nil {
		return nil, geoerr.WithLocator(err, locator)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, geoerr.Wrap(geoerr.Io, err).In(locator)
	}
	return data, nil
}

// handle ties an object reader to the backend that produced it.
type handle struct {
	io.ReadCloser
	backend Backend
	once    sync.Once
	err     error
}

func (h *handle) Close() error {
	h.once.Do(func() {
		var errs *multierror.Error
		if err := h.ReadCloser.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := h.backend.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		h.err = errs.ErrorOrNil()
	})
	return h.err
}

func notFound(path string) error {
	return geoerr.Wrap(geoerr.Io, fmt.Errorf("%w: %s", ErrNotFound, path))
}
