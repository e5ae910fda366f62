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
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		locator string
		want    Location
	}{
		{"data/cities.csv", Location{Type: TypeLocal, Key: filepath.Clean("data/cities.csv")}},
		{"file:///tmp/x.geojson", Location{Type: TypeLocal, Key: filepath.FromSlash("/tmp/x.geojson")}},
		{"s3://bucket/a/b.csv", Location{Type: TypeS3, Bucket: "bucket", Key: "a/b.csv"}},
		{"s3a://bucket/b.csv", Location{Type: TypeS3, Bucket: "bucket", Key: "b.csv"}},
		{"gs://bkt/x.json", Location{Type: TypeGCS, Bucket: "bkt", Key: "x.json"}},
		{"az://container/dir/x.json", Location{Type: TypeAzure, Bucket: "container", Key: "dir/x.json"}},
		{"azure://container/x.json", Location{Type: TypeAzure, Bucket: "container", Key: "x.json"}},
		{"abfss://cont@acct.dfs.core.windows.net/p/x.csv", Location{Type: TypeAzure, Bucket: "cont", Account: "acct", Key: "p/x.csv"}},
		{"https://acct.blob.core.windows.net/cont/x.csv", Location{Type: TypeAzure, Bucket: "cont", Account: "acct", Key: "x.csv"}},
		{"https://example.com/data.geojson", Location{Type: TypeHTTP, URL: "https://example.com/data.geojson"}},
		{"mem://dir/x.csv", Location{Type: "mem", Bucket: "dir", Key: "x.csv"}},
	}
	for _, tc := range cases {
		got, err := ParseLocation(tc.locator, "mem")
		require.NoError(t, err, tc.locator)
		assert.Equal(t, tc.want, got, tc.locator)
	}
}

func TestParseLocationErrors(t *testing.T) {
	t.Parallel()

	for _, locator := range []string{"", "ftp://host/x.csv", "s3://bucket", "s3:///key", "abfs://acct.dfs.core.windows.net/x"} {
		_, err := ParseLocation(locator)
		assert.True(t, errors.Is(err, geoerr.Configuration), locator)
	}
}

func TestResolverLocal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "points.csv")
	require.NoError(t, os.WriteFile(path, []byte("geometry\nPOINT(1 2)\n"), 0o644))

	r := NewResolver(Config{}, log.NewNopLogger())
	ctx := context.Background()

	data, err := r.ReadAll(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "geometry\nPOINT(1 2)\n", string(data))

	rc, err := r.Open(ctx, "file://"+filepath.ToSlash(path))
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	require.NoError(t, rc.Close())
	require.NoError(t, rc.Close())

	_, err = r.Open(ctx, filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.Io))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "missing.csv")
}

func TestResolverHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/ok.geojson":
			_, _ = w.Write([]byte(`{"type":"Point","coordinates":[1,2]}`))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	r := NewResolver(Config{HTTPClient: srv.Client()}, nil)
	ctx := context.Background()

	data, err := r.ReadAll(ctx, srv.URL+"/ok.geojson")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Point")

	_, err = r.ReadAll(ctx, srv.URL+"/nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.ReadAll(ctx, srv.URL+"/broken")
	assert.True(t, errors.Is(err, geoerr.Io))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestResolverBucket(t *testing.T) {
	t.Parallel()

	bkt := objstore.NewInMemBucket()
	ctx := context.Background()
	require.NoError(t, bkt.Upload(ctx, "dir/a.csv", bytes.NewReader([]byte("geometry\n"))))

	r := NewResolver(Config{}, log.NewNopLogger())
	r.Register("mem", bkt)

	data, err := r.ReadAll(ctx, "mem://dir/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "geometry\n", string(data))

	_, err = r.Open(ctx, "mem://dir/missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var ge *geoerr.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "mem://dir/missing.csv", ge.Locator)
}

func TestResolverUnknownScheme(t *testing.T) {
	t.Parallel()

	r := NewResolver(Config{}, nil)
	_, err := r.Open(context.Background(), "ftp://host/file.csv")
	assert.True(t, errors.Is(err, geoerr.Configuration))
}

func TestRemoteBackendsConstruct(t *testing.T) {
	t.Parallel()

	s3b, err := NewS3Backend(context.Background(), "bucket", S3Config{
		Region:    "eu-west-1",
		Endpoint:  "localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
		PathStyle: true,
	}, log.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, TypeS3, s3b.Type())
	assert.NoError(t, s3b.Close())

	_, err = NewS3Backend(context.Background(), "", S3Config{}, log.NewNopLogger())
	assert.Error(t, err)

	azb, err := NewAzureBackend("container", AzureConfig{
		ConnectionString: "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;",
	}, log.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, TypeAzure, azb.Type())

	_, err = NewAzureBackend("", AzureConfig{}, log.NewNopLogger())
	assert.Error(t, err)
}
