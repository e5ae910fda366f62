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
	"net/url"
	"path/filepath"
	"strings"

	"github.com/arrowarc/geoarc/pkg/geoerr"
)

// Backend type identifiers.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
	TypeGCS   = "gcs"
	TypeAzure = "azure"
	TypeHTTP  = "http"
)

// Location is a parsed storage locator.
type Location struct {
	// Type is one of the Type constants, or a registered bucket scheme.
	Type string
	// Bucket is the bucket or container name.
	Bucket string
	// Account is the Azure storage account, when the locator names one.
	Account string
	// Key is the object key, or the file path for local locators.
	Key string
	// URL is the full URL for HTTP locators.
	URL string
}

// ParseLocation classifies locator by scheme. A locator without a scheme is a
// local path. custom lists additional schemes served by registered buckets.
func ParseLocation(locator string, custom ...string) (Location, error) {
	if strings.TrimSpace(locator) == "" {
		return Location{}, geoerr.New(geoerr.Configuration, "empty storage locator")
	}
	if !strings.Contains(locator, "://") {
		return Location{Type: TypeLocal, Key: filepath.Clean(locator)}, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return Location{}, geoerr.Wrap(geoerr.Configuration, err).In(locator)
	}
	key := strings.TrimPrefix(u.Path, "/")

	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "file":
		return Location{Type: TypeLocal, Key: filepath.FromSlash(u.Path)}, nil
	case "s3", "s3a":
		return bucketLocation(TypeS3, u.Host, key, locator)
	case "gs":
		return bucketLocation(TypeGCS, u.Host, key, locator)
	case "az", "adl", "azure":
		return bucketLocation(TypeAzure, u.Host, key, locator)
	case "abfs", "abfss":
		// abfs://container@account.dfs.core.windows.net/path
		if u.User == nil || u.User.Username() == "" {
			return Location{}, geoerr.New(geoerr.Configuration, "abfs locator must name a container as container@account").In(locator)
		}
		loc, err := bucketLocation(TypeAzure, u.User.Username(), key, locator)
		loc.Account = accountOf(u.Hostname())
		return loc, err
	case "http", "https":
		if isAzureHost(u.Hostname()) {
			container, blob, _ := strings.Cut(key, "/")
			loc, err := bucketLocation(TypeAzure, container, blob, locator)
			loc.Account = accountOf(u.Hostname())
			return loc, err
		}
		return Location{Type: TypeHTTP, URL: locator}, nil
	default:
		for _, c := range custom {
			if scheme == c {
				return bucketLocation(scheme, u.Host, key, locator)
			}
		}
		return Location{}, geoerr.New(geoerr.Configuration, "unsupported storage scheme %q", u.Scheme).In(locator)
	}
}

func bucketLocation(typ, bucket, key, locator string) (Location, error) {
	loc := Location{Type: typ, Bucket: bucket, Key: key}
	if bucket == "" || key == "" {
		return loc, geoerr.New(geoerr.Configuration, "%s locator needs a bucket and an object key", typ).In(locator)
	}
	return loc, nil
}

func isAzureHost(host string) bool {
	host = strings.ToLower(host)
	for _, suffix := range []string{"blob.core.windows.net", "dfs.core.windows.net", "blob.fabric.microsoft.com", "dfs.fabric.microsoft.com"} {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func accountOf(host string) string {
	account, _, _ := strings.Cut(host, ".")
	return account
}
