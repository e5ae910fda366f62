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
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/arrowarc/geoarc/pkg/geoerr"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// AzureBackend reads blobs from one Azure Blob Storage container.
type AzureBackend struct {
	client    *azblob.Client
	container string
}

// NewAzureBackend authenticates with, in order: a connection string, a SAS
// token, a shared key, or the default Azure credential chain.
func NewAzureBackend(container string, cfg AzureConfig, logger log.Logger) (*AzureBackend, error) {
	if container == "" {
		return nil, fmt.Errorf("Azure container name is required")
	}
	if cfg.ConnectionString == "" {
		cfg.ConnectionString = os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	}
	if cfg.AccountName == "" {
		cfg.AccountName = os.Getenv("AZURE_STORAGE_ACCOUNT")
	}
	if cfg.AccountKey == "" {
		cfg.AccountKey = os.Getenv("AZURE_STORAGE_KEY")
	}
	if cfg.SASToken == "" {
		cfg.SASToken = os.Getenv("AZURE_STORAGE_SAS_TOKEN")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.AccountName != "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}

	var (
		client *azblob.Client
		err    error
		method string
	)
	switch {
	case cfg.ConnectionString != "":
		method = "connection string"
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountName != "" && cfg.SASToken != "":
		method = "SAS token"
		serviceURL := fmt.Sprintf("%s?%s", endpoint, strings.TrimPrefix(cfg.SASToken, "?"))
		client, err = azblob.NewClientWithNoCredential(serviceURL, nil)
	case cfg.AccountName != "" && cfg.AccountKey != "":
		method = "shared key"
		cred, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	case cfg.AccountName != "":
		method = "default credential"
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(endpoint, cred, nil)
	default:
		return nil, fmt.Errorf("no Azure storage account configured: provide a connection string or an account name")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client with %s: %w", method, err)
	}
	level.Debug(logger).Log("msg", "created Azure Blob client", "container", container, "auth", method)

	return &AzureBackend{client: client, container: container}, nil
}

func (b *AzureBackend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	blobClient := b.client.ServiceClient().NewContainerClient(b.container).NewBlobClient(name)
	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, notFound("az://" + b.container + "/" + name)
		}
		return nil, geoerr.Wrap(geoerr.Io, fmt.Errorf("failed to read from Azure Blob Storage: %w", err))
	}
	return resp.Body, nil
}

func (b *AzureBackend) Close() error { return nil }

func (b *AzureBackend) Type() string { return TypeAzure }
