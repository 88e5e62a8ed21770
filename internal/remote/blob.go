// Package remote stores the state document in Azure Blob Storage.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"sorpes/internal/backup"
	"sorpes/internal/core"
	"sorpes/internal/log"
	"sorpes/internal/state"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const (
	// Well-known Azurite development account.
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

	contentType = "application/json"
)

// Config locates the document.
type Config struct {
	ServiceURL string
	Container  string
	BlobName   string
	// Seed files documents in the single-month layout under this key.
	Seed core.MonthKey
}

// blobAPI is the part of *azblob.Client the store uses.
type blobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// BlobStore keeps the whole state as one JSON blob.
type BlobStore struct {
	client    blobAPI
	cfg       Config
	logger    *log.Logger
	container atomic.Bool // set once the container is known to exist
}

// NewBlobStore connects to the blob service. URLs starting with http are
// treated as a local Azurite emulator and use its shared key; anything
// else authenticates with DefaultAzureCredential.
func NewBlobStore(cfg Config, logger *log.Logger) (*BlobStore, error) {
	if cfg.ServiceURL == "" {
		return nil, fmt.Errorf("blob service URL is required")
	}
	logger = logger.WithComponent(log.ComponentRemote)

	var client *azblob.Client
	if isLocal(cfg.ServiceURL) {
		logger.Info("Using Azurite shared key credentials", "blob_url", cfg.ServiceURL)
		cred, err := azblob.NewSharedKeyCredential(azuriteAccountName, azuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(cfg.ServiceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(cfg.ServiceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
	}
	return newBlobStore(client, cfg, logger), nil
}

func newBlobStore(client blobAPI, cfg Config, logger *log.Logger) *BlobStore {
	if cfg.Container == "" {
		cfg.Container = "sorpes"
	}
	if cfg.BlobName == "" {
		cfg.BlobName = "estado.json"
	}
	return &BlobStore{client: client, cfg: cfg, logger: logger}
}

func isLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http://")
}

func newDefaultAzureCredential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

func (s *BlobStore) Name() string { return "blob" }

// Load downloads and decodes the document. A missing container or blob is
// not an error: it yields a nil document.
func (s *BlobStore) Load(ctx context.Context) (*state.Document, error) {
	resp, err := s.client.DownloadStream(ctx, s.cfg.Container, s.cfg.BlobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			s.logger.DebugContext(ctx, "No remote document yet",
				"container", s.cfg.Container, "blob_name", s.cfg.BlobName)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to download blob %s/%s: %w", s.cfg.Container, s.cfg.BlobName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob content: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	doc, err := backup.Decode(data, s.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob %s/%s: %w", s.cfg.Container, s.cfg.BlobName, err)
	}
	return doc, nil
}

// Save uploads the document, creating the container on first use.
func (s *BlobStore) Save(ctx context.Context, doc *state.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.ensureContainer(ctx); err != nil {
		return err
	}
	ct := contentType
	_, err = s.client.UploadBuffer(ctx, s.cfg.Container, s.cfg.BlobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s/%s: %w", s.cfg.Container, s.cfg.BlobName, err)
	}
	s.logger.DebugContext(ctx, "Uploaded state document",
		"container", s.cfg.Container,
		"blob_name", s.cfg.BlobName,
		"size_bytes", len(data))
	return nil
}

func (s *BlobStore) ensureContainer(ctx context.Context) error {
	if s.container.Load() {
		return nil
	}
	_, err := s.client.CreateContainer(ctx, s.cfg.Container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container %s: %w", s.cfg.Container, err)
	}
	s.container.Store(true)
	return nil
}
