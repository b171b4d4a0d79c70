package client

import (
	"bytes"
	"context"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

const (
	backupsPath       = "/backups"
	backupUploadPath  = "/backups/upload"
	backupUploadField = "archive"
)

// BackupsClient implements ledger.BackupsClient.
type BackupsClient struct {
	api ledger.CallClient
}

// NewBackupsClient creates a new backups client.
func NewBackupsClient(api ledger.CallClient) *BackupsClient {
	return &BackupsClient{
		api: api,
	}
}

// List implements ledger.BackupsClient.List.
func (c *BackupsClient) List(ctx context.Context) ledger.Result[[]ledger.Backup] {
	return ledger.Decode[[]ledger.Backup](c.api.Get(ctx, backupsPath, nil, itemsShape))
}

// Create implements ledger.BackupsClient.Create.
func (c *BackupsClient) Create(ctx context.Context) ledger.Result[ledger.Backup] {
	return ledger.Decode[ledger.Backup](c.api.Post(ctx, backupsPath, nil, envelopeShape))
}

// Restore implements ledger.BackupsClient.Restore.
func (c *BackupsClient) Restore(ctx context.Context, id string) ledger.Result[struct{}] {
	path, failure := resourcePath(backupsPath, id, "restore")
	if failure != nil {
		return ledger.Fail[struct{}](failure)
	}

	return ledger.Discard(c.api.Post(ctx, path, nil, envelopeShape))
}

// Delete implements ledger.BackupsClient.Delete.
func (c *BackupsClient) Delete(ctx context.Context, id string) ledger.Result[struct{}] {
	path, failure := resourcePath(backupsPath, id)
	if failure != nil {
		return ledger.Fail[struct{}](failure)
	}

	return ledger.Discard(c.api.Delete(ctx, path, envelopeShape))
}

// Upload sends a backup archive as multipart form data.
func (c *BackupsClient) Upload(ctx context.Context, filename string, archive []byte) ledger.Result[ledger.Backup] {
	if filename == "" {
		return ledger.Fail[ledger.Backup](invalidRequest("backup filename is required"))
	}

	form := &ledger.MultipartForm{
		Files: []ledger.FormFile{{
			Field:    backupUploadField,
			Filename: filename,
			Content:  bytes.NewReader(archive),
		}},
	}

	return ledger.Decode[ledger.Backup](c.api.Post(ctx, backupUploadPath, form, envelopeShape))
}
