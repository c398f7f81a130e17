// Package storageback moves replica bytes to and from storage servers. Each
// server kind (local, s3, gcs, sftp) implements the same four operations so
// backup creation, verification, restore and deletion work everywhere.
package storageback

import (
	"context"
	"fmt"
	"io"

	"vidvault/models"
)

// Replicator is what the backup engine needs from a storage layer.
type Replicator interface {
	Write(ctx context.Context, srv *models.StorageServer, path string, r io.Reader) error
	Read(ctx context.Context, srv *models.StorageServer, path string) (io.ReadCloser, error)
	Stat(ctx context.Context, srv *models.StorageServer, path string) (int64, error)
	Delete(ctx context.Context, srv *models.StorageServer, path string) error
}

// Backends dispatches on the server kind.
type Backends struct{}

func New() *Backends {
	return &Backends{}
}

func (b *Backends) Write(ctx context.Context, srv *models.StorageServer, path string, r io.Reader) error {
	switch srv.Kind {
	case "local":
		return writeLocal(path, r)
	case "s3":
		return writeS3(ctx, srv.Access, path, r)
	case "gcs":
		return writeGCS(ctx, srv.Access, path, r)
	case "sftp":
		return writeSFTP(ctx, srv.Access, path, r)
	default:
		return fmt.Errorf("unknown server kind: %s", srv.Kind)
	}
}

func (b *Backends) Read(ctx context.Context, srv *models.StorageServer, path string) (io.ReadCloser, error) {
	switch srv.Kind {
	case "local":
		return readLocal(path)
	case "s3":
		return readS3(ctx, srv.Access, path)
	case "gcs":
		return readGCS(ctx, srv.Access, path)
	case "sftp":
		return readSFTP(ctx, srv.Access, path)
	default:
		return nil, fmt.Errorf("unknown server kind: %s", srv.Kind)
	}
}

func (b *Backends) Stat(ctx context.Context, srv *models.StorageServer, path string) (int64, error) {
	switch srv.Kind {
	case "local":
		return statLocal(path)
	case "s3":
		return statS3(ctx, srv.Access, path)
	case "gcs":
		return statGCS(ctx, srv.Access, path)
	case "sftp":
		return statSFTP(ctx, srv.Access, path)
	default:
		return 0, fmt.Errorf("unknown server kind: %s", srv.Kind)
	}
}

func (b *Backends) Delete(ctx context.Context, srv *models.StorageServer, path string) error {
	switch srv.Kind {
	case "local":
		return deleteLocal(path)
	case "s3":
		return deleteS3(ctx, srv.Access, path)
	case "gcs":
		return deleteGCS(ctx, srv.Access, path)
	case "sftp":
		return deleteSFTP(ctx, srv.Access, path)
	default:
		return fmt.Errorf("unknown server kind: %s", srv.Kind)
	}
}
