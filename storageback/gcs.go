package storageback

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// gcsClientFor builds a client from the server's access map: bucket plus a
// service account key in credentialsJSON (base64 or raw JSON).
func gcsClientFor(ctx context.Context, access map[string]string) (*storage.Client, error) {
	raw := access["credentialsJSON"]
	credsJSON, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		credsJSON = []byte(raw)
	}
	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return client, nil
}

func writeGCS(ctx context.Context, access map[string]string, object string, r io.Reader) error {
	client, err := gcsClientFor(ctx, access)
	if err != nil {
		return err
	}
	defer client.Close()

	wc := client.Bucket(access["bucket"]).Object(object).NewWriter(ctx)
	if _, err := io.Copy(wc, r); err != nil {
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func readGCS(ctx context.Context, access map[string]string, object string) (io.ReadCloser, error) {
	client, err := gcsClientFor(ctx, access)
	if err != nil {
		return nil, err
	}
	rc, err := client.Bucket(access["bucket"]).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open object %s: %w", object, err)
	}
	return &gcsReader{rc: rc, client: client}, nil
}

// gcsReader closes the client together with the object reader.
type gcsReader struct {
	rc     io.ReadCloser
	client *storage.Client
}

func (g *gcsReader) Read(p []byte) (int, error) { return g.rc.Read(p) }

func (g *gcsReader) Close() error {
	err := g.rc.Close()
	g.client.Close()
	return err
}

func statGCS(ctx context.Context, access map[string]string, object string) (int64, error) {
	client, err := gcsClientFor(ctx, access)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	attrs, err := client.Bucket(access["bucket"]).Object(object).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to stat object %s: %w", object, err)
	}
	return attrs.Size, nil
}

func deleteGCS(ctx context.Context, access map[string]string, object string) error {
	client, err := gcsClientFor(ctx, access)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Bucket(access["bucket"]).Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", object, err)
	}
	return nil
}
