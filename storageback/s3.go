package storageback

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3ClientFor builds a self-contained client from the server's access map:
// accessKey, secretKey, region, bucket.
func s3ClientFor(access map[string]string) *s3.Client {
	creds := credentials.NewStaticCredentialsProvider(access["accessKey"], access["secretKey"], "")
	return s3.New(s3.Options{
		Region:      access["region"],
		Credentials: creds,
	})
}

func writeS3(ctx context.Context, access map[string]string, key string, r io.Reader) error {
	client := s3ClientFor(access)
	uploader := manager.NewUploader(client)

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(access["bucket"]),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, access["bucket"], err)
	}
	return nil
}

func readS3(ctx context.Context, access map[string]string, key string) (io.ReadCloser, error) {
	client := s3ClientFor(access)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(access["bucket"]),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s from bucket %s: %w", key, access["bucket"], err)
	}
	return out.Body, nil
}

func statS3(ctx context.Context, access map[string]string, key string) (int64, error) {
	client := s3ClientFor(access)
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(access["bucket"]),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object %s in bucket %s: %w", key, access["bucket"], err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

func deleteS3(ctx context.Context, access map[string]string, key string) error {
	client := s3ClientFor(access)
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(access["bucket"]),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", key, access["bucket"], err)
	}
	return nil
}
