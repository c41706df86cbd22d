package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/menugr/menugr/config"
)

// S3 stores each key as an object under an optional key prefix.
// Works with AWS S3, MinIO, R2 and Spaces.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 wraps an existing client.
func NewS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.TrimLeft(prefix, "/")}
}

// NewS3FromConfig builds a client from the S3_* keys. S3_BUCKET is required.
func NewS3FromConfig(ctx context.Context) (*S3, error) {
	bucket := config.S3Bucket()
	if bucket == "" {
		return nil, fmt.Errorf("kvstore/s3: S3_BUCKET is not configured")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(config.S3Region()),
	}
	if key, secret := config.S3Key(), config.S3Secret(); key != "" && secret != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("kvstore/s3: load config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if endpoint := config.S3Endpoint(); endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // MinIO
		})
	}

	return NewS3(s3.NewFromConfig(cfg, clientOpts...), bucket, "carts/"), nil
}

func (d *S3) objectKey(key string) string { return d.prefix + key + ".json" }

// Get implements Store.
func (d *S3) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("kvstore/s3: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, fmt.Errorf("kvstore/s3: read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set implements Store.
func (d *S3) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.objectKey(key)),
		Body:        strings.NewReader(value),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("kvstore/s3: put %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (d *S3) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("kvstore/s3: delete %s: %w", key, err)
	}
	return nil
}
