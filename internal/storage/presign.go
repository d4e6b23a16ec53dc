// Package storage issues presigned object-storage download URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	minURLExpiry = time.Minute
	maxURLExpiry = 15 * time.Minute
)

// PresignOptions bounds a presigned URL request. Expiry outside the allowed
// window is a caller error, not something to clamp silently.
type PresignOptions struct {
	Bucket string
	Key    string
	Expiry time.Duration
}

func (o PresignOptions) validate() error {
	if o.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if o.Key == "" {
		return fmt.Errorf("object key is required")
	}
	if o.Expiry < minURLExpiry || o.Expiry > maxURLExpiry {
		return fmt.Errorf("url expiry %s outside allowed range [%s, %s]", o.Expiry, minURLExpiry, maxURLExpiry)
	}
	return nil
}

// Presigner wraps the S3 presign client.
type Presigner struct {
	client *s3.PresignClient
}

func NewPresigner(s3Client *s3.Client) *Presigner {
	return &Presigner{client: s3.NewPresignClient(s3Client)}
}

// DownloadURL returns a presigned GET URL for the object in opts.
func (p *Presigner) DownloadURL(ctx context.Context, opts PresignOptions) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(opts.Bucket),
		Key:    aws.String(opts.Key),
	}, s3.WithPresignExpires(opts.Expiry))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return req.URL, nil
}
