// Package uploads issues time-limited S3 PUT URLs so clients upload assets
// and previews directly to object storage.
package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const urlTTL = 5 * time.Minute

// URLSigner is what the upload handler depends on; tests swap in a fake.
type URLSigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
}

type Presigner struct {
	client *s3.PresignClient
	bucket string
}

// NewPresigner builds an S3 presign client from the default AWS credential
// chain.
func NewPresigner(ctx context.Context, bucket string) (*Presigner, error) {
	if bucket == "" {
		return nil, fmt.Errorf("uploads: bucket name not configured")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("uploads: load aws config: %w", err)
	}
	return &Presigner{
		client: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket: bucket,
	}, nil
}

func (p *Presigner) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(urlTTL))
	if err != nil {
		return "", fmt.Errorf("uploads: presign put: %w", err)
	}
	return req.URL, nil
}
