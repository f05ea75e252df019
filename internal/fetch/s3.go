package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 fetches archives from s3://bucket/key URLs.
type S3 struct {
	client *s3.Client
}

// NewS3 builds an S3 fetcher using the default AWS credential chain.
// region may be empty, in which case the SDK's resolution applies.
func NewS3(ctx context.Context, region string) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &S3{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3WithClient wraps a pre-configured client (custom endpoints,
// MinIO, LocalStack).
func NewS3WithClient(client *s3.Client) *S3 {
	return &S3{client: client}
}

// Fetch downloads s3://bucket/key to dest.
func (f *S3) Fetch(ctx context.Context, rawURL, dest string) error {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	return writeTo(dest, out.Body)
}

func parseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3://bucket/key URL: %q", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("missing object key in %q", rawURL)
	}
	return u.Host, key, nil
}
