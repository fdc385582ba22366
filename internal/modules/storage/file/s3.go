package file

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/popolling/server/internal/config"
)

// S3Storage uploads objects to an S3 compatible bucket.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	prefix    string
	publicURL string
}

func NewS3Storage(opts appcfg.S3Options) (*S3Storage, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket and region are required")
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	// Custom endpoints (MinIO, R2) generally need path-style addressing.
	pathStyle := opts.PathStyleAccess || endpoint != ""

	s3opts := s3.Options{
		Region:       region,
		UsePathStyle: pathStyle,
	}
	if opts.AccessKeyID != "" {
		s3opts.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
	}
	if endpoint != "" {
		s3opts.BaseEndpoint = aws.String(endpoint)
	}

	return &S3Storage{
		client:    s3.New(s3opts),
		bucket:    bucket,
		prefix:    strings.Trim(strings.TrimSpace(opts.Prefix), "/"),
		publicURL: publicBaseURL(opts.CustomDomain, endpoint, bucket, region, pathStyle),
	}, nil
}

func (s *S3Storage) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if !safeKey(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	objectKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", objectKey, err)
	}
	return s.publicURL + "/" + objectKey, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	return err
}

func (s *S3Storage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func publicBaseURL(customDomain, endpoint, bucket, region string, pathStyle bool) string {
	if d := strings.TrimRight(strings.TrimSpace(customDomain), "/"); d != "" {
		if !strings.HasPrefix(d, "http://") && !strings.HasPrefix(d, "https://") {
			d = "https://" + d
		}
		return d
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	if pathStyle {
		return endpoint + "/" + bucket
	}
	scheme, host, _ := strings.Cut(endpoint, "://")
	return scheme + "://" + bucket + "." + host
}
