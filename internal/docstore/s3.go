package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// s3API is the subset of the S3 client used here.
type s3API interface {
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Key       string
	Region    string
	AccessKey string
	SecretKey string
}

// S3 stores the document as one object. The ETag is the version token and
// writes are conditional on it.
type S3 struct {
	client s3API
	bucket string
	key    string
}

func NewS3(cfg S3Config) *S3 {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &S3{client: s3.New(opts), bucket: cfg.Bucket, key: cfg.Key}
}

func (s *S3) Read(ctx context.Context) (Revision, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isS3Code(err, http.StatusNotFound, "NoSuchKey", "NotFound") {
			return Revision{}, ErrNotFound
		}
		return Revision{}, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return Revision{}, fmt.Errorf("read object body: %w", err)
	}
	return Revision{Content: content, Version: aws.ToString(out.ETag)}, nil
}

func (s *S3) Write(ctx context.Context, content []byte, expectedVersion string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	}
	if expectedVersion == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(expectedVersion)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isS3Code(err, http.StatusPreconditionFailed, "PreconditionFailed", "ConditionalRequestConflict") ||
			isS3Code(err, http.StatusConflict) {
			return "", fmt.Errorf("s3 put object: %w", ErrStale)
		}
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return aws.ToString(out.ETag), nil
}

// isS3Code reports whether err carries the given HTTP status or one of the
// API error codes.
func isS3Code(err error, status int, codes ...string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		for _, c := range codes {
			if apiErr.ErrorCode() == c {
				return true
			}
		}
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == status
	}
	return false
}
