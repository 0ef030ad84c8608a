package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type mockS3Client struct {
	objects map[string][]byte
	etags   map[string]string
	seq     int
	puts    int
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: map[string][]byte{}, etags: map[string]string{}}
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(input.Key)
	data, ok := m.objects[key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
		ETag: aws.String(m.etags[key]),
	}, nil
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(input.Key)
	current, exists := m.etags[key]
	if input.IfNoneMatch != nil && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}
	}
	if input.IfMatch != nil && (!exists || aws.ToString(input.IfMatch) != current) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.seq++
	m.puts++
	m.objects[key] = data
	m.etags[key] = fmt.Sprintf(`"etag-%d"`, m.seq)
	return &s3.PutObjectOutput{ETag: aws.String(m.etags[key])}, nil
}

func newTestS3(m s3API) *S3 {
	return &S3{client: m, bucket: "planner", key: "data.json"}
}

func TestS3ReadNotFound(t *testing.T) {
	s := newTestS3(newMockS3())
	if _, err := s.Read(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestS3WriteAndRead(t *testing.T) {
	m := newMockS3()
	s := newTestS3(m)
	ctx := context.Background()

	v1, err := s.Write(ctx, []byte(`{"tasks":[]}`), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rev, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(rev.Content) != `{"tasks":[]}` || rev.Version != v1 {
		t.Errorf("got %q at %q, want content at %q", rev.Content, rev.Version, v1)
	}

	v2, err := s.Write(ctx, []byte(`{"tasks":[{}]}`), v1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v2 == v1 {
		t.Error("expected new etag")
	}
}

func TestS3Stale(t *testing.T) {
	m := newMockS3()
	s := newTestS3(m)
	ctx := context.Background()

	v1, _ := s.Write(ctx, []byte(`{}`), "")
	s.Write(ctx, []byte(`{"x":1}`), v1)

	if _, err := s.Write(ctx, []byte(`{"x":2}`), v1); !errors.Is(err, ErrStale) {
		t.Errorf("err = %v, want ErrStale", err)
	}
	if _, err := s.Write(ctx, []byte(`{"x":2}`), ""); !errors.Is(err, ErrStale) {
		t.Errorf("create over existing err = %v, want ErrStale", err)
	}
	if m.puts != 2 {
		t.Errorf("puts = %d, want 2", m.puts)
	}
}

func TestS3OtherErrorPassesThrough(t *testing.T) {
	s := newTestS3(&failingS3{})
	_, err := s.Read(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want access error", err)
	}
}

type failingS3 struct{ mockS3Client }

func (*failingS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, &smithy.GenericAPIError{Code: "AccessDenied"}
}
