package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ---------------------------------------------------------------------------
// mock S3 client
// ---------------------------------------------------------------------------

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var errNoSuchKey = &apiError{code: "NoSuchKey", msg: "no such key"}
var errHeadNotFound = &apiError{code: "NotFound", msg: "not found"}

// mockS3 is a thread-safe in-memory S3 backend for testing.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Optional hooks to inject errors.
	putErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errNoSuchKey
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, errHeadNotFound
	}
	return &s3.HeadObjectOutput{}, nil
}

// ---------------------------------------------------------------------------
// S3Store tests
// ---------------------------------------------------------------------------

func newTestS3(t *testing.T) (*S3Store, *mockS3) {
	t.Helper()
	mock := newMockS3()
	store := NewS3(mock, "test-bucket", "artifacts")
	return store, mock
}

func TestS3PutGet(t *testing.T) {
	ctx := context.Background()
	store, mock := newTestS3(t)

	url, err := store.Put(ctx, "alice/0.enc", []byte("ciphertext"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if want := "s3://test-bucket/artifacts/alice/0.enc"; url != want {
		t.Fatalf("Put url = %q, want %q", url, want)
	}
	if _, ok := mock.objects["artifacts/alice/0.enc"]; !ok {
		t.Fatal("object not stored under prefixed key")
	}

	got, err := store.Get(ctx, "alice/0.enc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "ciphertext" {
		t.Fatalf("Get = %q", got)
	}
}

func TestS3GetMissing(t *testing.T) {
	store, _ := newTestS3(t)
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestS3PutError(t *testing.T) {
	store, mock := newTestS3(t)
	mock.putErr = errors.New("boom")
	if _, err := store.Put(context.Background(), "x", []byte("y")); err == nil {
		t.Fatal("expected Put error")
	}
}

func TestS3DeleteExists(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestS3(t)

	if _, err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	ok, err := store.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true, nil", ok, err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Idempotent.
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	ok, err = store.Exists(ctx, "k")
	if err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v; want false, nil", ok, err)
	}
}
