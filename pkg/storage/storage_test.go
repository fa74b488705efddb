package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIsPhoto(t *testing.T) {
	assert.True(t, IsPhoto("holiday/IMG_0001.JPG"))
	assert.True(t, IsPhoto("raw/shot.cr2"))
	assert.True(t, IsPhoto("clip.mp4"))
	assert.False(t, IsPhoto("notes.txt"))
	assert.False(t, IsPhoto("jpg"))
	assert.False(t, IsPhoto(""))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestLocalBackend(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg", "bbb")
	writeFile(t, dir, "nested/a.jpeg", "a")
	writeFile(t, dir, "readme.txt", "hello")

	b := NewLocalBackend(dir)
	ctx := context.Background()

	objects, err := b.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "b.jpg", objects[0].Key)
	assert.Equal(t, int64(3), objects[0].Size)
	assert.Equal(t, "nested/a.jpeg", objects[1].Key)
	assert.Equal(t, "readme.txt", objects[2].Key)

	rc, err := b.Open(ctx, "nested/a.jpeg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	require.NoError(t, b.Delete(ctx, "b.jpg"))
	_, err = b.Open(ctx, "b.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, "b.jpg"), ErrNotFound)
}

func TestLocalBackendRejectsEscapingKeys(t *testing.T) {
	b := NewLocalBackend(t.TempDir())
	_, err := b.Open(context.Background(), "../etc/passwd")
	assert.Error(t, err)
}

func TestLocalBackendMissingDir(t *testing.T) {
	b := NewLocalBackend(filepath.Join(t.TempDir(), "missing"))
	_, err := b.List(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContainsPhotos(t *testing.T) {
	ctx := context.Background()

	empty := t.TempDir()
	writeFile(t, empty, "notes.txt", "x")
	ok, err := ContainsPhotos(ctx, NewLocalBackend(empty), "")
	require.NoError(t, err)
	assert.False(t, ok)

	full := t.TempDir()
	writeFile(t, full, "2020/01/photo.jpg", "x")
	ok, err = ContainsPhotos(ctx, NewLocalBackend(full), "")
	require.NoError(t, err)
	assert.True(t, ok)
}

// MockS3 is a mock implementation of the S3API interface
type MockS3 struct {
	mock.Mock
}

func (m *MockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func (m *MockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *MockS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3BackendList(t *testing.T) {
	client := new(MockS3)
	ctx := context.Background()
	modified := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)

	client.On("ListObjectsV2", ctx, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Bucket) == "photos" && aws.ToString(in.Prefix) == "library/"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("library/"), Size: aws.Int64(0)},
			{Key: aws.String("library/2020/a.jpg"), Size: aws.Int64(42), LastModified: &modified},
			{Key: aws.String("library/readme.md"), Size: aws.Int64(7)},
		},
	}, nil)

	b := NewS3Backend(client, "photos", "/library/")
	objects, err := b.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "2020/a.jpg", objects[0].Key)
	assert.Equal(t, int64(42), objects[0].Size)
	assert.Equal(t, modified, objects[0].ModTime)

	ok, err := ContainsPhotos(ctx, b, "")
	require.NoError(t, err)
	assert.True(t, ok)

	client.AssertExpectations(t)
}

func TestS3BackendOpenAndDelete(t *testing.T) {
	client := new(MockS3)
	ctx := context.Background()

	client.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "a.jpg"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("jpeg"))}, nil)
	client.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "missing.jpg"
	})).Return(nil, &types.NoSuchKey{})
	client.On("DeleteObject", ctx, mock.AnythingOfType("*s3.DeleteObjectInput")).Return(nil)

	b := NewS3Backend(client, "photos", "")

	rc, err := b.Open(ctx, "a.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "jpeg", string(data))

	_, err = b.Open(ctx, "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, b.Delete(ctx, "a.jpg"))
	client.AssertExpectations(t)
}

func TestS3ConfigEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio:9000", S3Config{Server: "minio:9000", UseSSL: true}.Endpoint())
	assert.Equal(t, "http://minio:9000", S3Config{Server: "minio:9000"}.Endpoint())
	assert.Equal(t, "https://s3.example.com", S3Config{Server: "https://s3.example.com"}.Endpoint())
}

func TestLocalBackendPut(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "2021/03/04/a.jpg", strings.NewReader("data")))
	data, err := os.ReadFile(filepath.Join(dir, "2021", "03", "04", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	assert.Error(t, b.Put(ctx, "../outside.jpg", strings.NewReader("x")))
}

func TestS3BackendPut(t *testing.T) {
	client := new(MockS3)
	ctx := context.Background()

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "photos" && aws.ToString(in.Key) == "library/2021/a.jpg"
	})).Return(nil)

	b := NewS3Backend(client, "photos", "library")
	require.NoError(t, b.Put(ctx, "2021/a.jpg", strings.NewReader("jpeg")))
	client.AssertExpectations(t)
}
