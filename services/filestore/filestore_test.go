package filestore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir(), "http://localhost:8080/media/")

	key := "hiring/resumes/abc.pdf"
	require.NoError(t, store.Save(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))
	assert.Equal(t, "http://localhost:8080/media/hiring/resumes/abc.pdf", store.URL(key))

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "deleting twice")

	_, err = store.Open(ctx, key)
	assert.True(t, core.IsNotFound(err))

	assert.Error(t, store.Save(ctx, "../escape.txt", strings.NewReader("x"), 1, ""))
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: make(map[string][]byte)}
	store := NewS3StoreWithClient(client, "habari", "eu-west-1", "")

	key := "media_library/files/a b.png"
	require.NoError(t, store.Save(ctx, key, strings.NewReader("png"), 3, "image/png"))
	assert.Equal(t, []byte("png"), client.objects[key])

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	_ = rc.Close()

	assert.Equal(t, "https://habari.s3.eu-west-1.amazonaws.com/media_library/files/a%20b.png", store.URL(key))
	assert.Equal(t, "http://minio:9000/habari/x.png", NewS3StoreWithClient(client, "habari", "", "http://minio:9000").URL("x.png"))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.True(t, core.IsNotFound(err))
}
