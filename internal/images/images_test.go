package images

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"guess-character/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	storage := NewLocal(dir)

	url, err := storage.Save(context.Background(), []byte("png-bytes"), "Mario.PNG", "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, storage.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, storage.Delete(context.Background(), "https://example.com/x.png"))
	require.NoError(t, storage.Delete(context.Background(), "/uploads/../secret"))
}

func TestLocalRejectsEmptyImage(t *testing.T) {
	_, err := NewLocal(t.TempDir()).Save(context.Background(), nil, "a.png", "image/png")
	assert.Error(t, err)
}

func TestUniqueNameDefaultsExtension(t *testing.T) {
	assert.True(t, strings.HasSuffix(UniqueName("noext"), ".jpg"))
	assert.True(t, strings.HasSuffix(UniqueName("a.webp"), ".webp"))
	assert.NotEqual(t, UniqueName("a.png"), UniqueName("a.png"))
}

type fakeObjects struct {
	put     *s3.PutObjectInput
	body    string
	deleted *s3.DeleteObjectInput
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3SaveAndDelete(t *testing.T) {
	objects := &fakeObjects{}
	storage := &S3{client: objects, bucket: "chars", publicURL: "https://cdn.test"}

	url, err := storage.Save(context.Background(), []byte("gif"), "a.gif", "")
	require.NoError(t, err)
	key := aws.ToString(objects.put.Key)
	assert.Equal(t, "https://cdn.test/"+key, url)
	assert.Equal(t, "chars", aws.ToString(objects.put.Bucket))
	assert.Equal(t, "image/gif", aws.ToString(objects.put.ContentType))
	assert.Equal(t, "gif", objects.body)

	require.NoError(t, storage.Delete(context.Background(), url))
	assert.Equal(t, key, aws.ToString(objects.deleted.Key))
}

func TestS3SaveError(t *testing.T) {
	storage := &S3{client: &fakeObjects{err: errors.New("denied")}, bucket: "b", publicURL: "https://cdn.test"}
	_, err := storage.Save(context.Background(), []byte("x"), "a.png", "image/png")
	assert.ErrorContains(t, err, "denied")
}

func TestNewPicksBackend(t *testing.T) {
	cfg := config.Default()
	cfg.UploadDir = t.TempDir()
	_, ok := New(cfg).(*Local)
	assert.True(t, ok)

	cfg.S3 = config.S3Config{Region: "auto", AccessKeyID: "k", SecretAccessKey: "s", Bucket: "b", PublicURL: "https://cdn.test"}
	_, ok = New(cfg).(*S3)
	assert.True(t, ok)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img/cat.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("meow"))
		case "/noext":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("x"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	got, err := Download(context.Background(), srv.Client(), srv.URL+"/img/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", got.FileName)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, "meow", string(got.Data))

	got, err = Download(context.Background(), srv.Client(), srv.URL+"/noext")
	require.NoError(t, err)
	assert.Equal(t, "noext.png", got.FileName)

	_, err = Download(context.Background(), srv.Client(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType(".JPG"))
	assert.Equal(t, "image/svg+xml", ContentType(".svg"))
	assert.Equal(t, "application/octet-stream", ContentType(".exe"))
}
