package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"guess-character/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Storage keeps uploaded character images and returns the URL they are served from.
type Storage interface {
	Save(ctx context.Context, data []byte, fileName, contentType string) (string, error)
	// Delete removes an image previously returned by Save. URLs the storage
	// does not own are ignored.
	Delete(ctx context.Context, url string) error
}

// New picks S3 when it is fully configured and the local upload directory otherwise.
func New(cfg config.Config) Storage {
	if cfg.S3.Enabled() {
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("storing images in s3")
		return NewS3(cfg.S3)
	}
	log.Info().Str("dir", cfg.UploadDir).Msg("storing images on local disk")
	return NewLocal(cfg.UploadDir)
}

// UniqueName returns "<uuid>.<ext>" keeping the extension of fileName.
func UniqueName(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" || len(ext) > 5 {
		ext = "jpg"
	}
	return uuid.NewString() + "." + ext
}

type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Save(_ context.Context, data []byte, fileName, _ string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := UniqueName(fileName)
	if err := os.WriteFile(filepath.Join(l.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return "/uploads/" + name, nil
}

func (l *Local) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, "/uploads/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3 struct {
	client    objectAPI
	bucket    string
	publicURL string
}

func NewS3(cfg config.S3Config) *S3 {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(cfg.PublicURL, "/")}
}

func (s *S3) Save(ctx context.Context, data []byte, fileName, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}
	key := UniqueName(fileName)
	if contentType == "" {
		contentType = ContentType(path.Ext(key))
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
