package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config - параметры S3-совместимого хранилища.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

// objectPutter - часть minio.Client, нужная для загрузки.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// S3 реализует Remote поверх minio-go.
type S3 struct {
	client objectPutter
	bucket string
	host   string
}

// NewS3 создаёт клиента. Сеть при создании не используется.
func NewS3(cfg S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать клиента S3: %w", err)
	}
	return newS3(client, cfg), nil
}

func newS3(client objectPutter, cfg S3Config) *S3 {
	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		host:   fmt.Sprintf("%s://%s", scheme, cfg.Endpoint),
	}
}

// Check проверяет, что бакет по умолчанию существует.
func (s *S3) Check(ctx context.Context) error {
	if s.bucket == "" {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("проверка бакета %q: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("бакет %q не существует", s.bucket)
	}
	return nil
}

// DefaultBucket возвращает бакет из конфигурации.
func (s *S3) DefaultBucket() string {
	return s.bucket
}

// Put загружает объект и возвращает его URL.
func (s *S3) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"uploaded-at": time.Now().Format(time.RFC3339)},
	})
	if err != nil {
		return "", fmt.Errorf("загрузка s3://%s/%s: %w", bucket, key, err)
	}
	return s.objectURL(bucket, key), nil
}

func (s *S3) objectURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.host, bucket, url.PathEscape(key))
}
