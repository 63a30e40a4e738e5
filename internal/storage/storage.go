// Package storage сохраняет WAV-файлы локально или в S3-совместимое хранилище.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoRemote - назначение s3:// без настроенного хранилища.
var ErrNoRemote = errors.New("удалённое хранилище не настроено")

const schemeS3 = "s3://"

// Remote загружает объект и возвращает его адрес.
type Remote interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	DefaultBucket() string
}

// Store выбирает место сохранения по виду назначения.
type Store struct {
	remote Remote
}

// New создаёт Store. remote может быть nil.
func New(remote Remote) *Store {
	return &Store{remote: remote}
}

// Put сохраняет data в dest и возвращает итоговое расположение.
// dest - путь к файлу или s3://bucket/key (s3:///key - бакет по умолчанию).
func (s *Store) Put(ctx context.Context, dest string, data []byte, contentType string) (string, error) {
	if strings.HasPrefix(dest, schemeS3) {
		return s.putRemote(ctx, strings.TrimPrefix(dest, schemeS3), data, contentType)
	}
	return WriteFileAtomic(dest, data)
}

func (s *Store) putRemote(ctx context.Context, rest string, data []byte, contentType string) (string, error) {
	if s.remote == nil {
		return "", ErrNoRemote
	}

	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return "", fmt.Errorf("некорректный адрес s3://%s: ожидается s3://bucket/key", rest)
	}
	if bucket == "" {
		bucket = s.remote.DefaultBucket()
	}
	if bucket == "" {
		return "", fmt.Errorf("не указан бакет для s3://%s", rest)
	}

	return s.remote.Put(ctx, bucket, key, data, contentType)
}

// WriteFileAtomic пишет файл через временный файл в той же директории и rename.
// При ошибке прежнее содержимое dest не меняется.
func WriteFileAtomic(dest string, data []byte) (string, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("создание временного файла: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("запись %s: %w", dest, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("запись %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("запись %s: %w", dest, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		return "", fmt.Errorf("переименование в %s: %w", dest, err)
	}
	return abs, nil
}
