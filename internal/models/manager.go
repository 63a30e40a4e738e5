package models

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnknownModel - модели нет в реестре.
var ErrUnknownModel = errors.New("модель не найдена")

// Progress информация о прогрессе загрузки.
type Progress struct {
	ModelID    string
	Downloaded int64
	Total      int64
	Done       bool
}

// Manager управляет моделями в директории modelsDir.
type Manager struct {
	modelsDir string
	client    *http.Client
	log       zerolog.Logger
	mu        sync.Mutex
}

// NewManager создаёт менеджер моделей. Пустой modelsDir означает models/ рядом с бинарником.
func NewManager(modelsDir string, logger zerolog.Logger) (*Manager, error) {
	if modelsDir == "" {
		dir, err := defaultModelsDir()
		if err != nil {
			return nil, err
		}
		modelsDir = dir
	}

	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию моделей: %w", err)
	}

	return &Manager{
		modelsDir: modelsDir,
		client:    http.DefaultClient,
		log:       logger.With().Str("component", "models").Logger(),
	}, nil
}

func defaultModelsDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("не удалось определить путь к бинарнику: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "", fmt.Errorf("не удалось разрешить симлинки: %w", err)
	}
	return filepath.Join(filepath.Dir(execPath), "models"), nil
}

// ModelsDir возвращает путь к директории моделей.
func (m *Manager) ModelsDir() string {
	return m.modelsDir
}

// ModelPath возвращает путь к распакованной модели.
func (m *Manager) ModelPath(info ModelInfo) string {
	return filepath.Join(m.modelsDir, info.Dirname)
}

// IsDownloaded проверяет, распакована ли модель.
func (m *Manager) IsDownloaded(info ModelInfo) bool {
	stat, err := os.Stat(m.ModelPath(info))
	return err == nil && stat.IsDir()
}

// ListDownloaded возвращает список скачанных моделей.
func (m *Manager) ListDownloaded() []ModelInfo {
	var downloaded []ModelInfo
	for _, model := range Registry {
		if m.IsDownloaded(model) {
			downloaded = append(downloaded, model)
		}
	}
	return downloaded
}

// Download скачивает и распаковывает модель.
// progress получает обновления без блокировки загрузки (можно nil).
func (m *Manager) Download(ctx context.Context, info ModelInfo, progress chan<- Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsDownloaded(info) {
		report(progress, Progress{ModelID: info.ID, Downloaded: info.Size, Total: info.Size, Done: true})
		return nil
	}

	m.log.Info().Str("model", info.ID).Str("url", info.URL).Msg("Скачивание модели")

	tmpZip, err := os.CreateTemp(m.modelsDir, "model-*.zip")
	if err != nil {
		return err
	}
	tmpPath := tmpZip.Name()
	defer os.Remove(tmpPath)

	total, err := m.fetch(ctx, info, tmpZip, progress)
	if cerr := tmpZip.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if err := unzip(tmpPath, m.modelsDir); err != nil {
		return fmt.Errorf("ошибка распаковки: %w", err)
	}
	if !m.IsDownloaded(info) {
		return fmt.Errorf("в архиве нет директории %s", info.Dirname)
	}

	m.log.Info().Str("model", info.ID).Str("path", m.ModelPath(info)).Msg("Модель установлена")
	report(progress, Progress{ModelID: info.ID, Downloaded: total, Total: total, Done: true})
	return nil
}

func (m *Manager) fetch(ctx context.Context, info ModelInfo, dst io.Writer, progress chan<- Progress) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ошибка скачивания: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP ошибка: %s", resp.Status)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = info.Size
	}

	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return downloaded, err
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return downloaded, werr
			}
			downloaded += int64(n)
			report(progress, Progress{ModelID: info.ID, Downloaded: downloaded, Total: total})
		}
		if err == io.EOF {
			return downloaded, nil
		}
		if err != nil {
			return downloaded, err
		}
	}
}

func report(progress chan<- Progress, p Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	default:
	}
}

func unzip(src, destDir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(fpath, root) {
			return fmt.Errorf("недопустимый путь в архиве: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}
		if err := extract(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extract(f *zip.File, fpath string) error {
	out, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}

// Delete удаляет модель.
func (m *Manager) Delete(info ModelInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return os.RemoveAll(m.ModelPath(info))
}
