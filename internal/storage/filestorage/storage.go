package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kansetsu/internal/storage"

	"github.com/google/uuid"
)

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type StoredFile struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// LocalFileStorage хранит загруженные изображения на локальном диске
type LocalFileStorage struct {
	baseDir string
	baseURL string
	maxSize int64
	now     func() time.Time
}

func NewLocalFileStorage(baseDir, baseURL string, maxSize int64) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// SaveImage stores an uploaded image under <year>/<month>/<uuid><ext>.
// The type is sniffed from the content, not taken from the client.
func (s *LocalFileStorage) SaveImage(ctx context.Context, file *multipart.FileHeader) (StoredFile, error) {
	const op = "filestorage.LocalFileStorage.SaveImage"

	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	if s.maxSize > 0 && file.Size > s.maxSize {
		return StoredFile{}, fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	src, err := file.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("%s: failed to open source file: %w", op, err)
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return StoredFile{}, fmt.Errorf("%s: %w", op, err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return StoredFile{}, fmt.Errorf("%s: %s: %w", op, contentType, storage.ErrInvalidFileType)
	}

	relPath := filepath.Join(s.now().UTC().Format("2006/01"), uuid.NewString()+ext)
	fullPath := filepath.Join(s.baseDir, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return StoredFile{}, fmt.Errorf("%s: failed to create directories: %w", op, err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return StoredFile{}, fmt.Errorf("%s: failed to create destination file: %w", op, err)
	}
	defer dst.Close()

	var body io.Reader = io.MultiReader(bytes.NewReader(head), src)
	if s.maxSize > 0 {
		// one extra byte tells an oversized body apart from an exact fit
		body = io.LimitReader(body, s.maxSize+1)
	}

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(dst, body)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		<-done
		_ = os.Remove(fullPath)
		return StoredFile{}, ctx.Err()
	}

	if copyErr != nil {
		_ = os.Remove(fullPath)
		return StoredFile{}, fmt.Errorf("%s: failed to copy file: %w", op, copyErr)
	}

	if s.maxSize > 0 && size > s.maxSize {
		_ = os.Remove(fullPath)
		return StoredFile{}, fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	return StoredFile{
		Path:        filepath.ToSlash(relPath),
		URL:         s.URL(relPath),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Delete удаляет файл из хранилища
func (s *LocalFileStorage) Delete(ctx context.Context, relPath string) error {
	const op = "filestorage.LocalFileStorage.Delete"

	fullPath, err := s.resolve(relPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// URL returns the public address of a stored file.
func (s *LocalFileStorage) URL(relPath string) string {
	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(relPath), "/")
}

// resolve keeps relPath inside baseDir.
func (s *LocalFileStorage) resolve(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + relPath))
	if clean == string(filepath.Separator) {
		return "", storage.ErrFileNotFound
	}

	return filepath.Join(s.baseDir, clean), nil
}
