// Пакет filestore — хранение загруженных изображений на локальном диске.
// Ключ файла детерминированный: {folder}/{timestamp_ms}-{suffix}.{ext},
// публичный URL строится от базового адреса портала.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore — управление файлами изображений на диске.
type FileStore struct {
	// dataDir — корневая директория хранения (PP_STORAGE_DATA_DIR)
	dataDir string
	// publicBaseURL — базовый URL для публичных ссылок
	publicBaseURL string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// FilePath — относительный путь файла в dataDir (folder/name.ext)
	FilePath string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт новый FileStore. Проверяет и создаёт директорию
// если она не существует.
func New(dataDir, publicBaseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{
		dataDir:       dataDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Save записывает данные из reader на диск внутри подкаталога folder.
// Расширение берётся из оригинального имени файла.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) Save(reader io.Reader, folder, originalFilename string) (*SaveResult, error) {
	folder = sanitizeFolder(folder)
	if err := os.MkdirAll(filepath.Join(fs.dataDir, folder), 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать подкаталог %s: %w", folder, err)
	}

	filePath := filepath.Join(folder, generateFileName(originalFilename))
	fullPath := filepath.Join(fs.dataDir, filePath)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		FilePath: filepath.ToSlash(filePath),
		FullPath: fullPath,
		Size:     size,
	}, nil
}

// Remove удаляет файл с диска.
// Возвращает nil если файл уже не существует.
func (fs *FileStore) Remove(filePath string) error {
	fullPath := filepath.Join(fs.dataDir, filepath.FromSlash(filePath))

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", filePath, err)
	}
	return nil
}

// RemoveAll удаляет набор файлов, первая ошибка прерывает обход.
func (fs *FileStore) RemoveAll(filePaths []string) error {
	for _, p := range filePaths {
		if err := fs.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

// PublicURL возвращает публичный URL файла по относительному пути.
// Абсолютные URL (внешние изображения) возвращаются как есть.
func (fs *FileStore) PublicURL(filePath string) string {
	if strings.HasPrefix(filePath, "http://") || strings.HasPrefix(filePath, "https://") {
		return filePath
	}
	return fs.publicBaseURL + "/files/" + strings.TrimLeft(filepath.ToSlash(filePath), "/")
}

// DataDir возвращает путь к директории данных (для раздачи статики).
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// generateFileName генерирует имя файла для хранения.
// Формат: {timestamp_ms}-{suffix}.{ext}; пример: 1756712345678-a1b2c3d4.jpg
func generateFileName(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	ts := time.Now().UnixMilli()
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%d-%s%s", ts, suffix, ext)
}

// sanitizeFolder приводит имя подкаталога к безопасному виду.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitizeFolder(folder string) string {
	var result strings.Builder
	for _, r := range folder {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "uploads"
	}
	return result.String()
}
