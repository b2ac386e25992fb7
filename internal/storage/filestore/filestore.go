// Пакет filestore — хранение загруженных файлов на локальном диске.
// Файлы сохраняются под случайными именами (UUID + расширение),
// запись атомарная: temp файл → fsync → rename.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tmpSuffix — суффикс временных файлов, не видимых через List и Open.
const tmpSuffix = ".tmp"

// Ошибки файлового хранилища.
var (
	// ErrNotFound — файл не найден.
	ErrNotFound = errors.New("файл не найден")
	// ErrInvalidName — имя не является одиночным элементом пути.
	ErrInvalidName = errors.New("недопустимое имя файла")
)

// FileStore — управление загруженными файлами в одной директории.
type FileStore struct {
	// dataDir — корневая директория (MC_UPLOAD_DIR)
	dataDir string
}

// SaveResult — результат сохранения файла.
type SaveResult struct {
	// Name — имя, под которым файл сохранён и доступен для скачивания
	Name string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 содержимого
	Checksum string
}

// New создаёт FileStore и директорию, если её нет.
func New(dataDir string) (*FileStore, error) {
	fs := &FileStore{dataDir: dataDir}
	if err := fs.ensureDir(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Save записывает данные из reader под новым случайным именем.
// Расширение берётся из базового имени originalName (после последней точки);
// без расширения файл сохраняется без него.
func (fs *FileStore) Save(reader io.Reader, originalName string) (*SaveResult, error) {
	if err := fs.ensureDir(); err != nil {
		return nil, err
	}

	name := generateName(originalName)
	fullPath := filepath.Join(fs.dataDir, name)
	tmpPath := fullPath + tmpSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(reader, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename, существующий файл перезаписывается
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		Name:     name,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает файл name для чтения.
// Имя с разделителями пути, "..", пустое или временное — ErrInvalidName.
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(name string) (*os.File, os.FileInfo, error) {
	if !validName(name) {
		return nil, nil, ErrInvalidName
	}

	f, err := os.Open(filepath.Join(fs.dataDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotFound
	}

	return f, info, nil
}

// List возвращает отсортированные имена файлов в корне хранилища.
// Временные файлы и поддиректории не включаются. Пустое хранилище — пустой срез.
func (fs *FileStore) List() ([]string, error) {
	if err := fs.ensureDir(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", fs.dataDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// RemoveStaleTmp удаляет временные файлы, изменённые раньше now-olderThan.
// Остаются после аварийного завершения процесса во время Save.
// Возвращает количество удалённых файлов.
func (fs *FileStore) RemoveStaleTmp(olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка чтения директории %s: %w", fs.dataDir, err)
	}

	cutoff := now.Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Файл мог быть переименован параллельным Save
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(fs.dataDir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

func (fs *FileStore) ensureDir() error {
	if err := os.MkdirAll(fs.dataDir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", fs.dataDir, err)
	}
	return nil
}

// validName — имя является одним чистым элементом пути.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	if filepath.Base(name) != name || strings.HasSuffix(name, tmpSuffix) {
		return false
	}
	return true
}

// generateName возвращает UUID с расширением исходного файла.
// Пример: photo.png → 3f2b...-....png
func generateName(originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	ext := sanitizeExt(path.Ext(base))
	return uuid.NewString() + ext
}

// sanitizeExt оставляет в расширении только буквы и цифры.
// Пустой результат — без расширения.
func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.TrimPrefix(ext, ".") {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || strings.EqualFold(b.String(), "tmp") {
		return ""
	}
	return "." + b.String()
}
