// files.go — HTTP handlers файлового хранилища: upload, download, list.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/moviecatalog/internal/api/errors"
	"github.com/bigkaa/moviecatalog/internal/storage/filestore"
)

// multipartMemory — часть multipart, удерживаемая в памяти; остальное на диске.
const multipartMemory = 8 << 20

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	store   *filestore.FileStore
	maxSize int64
	logger  *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
// maxSize — ограничение размера тела запроса загрузки.
func NewFilesHandler(store *filestore.FileStore, maxSize int64, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		store:   store,
		maxSize: maxSize,
		logger:  logger.With(slog.String("component", "files_handler")),
	}
}

// Upload обрабатывает POST /api/files/upload.
// Multipart form: file (обязательно). Ответ — абсолютный URL для скачивания, text/plain.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.uploadFailed(w, fmt.Sprintf("Ошибка разбора multipart: %s", err.Error()))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.uploadFailed(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	result, err := h.store.Save(file, header.Filename)
	if err != nil {
		h.logger.Error("Ошибка сохранения файла",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		h.uploadFailed(w, "Не удалось сохранить файл")
		return
	}

	h.logger.Info("Файл загружен",
		slog.String("name", result.Name),
		slog.Int64("size", result.Size),
		slog.String("sha256", result.Checksum),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(downloadURL(r, result.Name)))
}

func (h *FilesHandler) uploadFailed(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(message))
}

// Download обрабатывает GET /api/files/download/{name}.
// Поддерживает Range requests (206) через http.ServeContent.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		apierrors.ValidationError(w, "Недопустимое имя файла")
		return
	}

	f, info, err := h.store.Open(name)
	switch {
	case errors.Is(err, filestore.ErrInvalidName):
		apierrors.ValidationError(w, "Недопустимое имя файла")
		return
	case errors.Is(err, filestore.ErrNotFound):
		apierrors.NotFound(w, "Файл не найден")
		return
	case err != nil:
		h.logger.Error("Ошибка открытия файла",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		apierrors.IOError(w, "Не удалось прочитать файл")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// List обрабатывает GET /api/files/list. Ошибка — 400 с пустым массивом.
func (h *FilesHandler) List(w http.ResponseWriter, _ *http.Request) {
	names, err := h.store.List()
	if err != nil {
		h.logger.Error("Ошибка чтения хранилища", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, []string{})
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// downloadURL строит абсолютный URL скачивания по адресу текущего запроса.
func downloadURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/api/files/download/" + name}
	return u.String()
}
