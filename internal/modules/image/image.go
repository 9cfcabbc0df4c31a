// Package image stores uploaded images on disk and converts stored paths
// into the base64 form carried by API payloads.
package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
)

// DataURIPrefix is prepended to product images in responses.
const DataURIPrefix = "data:image;base64, "

const (
	msgUnsupportedType = "Formato de imagem não suportado."
	msgTooLarge        = "A imagem excede o tamanho máximo permitido."
	msgEmptyFile       = "Nenhum arquivo enviado."
	msgNotFound        = "Imagem não encontrada."
)

// Kind is the owner type of an image and selects its directory.
type Kind string

const (
	KindUser    Kind = "user"
	KindStore   Kind = "store"
	KindProduct Kind = "product"
)

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

type Config struct {
	ProductsDir  string
	StoresDir    string
	UsersDir     string
	StoreDefault string
	UserDefault  string
	MaxBytes     int64
}

// Storage is safe for concurrent use; it holds no mutable state.
type Storage struct {
	cfg   Config
	newID func() string
}

func NewStorage(cfg Config) *Storage {
	return &Storage{cfg: cfg, newID: func() string { return uuid.NewString() }}
}

// UserDefault is the path assigned to users created without an image.
func (s *Storage) UserDefault() string { return s.cfg.UserDefault }

// StoreDefault is the path assigned to every new store.
func (s *Storage) StoreDefault() string { return s.cfg.StoreDefault }

func (s *Storage) dir(kind Kind) (string, error) {
	switch kind {
	case KindUser:
		return s.cfg.UsersDir, nil
	case KindStore:
		return s.cfg.StoresDir, nil
	case KindProduct:
		return s.cfg.ProductsDir, nil
	}
	return "", fmt.Errorf("image: unknown kind %q", kind)
}

// Save writes the bytes read from r as ${dir}/${ownerID}_${uuid}.${ext} and
// returns that path. The file appears atomically.
func (s *Storage) Save(kind Kind, ownerID int64, contentType string, r io.Reader) (string, error) {
	dir, err := s.dir(kind)
	if err != nil {
		return "", apperr.Unexpected(err)
	}

	limit := s.cfg.MaxBytes
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", apperr.Unexpectedf(err, "read upload")
	}
	if len(data) == 0 {
		return "", apperr.Invalid(msgEmptyFile)
	}
	if int64(len(data)) > limit {
		return "", apperr.Invalid(msgTooLarge)
	}

	ext, ok := extensionFor(contentType, data)
	if !ok {
		return "", apperr.Invalid(msgUnsupportedType)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Unexpectedf(err, "create image dir")
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%s.%s", ownerID, s.newID(), ext))
	if err := writeAtomic(path, data); err != nil {
		return "", apperr.Unexpected(err)
	}
	return path, nil
}

// Upload is an image received in the multipart field "file".
type Upload struct {
	ContentType string
	Body        io.ReadCloser
}

// OpenUpload extracts the "file" field of a multipart request. The caller
// closes the returned body, normally through SaveUpload.
func (s *Storage) OpenUpload(r *http.Request) (*Upload, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.MaxBytes+1<<20)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Invalid(msgTooLarge)
		}
		return nil, apperr.Invalid(msgEmptyFile)
	}
	return &Upload{ContentType: hdr.Header.Get("Content-Type"), Body: f}, nil
}

// SaveUpload stores u and closes its body.
func (s *Storage) SaveUpload(u *Upload, kind Kind, ownerID int64) (string, error) {
	defer u.Body.Close()
	return s.Save(kind, ownerID, u.ContentType, u.Body)
}

// Base64 returns the bytes at path, base64 encoded without a data: prefix.
// A missing file yields "" when path is a configured default and NotFound
// otherwise.
func (s *Storage) Base64(path string) (string, error) {
	if path == "" && s.IsDefault(path) {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if s.IsDefault(path) {
			return "", nil
		}
		return "", apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return "", apperr.Unexpectedf(err, "read image %s", path)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURI is Base64 wrapped for product payloads.
func (s *Storage) DataURI(path string) (string, error) {
	b64, err := s.Base64(path)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + b64, nil
}

func (s *Storage) IsDefault(path string) bool {
	return path == s.cfg.UserDefault || path == s.cfg.StoreDefault
}

// Owns reports whether path lies inside the directory of kind. Paths coming
// from clients are checked with it before being read.
func (s *Storage) Owns(kind Kind, path string) bool {
	dir, err := s.dir(kind)
	if err != nil || dir == "" {
		return false
	}
	if s.IsDefault(path) {
		return true
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func extensionFor(contentType string, data []byte) (string, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	ext, ok := extensions[strings.ToLower(mt)]
	return ext, ok
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	name := tmp.Name()
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}
