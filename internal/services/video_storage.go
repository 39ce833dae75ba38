package services

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/avi":       true,
	"video/x-msvideo": true,
	"video/mov":       true,
	"video/quicktime": true,
	"video/wmv":       true,
	"video/x-ms-wmv":  true,
	"video/flv":       true,
	"video/x-flv":     true,
}

var allowedVideoExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".wmv": true,
	".flv": true,
}

// StoredFile describes a file written by StorageService.
type StoredFile struct {
	Filename string
	Path     string
	Key      string
	URL      string
}

type StorageService interface {
	SaveResume(file *multipart.FileHeader) (*StoredFile, error)
	SaveVideo(interviewID uuid.UUID, file *multipart.FileHeader) (*StoredFile, error)
	GetFilePath(key string) string
	DeleteFile(key string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
	publicBase string
	now        func() time.Time
}

// NewStorageService stores uploads on local disk under uploadPath; publicBase is the URL
// prefix the files are served from.
func NewStorageService(uploadPath, publicBase string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveResume(file *multipart.FileHeader) (*StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return nil, fmt.Errorf("invalid file extension: %s", ext)
	}

	key := fmt.Sprintf("resumes/resume_%s%s", uuid.New().String(), ext)
	return s.write(file, key)
}

// SaveVideo stores an interview recording under interviews/{id}/{unix}_{name}.
func (s *storageService) SaveVideo(interviewID uuid.UUID, file *multipart.FileHeader) (*StoredFile, error) {
	if !IsAllowedVideo(file) {
		return nil, fmt.Errorf("unsupported video type: %s", file.Filename)
	}

	key := fmt.Sprintf("interviews/%s/%d_%s", interviewID, s.now().UnixMilli(), sanitizeFilename(file.Filename))
	return s.write(file, key)
}

// IsAllowedVideo requires an mp4, avi, mov, wmv or flv extension, since uploads are served
// with a content type derived from it. A declared content type must be a video type or the
// generic octet-stream some clients send.
func IsAllowedVideo(file *multipart.FileHeader) bool {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedVideoExtensions[ext] {
		return false
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return allowedVideoTypes[mediaType] || mediaType == "application/octet-stream"
}

func (s *storageService) write(file *multipart.FileHeader, key string) (*StoredFile, error) {
	filePath := s.GetFilePath(key)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open source file
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	if err := copyToFile(filePath, src); err != nil {
		return nil, err
	}

	return &StoredFile{
		Filename: filepath.Base(key),
		Path:     filePath,
		Key:      key,
		URL:      s.publicBase + "/" + key,
	}, nil
}

// copyToFile never leaves a partial file behind.
func copyToFile(filePath string, src io.Reader) error {
	dst, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	_, err = io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *storageService) GetFilePath(key string) string {
	return filepath.Join(s.uploadPath, filepath.FromSlash(key))
}

func (s *storageService) DeleteFile(key string) error {
	if err := os.Remove(s.GetFilePath(key)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
