// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
)

const collaboratorStorage = "object storage"

// ObjectStorage keeps user uploads such as avatars and product images.
type ObjectStorage interface {
	UploadFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
}

type StorageService struct {
	s3Client *s3.S3
	config   config.AWSConfig
	baseURL  string
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
	ImagesOnly   bool
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	baseURL := fmt.Sprintf("http://%s:%s", cfg.Server.Host, cfg.Server.Port)
	if cfg.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{config: cfg.AWS, baseURL: baseURL}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   cfg.AWS,
		baseURL:  baseURL,
	}, nil
}

func (s *StorageService) UploadFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	// Validate file size
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, s.invalidUpload(options, fmt.Sprintf("file size %d bytes exceeds maximum allowed size %d bytes", header.Size, options.MaxSize))
	}

	// Validate file type
	if len(options.AllowedTypes) > 0 {
		fileExt := strings.ToLower(filepath.Ext(header.Filename))
		allowed := false
		for _, allowedType := range options.AllowedTypes {
			if fileExt == allowedType {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, s.invalidUpload(options, fmt.Sprintf("file type %s is not allowed", fileExt))
		}
	}

	if options.ImagesOnly {
		if err := ValidateImage(file); err != nil {
			return nil, s.invalidUpload(options, err.Error())
		}
	}

	// Generate unique filename
	filename := s.generateFileName(header.Filename, options.Folder)

	// Read file content
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(fileBytes)
	}

	// Upload to S3 or local storage
	if s.s3Client != nil {
		return s.uploadToS3(ctx, fileBytes, filename, contentType, options.IsPublic)
	}

	return s.uploadToLocal(fileBytes, filename, contentType)
}

func (s *StorageService) invalidUpload(options UploadOptions, message string) error {
	return models.NewValidationError(i18n.KeyUserAvatarInvalid, "%[2]s", options.MaxSize>>20, message)
}

func (s *StorageService) uploadToS3(ctx context.Context, fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	// Prepare S3 upload parameters
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
		CacheControl:  aws.String("public, max-age=31536000"),
	}

	if isPublic {
		params.ACL = aws.String("public-read")
	}

	// Upload to S3
	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, models.WrapCollaborator(collaboratorStorage, "upload", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, filename, contentType string) (*UploadResult, error) {
	// Local development: nothing is written, the URL is a placeholder.
	logrus.WithField("key", filename).Debug("S3 not configured, upload simulated")

	return &UploadResult{
		URL:      fmt.Sprintf("%s/uploads/%s", s.baseURL, filename),
		Key:      filename,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if s.s3Client == nil {
		logrus.WithField("key", key).Debug("S3 not configured, delete simulated")
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})
	return models.WrapCollaborator(collaboratorStorage, "delete", err)
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case "products":
		return UploadOptions{
			Folder:       "products",
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			IsPublic:     true,
			ImagesOnly:   true,
		}
	default:
		maxSize := s.config.MaxAvatarSize
		if maxSize <= 0 {
			maxSize = 5 * 1024 * 1024
		}
		return UploadOptions{
			Folder:       "avatars",
			MaxSize:      maxSize,
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			IsPublic:     true,
			ImagesOnly:   true,
		}
	}
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	// Generate UUID for uniqueness
	id := uuid.New()

	// Get file extension
	ext := strings.ToLower(filepath.Ext(originalName))

	// Create filename with timestamp and UUID
	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}

	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.CloudFrontURL, "/"), key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.S3Bucket, s.config.Region, key)
}

// ValidateImage sniffs the first bytes of file and rewinds it.
func ValidateImage(file io.ReadSeeker) error {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// Reset file pointer
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}

	if !isValidImageType(buffer[:n]) {
		return fmt.Errorf("invalid image file")
	}

	return nil
}

func isValidImageType(buffer []byte) bool {
	// JPEG
	if len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF {
		return true
	}

	// PNG
	if len(buffer) >= 8 && bytes.Equal(buffer[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return true
	}

	// GIF
	if len(buffer) >= 6 && (string(buffer[0:6]) == "GIF87a" || string(buffer[0:6]) == "GIF89a") {
		return true
	}

	// WebP: RIFF....WEBP
	if len(buffer) >= 12 && string(buffer[0:4]) == "RIFF" && string(buffer[8:12]) == "WEBP" {
		return true
	}

	return false
}
