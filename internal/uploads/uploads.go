// Package uploads checks ID document uploads and hands out presigned S3 PUT
// URLs for them.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"medcert-apply/internal/common/config"
	"medcert-apply/internal/common/metrics"
	"medcert-apply/internal/form"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	ErrDocumentRejected = errors.New("DOCUMENT_REJECTED")
	ErrPresignFailed    = errors.New("STORAGE_FAILED")
)

// Presigner is satisfied by *s3.PresignClient.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// allowedTypes maps accepted content types to the file extensions that may
// carry them.
var allowedTypes = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/jpg":       {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"application/pdf": {".pdf"},
}

// Request describes a file the browser wants to upload.
type Request struct {
	Field       form.FieldName `json:"field"`
	FileName    string         `json:"fileName"`
	ContentType string         `json:"contentType"`
	Size        int64          `json:"size"`
}

// Upload is a presigned PUT for one document plus the reference to store on
// the form.
type Upload struct {
	Document  form.Document     `json:"document"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ExpiresIn int               `json:"expiresIn"`
}

type Service struct {
	presigner Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
	maxSize   int64
	newID     func() string
}

func NewService(p Presigner, cfg config.StorageConfig) *Service {
	return &Service{
		presigner: p,
		bucket:    cfg.S3.Bucket,
		prefix:    strings.Trim(cfg.S3.KeyPrefix, "/"),
		ttl:       config.GetSeconds(cfg.S3.PresignExpiry),
		maxSize:   cfg.S3.MaxFileSize,
		newID:     uuid.NewString,
	}
}

// Check applies the upload constraints: a document field, a non-empty file
// of at most the configured size, an accepted content type and a matching
// extension.
func (s *Service) Check(req Request) error {
	if !form.IsDocumentField(req.Field) {
		return fmt.Errorf("%w: %s does not take a document", ErrDocumentRejected, req.Field)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return fmt.Errorf("%w: file name is required", ErrDocumentRejected)
	}
	if req.Size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrDocumentRejected)
	}
	if req.Size > s.maxSize {
		return fmt.Errorf("%w: file must be at most %d MB", ErrDocumentRejected, s.maxSize/(1024*1024))
	}

	ct := strings.ToLower(strings.TrimSpace(req.ContentType))
	exts, ok := allowedTypes[ct]
	if !ok {
		return fmt.Errorf("%w: only JPG, PNG and PDF files are accepted", ErrDocumentRejected)
	}
	ext := strings.ToLower(filepath.Ext(req.FileName))
	for _, e := range exts {
		if e == ext {
			return nil
		}
	}
	return fmt.Errorf("%w: file extension %q does not match %s", ErrDocumentRejected, ext, ct)
}

// Presign checks req and returns a presigned PUT under
// <prefix>/<session>/<field>/<id><ext>.
func (s *Service) Presign(ctx context.Context, sessionID string, req Request) (*Upload, error) {
	if err := s.Check(req); err != nil {
		metrics.DocumentUploads.WithLabelValues(string(req.Field), "rejected").Inc()
		return nil, err
	}

	ct := strings.ToLower(strings.TrimSpace(req.ContentType))
	key := s.objectKey(sessionID, req.Field, strings.ToLower(filepath.Ext(req.FileName)))
	fileName := sanitizeName(req.FileName)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(ct),
		Metadata: map[string]string{
			"session_id": sessionID,
			"field":      string(req.Field),
			"file_name":  fileName,
		},
	}

	presigned, err := s.presigner.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = s.ttl })
	if err != nil {
		metrics.DocumentUploads.WithLabelValues(string(req.Field), "failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPresignFailed, err)
	}

	headers := map[string]string{"Content-Type": ct}
	for name, vals := range presigned.SignedHeader {
		if len(vals) > 0 && !strings.EqualFold(name, "host") {
			headers[name] = vals[0]
		}
	}

	metrics.DocumentUploads.WithLabelValues(string(req.Field), "presigned").Inc()
	return &Upload{
		Document: form.Document{
			Key:         key,
			FileName:    fileName,
			ContentType: ct,
			Size:        req.Size,
		},
		URL:       presigned.URL,
		Method:    presigned.Method,
		Headers:   headers,
		ExpiresIn: int(s.ttl.Seconds()),
	}, nil
}

func (s *Service) objectKey(sessionID string, field form.FieldName, ext string) string {
	parts := []string{sessionID, string(field), s.newID() + ext}
	if s.prefix != "" {
		parts = append([]string{s.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

// sanitizeName keeps the base name only and falls back to "document".
func sanitizeName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	return name
}
