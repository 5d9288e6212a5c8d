package uploads

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"medcert-apply/internal/common/config"
	"medcert-apply/internal/form"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	input   *s3.PutObjectInput
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.input = params
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{
		URL:    "https://uploads.example.com/" + *params.Key + "?X-Amz-Signature=abc",
		Method: http.MethodPut,
		SignedHeader: http.Header{
			"Host":         []string{"uploads.example.com"},
			"Content-Type": []string{*params.ContentType},
		},
	}, nil
}

func testStorageConfig() config.StorageConfig {
	var cfg config.StorageConfig
	cfg.S3.Bucket = "medcert-uploads"
	cfg.S3.KeyPrefix = "applications"
	cfg.S3.PresignExpiry = 900
	cfg.S3.MaxFileSize = 5 * 1024 * 1024
	return cfg
}

func TestCheck(t *testing.T) {
	svc := NewService(&fakePresigner{}, testStorageConfig())

	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"pdf", Request{form.FieldGovtIDProof, "aadhaar.pdf", "application/pdf", 200_000}, ""},
		{"jpeg with jpg extension", Request{form.FieldCaretakerGovtIDProof, "id.JPG", "image/jpeg", 1024}, ""},
		{"image/jpg alias", Request{form.FieldSpecialFormatFile, "format.jpeg", "image/jpg", 1024}, ""},
		{"png at the limit", Request{form.FieldGovtIDProof, "id.png", "image/png", 5 * 1024 * 1024}, ""},
		{"too large", Request{form.FieldGovtIDProof, "id.png", "image/png", 5*1024*1024 + 1}, "at most 5 MB"},
		{"empty file", Request{form.FieldGovtIDProof, "id.png", "image/png", 0}, "empty"},
		{"wrong type", Request{form.FieldGovtIDProof, "id.gif", "image/gif", 1024}, "JPG, PNG and PDF"},
		{"extension mismatch", Request{form.FieldGovtIDProof, "id.exe", "application/pdf", 1024}, "does not match"},
		{"not a document field", Request{form.FieldFirstName, "id.pdf", "application/pdf", 1024}, "does not take a document"},
		{"missing name", Request{form.FieldGovtIDProof, " ", "application/pdf", 1024}, "file name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Check(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrDocumentRejected)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPresign(t *testing.T) {
	p := &fakePresigner{}
	svc := NewService(p, testStorageConfig())
	svc.newID = func() string { return "0b7c" }

	up, err := svc.Presign(context.Background(), "sess-1", Request{
		Field:       form.FieldGovtIDProof,
		FileName:    `C:\Users\asha\Aadhaar Card.PDF`,
		ContentType: "Application/PDF",
		Size:        300_000,
	})
	require.NoError(t, err)

	assert.Equal(t, "applications/sess-1/govtIdProof/0b7c.pdf", up.Document.Key)
	assert.Equal(t, "Aadhaar Card.PDF", up.Document.FileName)
	assert.Equal(t, "application/pdf", up.Document.ContentType)
	assert.Equal(t, int64(300_000), up.Document.Size)
	assert.Equal(t, http.MethodPut, up.Method)
	assert.True(t, strings.HasPrefix(up.URL, "https://uploads.example.com/applications/sess-1/"))
	assert.Equal(t, map[string]string{"Content-Type": "application/pdf"}, up.Headers)
	assert.Equal(t, 900, up.ExpiresIn)

	assert.Equal(t, "medcert-uploads", *p.input.Bucket)
	assert.Equal(t, "sess-1", p.input.Metadata["session_id"])
	assert.Equal(t, "govtIdProof", p.input.Metadata["field"])
	assert.Equal(t, 15*time.Minute, p.expires)
}

func TestPresign_RejectedDoesNotCallS3(t *testing.T) {
	p := &fakePresigner{}
	svc := NewService(p, testStorageConfig())

	_, err := svc.Presign(context.Background(), "sess-1", Request{
		Field: form.FieldGovtIDProof, FileName: "x.txt", ContentType: "text/plain", Size: 10,
	})
	assert.ErrorIs(t, err, ErrDocumentRejected)
	assert.Nil(t, p.input)
}

func TestPresign_S3Failure(t *testing.T) {
	svc := NewService(&fakePresigner{err: errors.New("no credentials")}, testStorageConfig())

	_, err := svc.Presign(context.Background(), "sess-1", Request{
		Field: form.FieldGovtIDProof, FileName: "id.png", ContentType: "image/png", Size: 10,
	})
	assert.ErrorIs(t, err, ErrPresignFailed)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "id.pdf", sanitizeName("../../id.pdf"))
	assert.Equal(t, "document", sanitizeName("  "))
}
