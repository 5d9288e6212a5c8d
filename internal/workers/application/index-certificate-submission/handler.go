package indexcertificatesubmission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"medcert-apply/internal/catalog"
	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
)

const (
	TaskType = "index-certificate-submission"
)

var (
	ErrInvalidInput                  = errors.New("INVALID_INPUT")
	ErrElasticsearchConnectionFailed = errors.New("ELASTICSEARCH_CONNECTION_FAILED")
	ErrIndexingFailed                = errors.New("INDEXING_FAILED")
	ErrIndexingRejected              = errors.New("INDEXING_REJECTED")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
	errors *apperrors.ErrorHandler
	now    func() time.Time
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		client: client,
		logger: l,
		errors: apperrors.NewErrorHandler(l),
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "parse input", err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, h.toStandardError(err))
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// execute writes the search document under the application id, so a
// replayed job overwrites instead of duplicating.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" || input.Submission == nil {
		return nil, fmt.Errorf("%w: applicationId and submission are required", ErrInvalidInput)
	}

	doc := h.buildDocument(input)
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode document: %v", ErrIndexingFailed, err)
	}

	res, err := h.client.Index(
		h.config.IndexName,
		bytes.NewReader(body),
		h.client.Index.WithContext(ctx),
		h.client.Index.WithDocumentID(input.ApplicationID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrElasticsearchConnectionFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %s: %s", ErrIndexingFailed, res.Status(), msg)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrIndexingRejected, res.Status(), msg)
	}

	var indexed struct {
		ID     string `json:"_id"`
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrIndexingFailed, err)
	}

	h.logger.Info("submission indexed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"index":         h.config.IndexName,
		"result":        indexed.Result,
	})

	return &Output{
		Indexed:    true,
		IndexName:  h.config.IndexName,
		DocumentID: indexed.ID,
		Result:     indexed.Result,
	}, nil
}

func (h *Handler) buildDocument(input *Input) SearchDocument {
	sub := input.Submission
	name := sub.CertificateType
	if ct, err := catalog.FindCertificateType(sub.CertificateType); err == nil {
		name = ct.Name
	}
	status := input.ApplicationStatus
	if status == "" {
		status = "submitted"
	}
	return SearchDocument{
		ApplicationID:   input.ApplicationID,
		SessionID:       input.SessionID,
		Status:          status,
		CertificateType: sub.CertificateType,
		CertificateName: name,
		ApplicantName:   sub.ApplicantName(),
		Email:           sub.Personal.Email,
		Phone:           catalog.FormatPhone(sub.Personal.Phone),
		City:            sub.Personal.Address.City,
		State:           sub.Personal.Address.State,
		Organization:    sub.Personal.OrganizationName,
		PaymentOption:   sub.Payment.SelectedOption,
		PaymentIntentID: input.PaymentIntentID,
		TotalAmount:     sub.TotalAmount,
		SubmittedAt:     sub.SubmittedAt,
		IndexedAt:       h.now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) toStandardError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "Invalid index input", err)
	case errors.Is(err, ErrElasticsearchConnectionFailed):
		return apperrors.NewElasticsearchConnectionFailedError(err)
	case errors.Is(err, ErrIndexingRejected):
		e := apperrors.NewIndexingFailedError(h.config.IndexName, err)
		e.Retryable = false
		return e
	case errors.Is(err, ErrIndexingFailed):
		return apperrors.NewIndexingFailedError(h.config.IndexName, err)
	default:
		return err
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
