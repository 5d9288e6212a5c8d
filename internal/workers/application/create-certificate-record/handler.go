package createcertificaterecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "create-certificate-record"
)

var (
	ErrDatabaseInsertFailed     = errors.New("DATABASE_INSERT_FAILED")
	ErrDatabaseConnectionFailed = errors.New("DATABASE_CONNECTION_FAILED")
	ErrInvalidInput             = errors.New("INVALID_INPUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
	errors *apperrors.ErrorHandler
	now    func() time.Time
	newID  func() string
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		logger: l,
		errors: apperrors.NewErrorHandler(l),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
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
		h.errors.HandleJobError(ctx, client, job, toStandardError(err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

// execute records the submission once per session. A replayed job returns
// the row written by the first attempt.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SessionID == "" || input.Submission == nil {
		return nil, fmt.Errorf("%w: sessionId and submission are required", ErrInvalidInput)
	}

	existing, err := h.findBySession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		h.logger.Info("application already recorded", map[string]interface{}{
			"sessionId":     input.SessionID,
			"applicationId": existing.ApplicationID,
		})
		return existing, nil
	}

	sub := input.Submission
	appID := h.newID()
	now := h.now().UTC()
	createdAt := now.Format(time.RFC3339)

	submittedAt, err := time.Parse(time.RFC3339, sub.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: submittedAt: %v", ErrInvalidInput, err)
	}

	submissionJSON, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal submission: %v", ErrDatabaseInsertFailed, err)
	}

	res, err := h.db.ExecContext(ctx, `
		INSERT INTO certificate_applications (
			id, session_id, certificate_type, applicant_name, email, phone,
			payment_option, special_format, total_amount, currency, submission,
			status, submitted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (session_id) DO NOTHING`,
		appID,
		input.SessionID,
		sub.CertificateType,
		sub.ApplicantName(),
		sub.Personal.Email,
		sub.Personal.Phone,
		sub.Payment.SelectedOption,
		sub.Payment.SpecialFormat,
		sub.TotalAmount,
		sub.Currency,
		submissionJSON,
		StatusSubmitted,
		submittedAt,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// a concurrent attempt won the insert
		existing, err := h.findBySession(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: row for session %s vanished", ErrDatabaseInsertFailed, input.SessionID)
		}
		return existing, nil
	}

	// audit failures are logged, not fatal
	auditDetailsJSON, err := json.Marshal(map[string]interface{}{
		"sessionId":       input.SessionID,
		"certificateType": sub.CertificateType,
		"paymentOption":   sub.Payment.SelectedOption,
		"totalAmount":     sub.TotalAmount,
	})
	if err != nil {
		auditDetailsJSON = []byte("{}")
	}
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"certificate_application_created",
		"certificate_application",
		appID,
		auditDetailsJSON,
		now,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err.Error(),
			"applicationId": appID,
		})
	}

	h.logger.Info("application record created", map[string]interface{}{
		"applicationId":   appID,
		"sessionId":       input.SessionID,
		"certificateType": sub.CertificateType,
		"totalAmount":     sub.TotalAmount,
	})

	return &Output{
		ApplicationID:     appID,
		ApplicationStatus: StatusSubmitted,
		CreatedAt:         createdAt,
	}, nil
}

func (h *Handler) findBySession(ctx context.Context, sessionID string) (*Output, error) {
	var (
		out       Output
		createdAt time.Time
	)
	err := h.db.QueryRowContext(ctx, `
		SELECT id, status, created_at FROM certificate_applications
		WHERE session_id = $1`, sessionID).Scan(&out.ApplicationID, &out.ApplicationStatus, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseConnectionFailed, err)
	}
	out.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return &out, nil
}

func toStandardError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "Invalid record input", err)
	case errors.Is(err, ErrDatabaseInsertFailed):
		return apperrors.NewDatabaseInsertFailedError(err)
	case errors.Is(err, ErrDatabaseConnectionFailed):
		return apperrors.NewDatabaseConnectionFailedError(err)
	default:
		return err
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
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
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
