package validatecertificateapplication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/form"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-certificate-application"
)

var (
	ErrApplicationValidationFailed = errors.New("APPLICATION_VALIDATION_FAILED")
)

type Handler struct {
	config *Config
	logger logger.Logger
	errors *apperrors.ErrorHandler
	now    func() time.Time
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
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
		h.errors.HandleJobError(ctx, client, job, err)
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
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// execute runs the schema check, then every form step rule, then checks the
// amount against the catalog price.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if len(input.Submission) == 0 || string(input.Submission) == "null" {
		return nil, invalid("submission is missing", nil)
	}

	var doc interface{}
	if err := json.Unmarshal(input.Submission, &doc); err != nil {
		return nil, invalid("submission is not valid JSON", nil)
	}
	result, err := submissionSchema.Validate(doc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "schema validation error", err)
	}
	if !result.Valid {
		h.logger.Warn("submission failed schema check", map[string]interface{}{
			"sessionId": input.SessionID,
			"errors":    result.GetErrorMessages(),
		})
		return nil, invalid(strings.Join(result.GetErrorMessages(), "; "), nil)
	}

	var sub form.Submission
	if err := json.Unmarshal(input.Submission, &sub); err != nil {
		return nil, invalid(fmt.Sprintf("decode submission: %v", err), nil)
	}

	if steps := form.ValidateAll(sub.State()); len(steps) > 0 {
		verr := &form.ValidationError{Steps: steps}
		h.logger.Warn("submission failed form rules", map[string]interface{}{
			"sessionId":    input.SessionID,
			"invalidSteps": verr.InvalidSteps(),
		})
		return nil, invalid(verr.Error(), verr.InvalidSteps())
	}

	expected := form.CalculateTotal(sub.Payment.SelectedOption, sub.Payment.SpecialFormat)
	if sub.TotalAmount != expected {
		return nil, invalid(fmt.Sprintf("totalAmount %d does not match price %d", sub.TotalAmount, expected), nil)
	}

	h.logger.Info("validation completed", map[string]interface{}{
		"sessionId":       input.SessionID,
		"certificateType": sub.CertificateType,
		"totalAmount":     sub.TotalAmount,
	})

	return &Output{
		IsValid:         true,
		CertificateType: sub.CertificateType,
		ApplicantName:   sub.ApplicantName(),
		TotalAmount:     sub.TotalAmount,
		ValidatedAt:     h.now().UTC().Format(time.RFC3339),
	}, nil
}

func invalid(details string, steps []int) *apperrors.StandardError {
	e := apperrors.NewApplicationValidationFailedError(fmt.Errorf("%w: %s", ErrApplicationValidationFailed, details))
	if steps != nil {
		e = e.WithMetadata("invalidSteps", steps)
	}
	return e
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
