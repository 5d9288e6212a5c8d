package createpaymentintent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/payment"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-payment-intent"
)

var (
	ErrInvalidInput        = errors.New("INVALID_INPUT")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrDatabaseFailed      = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config  *Config
	db      *sql.DB
	gateway payment.Gateway
	logger  logger.Logger
	errors  *apperrors.ErrorHandler
	now     func() time.Time
}

func NewHandler(config *Config, db *sql.DB, gateway payment.Gateway, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		db:      db,
		gateway: gateway,
		logger:  l,
		errors:  apperrors.NewErrorHandler(l),
		now:     time.Now,
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

// execute creates one gateway order per application, using the application
// id as the receipt. A stored intent id or an order already at the gateway
// for that receipt is reused instead of creating another.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrInvalidInput)
	}
	if input.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: totalAmount must be positive, got %d", ErrInvalidInput, input.TotalAmount)
	}

	var (
		existing sql.NullString
		status   string
	)
	err := h.db.QueryRowContext(ctx, `
		SELECT payment_intent_id, status FROM certificate_applications
		WHERE id = $1`, input.ApplicationID).Scan(&existing, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, input.ApplicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup failed: %v", ErrDatabaseFailed, err)
	}

	amount := payment.ToPaise(input.TotalAmount)
	if existing.Valid && existing.String != "" {
		h.logger.Info("payment intent already exists", map[string]interface{}{
			"applicationId":   input.ApplicationID,
			"paymentIntentId": existing.String,
		})
		return &Output{
			PaymentIntentID:   existing.String,
			Amount:            amount,
			Currency:          h.config.Currency,
			ApplicationStatus: status,
		}, nil
	}

	order, err := h.gateway.FindOrderByReceipt(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if order != nil {
		h.logger.Info("reusing gateway order for receipt", map[string]interface{}{
			"applicationId":   input.ApplicationID,
			"paymentIntentId": order.ID,
		})
	} else {
		order, err = h.gateway.CreateOrder(ctx, payment.OrderRequest{
			Amount:   amount,
			Currency: h.config.Currency,
			Receipt:  input.ApplicationID,
			Notes: map[string]string{
				"sessionId":     input.SessionID,
				"applicationId": input.ApplicationID,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	_, err = h.db.ExecContext(ctx, `
		UPDATE certificate_applications
		SET payment_intent_id = $1, status = $2, updated_at = $3
		WHERE id = $4`,
		order.ID, StatusPaymentPending, h.now().UTC(), input.ApplicationID)
	if err != nil {
		// the order is found again by receipt on retry
		return nil, fmt.Errorf("%w: record intent %s: %v", ErrDatabaseFailed, order.ID, err)
	}

	h.logger.Info("payment intent created", map[string]interface{}{
		"applicationId":   input.ApplicationID,
		"paymentIntentId": order.ID,
		"amount":          amount,
	})

	return &Output{
		PaymentIntentID:   order.ID,
		Amount:            amount,
		Currency:          h.config.Currency,
		ApplicationStatus: StatusPaymentPending,
	}, nil
}

func toStandardError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "Invalid payment input", err)
	case errors.Is(err, ErrApplicationNotFound):
		return apperrors.NewApplicationNotFoundError(err.Error())
	case errors.Is(err, ErrDatabaseFailed):
		return apperrors.NewDatabaseInsertFailedError(err)
	case errors.Is(err, payment.ErrGatewayRejects):
		e := apperrors.NewPaymentGatewayFailedError(err)
		e.Retryable = false
		return e
	case errors.Is(err, payment.ErrGatewayFailed):
		return apperrors.NewPaymentGatewayFailedError(err)
	default:
		return err
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
