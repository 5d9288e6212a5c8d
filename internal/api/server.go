// Package api exposes the application form over a JSON HTTP API under
// /api/v1. Every request loads the session snapshot, applies one operation
// on a fresh controller and writes the snapshot back.
package api

import (
	"context"
	"net/http"
	"time"

	"medcert-apply/internal/common/config"
	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/otp"
	"medcert-apply/internal/session"
	"medcert-apply/internal/uploads"

	"github.com/gorilla/mux"
)

// OTPService sends and checks phone verification codes.
type OTPService interface {
	Send(ctx context.Context, phone string) (*otp.Challenge, error)
	Verify(ctx context.Context, phone, code string) error
}

// DocumentPresigner checks an upload and returns a presigned PUT for it.
type DocumentPresigner interface {
	Presign(ctx context.Context, sessionID string, req uploads.Request) (*uploads.Upload, error)
}

// ProcessStarter starts the post-submission workflow.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

type Dependencies struct {
	Sessions  session.Store
	OTP       OTPService
	Uploads   DocumentPresigner
	Starter   ProcessStarter
	ProcessID string
	Logger    logger.Logger
	Now       func() time.Time
}

type Handler struct {
	sessions  session.Store
	otp       OTPService
	uploads   DocumentPresigner
	starter   ProcessStarter
	processID string
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(deps Dependencies) *Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		sessions:  deps.Sessions,
		otp:       deps.OTP,
		uploads:   deps.Uploads,
		starter:   deps.Starter,
		processID: deps.ProcessID,
		logger:    deps.Logger.WithFields(map[string]interface{}{"component": "api"}),
		now:       now,
	}
}

// Router registers every route under /api/v1.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, apperrors.ErrCodeResourceNotFound, "Route not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorPayload{
			Code:    apperrors.ErrCodeInvalidRequest,
			Message: "Method not allowed",
		}})
	})

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(instrument(h.logger), recoverPanics(h.logger))

	v1.HandleFunc("/certificates", h.listCertificates).Methods(http.MethodGet)
	v1.HandleFunc("/certificates/{id}", h.getCertificate).Methods(http.MethodGet)
	v1.HandleFunc("/payment-options", h.listPaymentOptions).Methods(http.MethodGet)
	v1.HandleFunc("/form-options", h.formOptions).Methods(http.MethodGet)

	v1.HandleFunc("/applications", h.createApplication).Methods(http.MethodPost)
	v1.HandleFunc("/applications/{id}", h.getApplication).Methods(http.MethodGet)
	v1.HandleFunc("/applications/{id}", h.updateFields).Methods(http.MethodPatch)
	v1.HandleFunc("/applications/{id}/certificate-type", h.changeCertificateType).Methods(http.MethodPut)
	v1.HandleFunc("/applications/{id}/documents", h.attachDocument).Methods(http.MethodPost)
	v1.HandleFunc("/applications/{id}/next", h.next).Methods(http.MethodPost)
	v1.HandleFunc("/applications/{id}/back", h.back).Methods(http.MethodPost)
	v1.HandleFunc("/applications/{id}/validation", h.validate).Methods(http.MethodGet)
	v1.HandleFunc("/applications/{id}/quote", h.quote).Methods(http.MethodGet)
	v1.HandleFunc("/applications/{id}/submit", h.submit).Methods(http.MethodPost)

	v1.HandleFunc("/otp", h.sendOTP).Methods(http.MethodPost)
	v1.HandleFunc("/otp/verify", h.verifyOTP).Methods(http.MethodPost)

	return router
}

// NewServer wraps handler in an http.Server with the configured timeouts.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}
}
