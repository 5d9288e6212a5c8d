package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"medcert-apply/internal/catalog"
	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/common/metrics"
	"medcert-apply/internal/form"
	"medcert-apply/internal/uploads"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type applicationView struct {
	SessionID       string                    `json:"sessionId"`
	CertificateType string                    `json:"certificateType"`
	Step            int                       `json:"step"`
	TotalSteps      int                       `json:"totalSteps"`
	StepKind        form.StepKind             `json:"stepKind"`
	RequiredFields  []form.FieldName          `json:"requiredFields"`
	Errors          map[form.FieldName]string `json:"errors"`
	State           form.State                `json:"state"`
	TotalAmount     int                       `json:"totalAmount"`
	TotalDisplay    string                    `json:"totalDisplay"`
	PhoneDisplay    string                    `json:"phoneDisplay,omitempty"`
}

func viewOf(id string, c *form.Controller) applicationView {
	errs := c.Errors()
	if errs == nil {
		errs = map[form.FieldName]string{}
	}
	required := c.RequiredFields()
	if required == nil {
		required = []form.FieldName{}
	}
	state := c.State()
	var phone string
	if state.Personal.Phone != "" {
		phone = catalog.FormatPhone(state.Personal.Phone)
	}
	return applicationView{
		SessionID:       id,
		CertificateType: state.CertificateType,
		Step:            c.Step(),
		TotalSteps:      c.TotalSteps(),
		StepKind:        c.StepKind(),
		RequiredFields:  required,
		Errors:          errs,
		State:           state,
		TotalAmount:     c.Total(),
		TotalDisplay:    catalog.FormatINR(c.Total()),
		PhoneDisplay:    phone,
	}
}

// processVariables are the variables the workflow is started with.
type processVariables struct {
	SessionID   string           `json:"sessionId"`
	Submission  *form.Submission `json:"submission"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	TotalAmount int              `json:"totalAmount"`
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "Malformed request body", err)
	}
	return nil
}

// load restores the controller of the session named in the path.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (string, *form.Controller, bool) {
	id := mux.Vars(r)["id"]
	snap, err := h.sessions.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return "", nil, false
	}
	c, err := form.Restore(snap)
	if err != nil {
		writeError(w, r, h.logger, err)
		return "", nil, false
	}
	return id, c, true
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, id string, c *form.Controller) bool {
	if err := h.sessions.Save(r.Context(), id, c.Snapshot()); err != nil {
		writeError(w, r, h.logger, err)
		return false
	}
	return true
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CertificateType string `json:"certificateType"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := form.NewController(body.CertificateType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := h.sessions.Create(r.Context(), c.Snapshot())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("application started", map[string]interface{}{
		"sessionId":       id,
		"certificateType": body.CertificateType,
	})
	writeJSON(w, http.StatusCreated, viewOf(id, c))
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, c))
}

func (h *Handler) updateFields(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields map[form.FieldName]interface{} `json:"fields"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(body.Fields) == 0 {
		writeFailure(w, apperrors.ErrCodeInvalidRequest, "No fields to update", nil)
		return
	}

	fields := make(map[form.FieldName]string, len(body.Fields))
	for name, raw := range body.Fields {
		v, err := fieldValue(raw)
		if err != nil {
			writeFailure(w, apperrors.ErrCodeInvalidField, "Invalid field value", fmt.Sprintf("%s: %v", name, err))
			return
		}
		fields[name] = v
	}

	id, c, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := c.SetFields(fields); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !h.save(w, r, id, c) {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, c))
}

// fieldValue accepts JSON strings, booleans and numbers as form input.
func fieldValue(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", raw)
	}
}

func (h *Handler) changeCertificateType(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CertificateType string `json:"certificateType"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id, c, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := c.SetCertificateType(body.CertificateType); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !h.save(w, r, id, c) {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, c))
}

func (h *Handler) attachDocument(w http.ResponseWriter, r *http.Request) {
	var req uploads.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id, c, ok := h.load(w, r)
	if !ok {
		return
	}
	up, err := h.uploads.Presign(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	doc := up.Document
	if err := c.SetDocument(req.Field, &doc); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !h.save(w, r, id, c) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"upload":      up,
		"application": viewOf(id, c),
	})
}

func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.load(w, r)
	if !ok {
		return
	}

	step, kind := c.Step(), c.StepKind()
	ct := c.State().CertificateType
	advanced := c.Next()
	if !h.save(w, r, id, c) {
		return
	}

	if !advanced {
		errs := c.Errors()
		metrics.StepTransitions.WithLabelValues(ct, string(kind), "blocked").Inc()
		for field := range errs {
			metrics.ValidationFailures.WithLabelValues(string(kind), string(field)).Inc()
		}
		writeFailure(w, apperrors.ErrCodeStepValidationFailed, "Please fix the highlighted fields", map[string]interface{}{
			"step":   step,
			"errors": errs,
		})
		return
	}

	metrics.StepTransitions.WithLabelValues(ct, string(kind), "advanced").Inc()
	writeJSON(w, http.StatusOK, viewOf(id, c))
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.load(w, r)
	if !ok {
		return
	}
	kind := c.StepKind()
	c.Back()
	if !h.save(w, r, id, c) {
		return
	}
	metrics.StepTransitions.WithLabelValues(c.State().CertificateType, string(kind), "back").Inc()
	writeJSON(w, http.StatusOK, viewOf(id, c))
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.load(w, r)
	if !ok {
		return
	}

	step := c.Step()
	if raw := r.URL.Query().Get("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > c.TotalSteps() {
			writeFailure(w, apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("step must be between 1 and %d", c.TotalSteps()), nil)
			return
		}
		step = n
	}

	kind, _ := form.StepKindFor(step, c.State().CertificateType)
	errs := c.Validate(step)
	required := form.RequiredFieldsFor(step, c.State().CertificateType, c.State())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":      id,
		"step":           step,
		"stepKind":       kind,
		"valid":          len(errs) == 0,
		"errors":         errs,
		"requiredFields": required,
	})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.load(w, r)
	if !ok {
		return
	}
	q, err := c.Quote()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.load(w, r)
	if !ok {
		return
	}
	ct := c.State().CertificateType
	log := logger.FromContext(r.Context(), h.logger).WithFields(map[string]interface{}{"sessionId": id})

	sub, err := c.Submit(h.now())
	if err != nil {
		var verr *form.ValidationError
		if !errors.As(err, &verr) {
			writeError(w, r, h.logger, err)
			return
		}
		if !h.save(w, r, id, c) {
			return
		}
		metrics.Submissions.WithLabelValues(ct, "invalid").Inc()
		writeFailure(w, apperrors.ErrCodeApplicationValidationFailed, "Some steps still have errors", map[string]interface{}{
			"invalidSteps": verr.InvalidSteps(),
			"steps":        verr.Steps,
		})
		return
	}

	key, err := h.starter.StartProcess(r.Context(), h.processID, processVariables{
		SessionID:   id,
		Submission:  sub,
		Email:       sub.Personal.Email,
		Phone:       sub.Personal.Phone,
		TotalAmount: sub.TotalAmount,
	})
	if err != nil {
		metrics.Submissions.WithLabelValues(ct, "start_failed").Inc()
		writeError(w, r, h.logger, apperrors.Wrap(apperrors.ErrCodeProcessStartFailed,
			"Could not start processing the application, please retry", err))
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		log.Warn("failed to discard submitted session", map[string]interface{}{"error": err.Error()})
	}
	metrics.Submissions.WithLabelValues(ct, "started").Inc()
	log.Info("application submitted", map[string]interface{}{
		"processInstanceKey": key,
		"certificateType":    ct,
		"totalAmount":        sub.TotalAmount,
	})

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"sessionId":          id,
		"processInstanceKey": key,
		"submission":         sub,
		"totalDisplay":       catalog.FormatINR(sub.TotalAmount),
	})
}
