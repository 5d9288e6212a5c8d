package api

import (
	"net/http"

	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/validation"
	"medcert-apply/internal/form"
)

func (h *Handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ch, err := h.otp.Send(r.Context(), body.Phone)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ch)
}

// verifyOTP checks a code. With a session id the session's phone must match
// and is marked verified on success.
func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"sessionId"`
		Phone     string `json:"phone"`
		Code      string `json:"code"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if body.Code == "" {
		writeFailure(w, apperrors.ErrCodeInvalidField, "Verification code is required", nil)
		return
	}

	if body.SessionID == "" {
		if err := h.otp.Verify(r.Context(), body.Phone, body.Code); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"verified": true})
		return
	}

	snap, err := h.sessions.Load(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := form.Restore(snap)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	current := c.State().Personal.Phone
	if current == "" || validation.NormalizePhone(current) != validation.NormalizePhone(body.Phone) {
		writeError(w, r, h.logger, form.ErrPhoneMismatch)
		return
	}

	if err := h.otp.Verify(r.Context(), body.Phone, body.Code); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := c.MarkPhoneVerified(body.Phone); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !h.save(w, r, body.SessionID, c) {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(body.SessionID, c))
}
