package api

import (
	"net/http"

	"medcert-apply/internal/catalog"
	apperrors "medcert-apply/internal/common/errors"

	"github.com/gorilla/mux"
)

type formOptionsResponse struct {
	MedicalProblems        []string `json:"medicalProblems"`
	LeaveDurations         []string `json:"leaveDurations"`
	GuardianRelationships  []string `json:"guardianRelationships"`
	CaretakerRelationships []string `json:"caretakerRelationships"`
	Genders                []string `json:"genders"`
	SpecialFormatFee       int      `json:"specialFormatFee"`
	Currency               string   `json:"currency"`
}

func (h *Handler) listCertificates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"certificates": catalog.CertificateTypes()})
}

func (h *Handler) getCertificate(w http.ResponseWriter, r *http.Request) {
	ct, err := catalog.FindCertificateType(mux.Vars(r)["id"])
	if err != nil {
		writeFailure(w, apperrors.ErrCodeCertificateNotFound, "Certificate type not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (h *Handler) listPaymentOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"paymentOptions": catalog.PaymentOptions()})
}

func (h *Handler) formOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formOptionsResponse{
		MedicalProblems:        catalog.MedicalProblems,
		LeaveDurations:         catalog.LeaveDurations,
		GuardianRelationships:  catalog.GuardianRelationships,
		CaretakerRelationships: catalog.CaretakerRelationships,
		Genders:                catalog.Genders,
		SpecialFormatFee:       catalog.SpecialFormatFee,
		Currency:               catalog.Currency,
	})
}
