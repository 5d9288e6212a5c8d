package form

import (
	"errors"
	"fmt"

	"medcert-apply/internal/catalog"
)

var ErrUnknownPaymentOption = errors.New("UNKNOWN_PAYMENT_OPTION")

// CalculateTotal is the option price plus the special format fee when the
// add-on is selected. An unknown option totals 0; use Quote where an unknown
// option must be an error.
func CalculateTotal(optionID string, specialFormat bool) int {
	q, err := Quote(optionID, specialFormat)
	if err != nil {
		return 0
	}
	return q.Total
}

type PriceQuote struct {
	OptionID         string `json:"optionId"`
	OptionName       string `json:"optionName"`
	OptionPrice      int    `json:"optionPrice"`
	SpecialFormatFee int    `json:"specialFormatFee"`
	Total            int    `json:"total"`
	Refundable       bool   `json:"refundable"`
	RefundAmount     int    `json:"refundAmount"`
	Currency         string `json:"currency"`
	Display          string `json:"display"`
}

func Quote(optionID string, specialFormat bool) (*PriceQuote, error) {
	opt, err := catalog.FindPaymentOption(optionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentOption, optionID)
	}

	q := &PriceQuote{
		OptionID:     opt.ID,
		OptionName:   opt.Name,
		OptionPrice:  opt.Price,
		Total:        opt.Price,
		Refundable:   opt.Refundable,
		RefundAmount: opt.RefundAmount(),
		Currency:     catalog.Currency,
	}
	if specialFormat {
		q.SpecialFormatFee = catalog.SpecialFormatFee
		q.Total += catalog.SpecialFormatFee
	}
	q.Display = catalog.FormatINR(q.Total)
	return q, nil
}
