package catalog

import "errors"

const (
	SpecialFormatFee = 250
	ConsultationFee  = 299
	Currency         = "INR"
)

var ErrPaymentOptionNotFound = errors.New("PAYMENT_OPTION_NOT_FOUND")

type PaymentOption struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          int      `json:"price"`
	Refundable     bool     `json:"refundable"`
	ConvenienceFee int      `json:"convenienceFee,omitempty"`
	Popular        bool     `json:"popular,omitempty"`
	Features       []string `json:"features"`
}

var paymentOptions = []PaymentOption{
	{
		ID:          "digital-no-rx",
		Name:        "Digital Certificate",
		Description: "Digitally signed certificate, no prescription",
		Price:       599,
		Features:    []string{"Digitally signed PDF", "Delivered by email", "Non-refundable"},
	},
	{
		ID:             "digital-rx",
		Name:           "Digital Certificate + Prescription",
		Description:    "Digitally signed certificate with a prescription",
		Price:          799,
		Refundable:     true,
		ConvenienceFee: 199,
		Popular:        true,
		Features:       []string{"Digitally signed PDF", "Prescription included", "Refundable"},
	},
	{
		ID:             "digital-express",
		Name:           "Express Digital Certificate",
		Description:    "Priority consultation and digital delivery",
		Price:          899,
		Refundable:     true,
		ConvenienceFee: 199,
		Features:       []string{"Priority consultation", "Prescription included", "Refundable"},
	},
	{
		ID:          "handwritten-no-rx",
		Name:        "Handwritten Certificate",
		Description: "Handwritten certificate scan, no prescription",
		Price:       1099,
		Features:    []string{"Handwritten and signed", "Scanned copy by email", "Non-refundable"},
	},
	{
		ID:             "handwritten-rx",
		Name:           "Handwritten Certificate + Prescription",
		Description:    "Handwritten certificate scan with a prescription",
		Price:          1399,
		Refundable:     true,
		ConvenienceFee: 299,
		Features:       []string{"Handwritten and signed", "Prescription included", "Refundable"},
	},
	{
		ID:             "handwritten-no-rx-ship",
		Name:           "Handwritten Certificate + Shipping",
		Description:    "Handwritten original shipped to your address",
		Price:          1299,
		Refundable:     true,
		ConvenienceFee: 299,
		Features:       []string{"Original copy shipped", "Tracking included", "Refundable"},
	},
	{
		ID:             "handwritten-rx-ship",
		Name:           "Handwritten Certificate + Prescription + Shipping",
		Description:    "Handwritten original and prescription shipped to your address",
		Price:          1499,
		Refundable:     true,
		ConvenienceFee: 299,
		Features:       []string{"Original copy shipped", "Prescription included", "Refundable"},
	},
}

var paymentIndex = func() map[string]PaymentOption {
	idx := make(map[string]PaymentOption, len(paymentOptions))
	for _, p := range paymentOptions {
		idx[p.ID] = p
	}
	return idx
}()

func PaymentOptions() []PaymentOption {
	out := make([]PaymentOption, len(paymentOptions))
	copy(out, paymentOptions)
	return out
}

func FindPaymentOption(id string) (PaymentOption, error) {
	p, ok := paymentIndex[id]
	if !ok {
		return PaymentOption{}, ErrPaymentOptionNotFound
	}
	return p, nil
}

func IsPaymentOption(id string) bool {
	_, ok := paymentIndex[id]
	return ok
}

// RefundAmount is what a refundable order returns on cancellation: the price
// less the convenience fee. Non-refundable options return 0.
func (p PaymentOption) RefundAmount() int {
	if !p.Refundable {
		return 0
	}
	return p.Price - p.ConvenienceFee
}
