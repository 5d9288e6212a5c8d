package createpaymentintent

type Input struct {
	ApplicationID string `json:"applicationId"`
	SessionID     string `json:"sessionId"`
	TotalAmount   int    `json:"totalAmount"` // whole rupees
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type Output struct {
	PaymentIntentID   string `json:"paymentIntentId"`
	Amount            int64  `json:"amount"` // paise
	Currency          string `json:"currency"`
	ApplicationStatus string `json:"applicationStatus"`
}

// StatusPaymentPending is set once an order exists for the application.
const StatusPaymentPending = "payment_pending"
