package catalog

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders whole rupees with Indian digit grouping, e.g. ₹1,00,000.
func FormatINR(amount int) string {
	if amount < 0 {
		return "-₹" + inrPrinter.Sprintf("%d", -amount)
	}
	return "₹" + inrPrinter.Sprintf("%d", amount)
}

// FormatPhone renders a ten digit Indian mobile number as "+91 XXXXX XXXXX".
// Anything else is returned unchanged.
func FormatPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) != 10 {
		return phone
	}
	return "+91 " + digits[:5] + " " + digits[5:]
}
