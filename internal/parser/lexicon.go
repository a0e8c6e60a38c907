package parser

import (
	"regexp"
	"strings"
)

// bankNames is searched in order. Names that contain another listed name come
// first so that "South Indian Bank" is not reported as "Indian Bank".
var bankNames = []string{
	"HDFC", "ICICI", "SBI", "Axis", "Kotak", "PNB", "BOI", "Canara",
	"City Union", "Union Bank", "South Indian Bank", "Indian Bank",
	"Bank of Baroda", "IDBI", "Yes Bank", "RBL", "Federal Bank",
	"DBS", "HSBC", "Citi", "Standard Chartered", "IndusInd", "DCB",
	"Karur Vysya",
}

// DetectBankName returns the first known bank name mentioned in text,
// matched case-insensitively.
func DetectBankName(text string) (string, bool) {
	upper := strings.ToUpper(text)
	for _, bank := range bankNames {
		if strings.Contains(upper, strings.ToUpper(bank)) {
			return bank, true
		}
	}
	return "", false
}

var (
	creditCardMention = regexp.MustCompile(`(?i)\bcredit\s*card\b`)
	debitCardMention  = regexp.MustCompile(`(?i)\bdebit\s*card\b`)
	cardMention       = regexp.MustCompile(`(?i)\bcard\b`)
)

// LooksLikeCreditCard reports whether text appears to come from a credit card
// rather than a bank account. A debit card is treated as a bank account.
func LooksLikeCreditCard(text string) bool {
	if creditCardMention.MatchString(text) {
		return true
	}
	return cardMention.MatchString(text) && !debitCardMention.MatchString(text)
}
