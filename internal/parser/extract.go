package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Each extractor walks its own ordered rule table and stops at the first rule
// that produces a usable value. A failing rule is never an error.

const amountNumber = `(\d+(?:,\d+)*(?:\.\d+)?)`

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bRs\.?\s*` + amountNumber),
	regexp.MustCompile(`(?i)\bINR\s*` + amountNumber),
	regexp.MustCompile(`₹\s*` + amountNumber),
	regexp.MustCompile(`(?i)` + amountNumber + `\s*Rs\b\.?`),
	regexp.MustCompile(`(?i)` + amountNumber + `\s*INR\b`),
}

func extractAmount(message string) (decimal.Decimal, bool) {
	for _, pattern := range amountPatterns {
		m := pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil || !amount.IsPositive() {
			continue
		}
		return amount, true
	}
	return decimal.Zero, false
}

var accountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{4})\s*(?:ending|xxxx)`),
	regexp.MustCompile(`(?i)ending\s*(\d{4})`),
	regexp.MustCompile(`(?i)xxxx\s*(\d{4})`),
	regexp.MustCompile(`(?i)account\s*(\d{4})\b`),
	regexp.MustCompile(`(?i)card\s*(\d{4})\b`),
}

// accountFallback catches a keyword directly followed by exactly four digits.
var accountFallback = regexp.MustCompile(`(?i)\b(?:account|card|a/c|acc|ac)\s*[:\-]?\s*(\d{4})\b`)

func extractAccountLast4(message string) (string, bool) {
	for _, pattern := range accountPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil && isLast4(m[1]) {
			return m[1], true
		}
	}
	if m := accountFallback.FindStringSubmatch(message); m != nil && isLast4(m[1]) {
		return m[1], true
	}
	return "", false
}

func isLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var (
	debitKeywords  = []string{"debited", "debit", "spent", "paid", "withdrawn", "purchase", "purchased"}
	creditKeywords = []string{"credited", "credit", "received", "deposited", "salary", "refund"}
)

// extractPolarity checks debit keywords before credit keywords, so a message
// mentioning both resolves to a debit.
func extractPolarity(message string) (Polarity, bool) {
	lower := strings.ToLower(message)
	for _, keyword := range debitKeywords {
		if strings.Contains(lower, keyword) {
			return Debit, true
		}
	}
	for _, keyword := range creditKeywords {
		if strings.Contains(lower, keyword) {
			return Credit, true
		}
	}
	return "", false
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

type dateRule struct {
	pattern *regexp.Regexp
	build   func(m []string, loc *time.Location) (time.Time, bool)
}

var dateRules = []dateRule{
	{
		// 05/01/2024, 5-1-24
		pattern: regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`),
		build: func(m []string, loc *time.Location) (time.Time, bool) {
			return calendarDate(expandYear(m[3]), atoi(m[2]), atoi(m[1]), loc)
		},
	},
	{
		// 2024/01/05, 2024-1-5
		pattern: regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`),
		build: func(m []string, loc *time.Location) (time.Time, bool) {
			return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc)
		},
	},
	{
		// 5 Jan 2024, 05 January 24
		pattern: regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{4}|\d{2})\b`),
		build: func(m []string, loc *time.Location) (time.Time, bool) {
			month, ok := monthNames[strings.ToLower(m[2])]
			if !ok {
				return time.Time{}, false
			}
			return calendarDate(expandYear(m[3]), int(month), atoi(m[1]), loc)
		},
	},
}

func extractDate(message string, loc *time.Location) (time.Time, bool) {
	for _, rule := range dateRules {
		m := rule.pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		if date, ok := rule.build(m, loc); ok {
			return date, true
		}
	}
	return time.Time{}, false
}

// calendarDate rejects dates that time.Date would silently normalize,
// such as 31 February.
func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func expandYear(s string) int {
	if len(s) == 2 {
		return 2000 + atoi(s)
	}
	return atoi(s)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

var boilerplatePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Dear\s+[A-Za-z]+[,:]?\s*`),
	regexp.MustCompile(`(?i)^(?:Your|You|A|An)\s+`),
	regexp.MustCompile(`(?i)^(?:Transaction|Txn|Payment|Transfer)\s+`),
	regexp.MustCompile(`(?i)^(?:Rs\.?|INR|₹)\s*\d+.*?\s+`),
}

// merchantClause matches a capitalized phrase introduced by a preposition and
// closed by on/for/dated or the end of the text.
var merchantClause = regexp.MustCompile(`\b(?i:at|to|from|via|with)\s+([A-Z][A-Za-z\s&]+?)(?:\s+(?i:on|for|dated)\b|[.!?]?$)`)

var sentenceBreak = regexp.MustCompile(`[.!?]\s+`)

func extractDescription(message string) (string, bool) {
	cleaned := message
	for _, prefix := range boilerplatePrefixes {
		cleaned = prefix.ReplaceAllString(cleaned, "")
	}

	if m := merchantClause.FindStringSubmatch(cleaned); m != nil {
		if merchant := strings.TrimSpace(m[1]); merchant != "" {
			return merchant, true
		}
	}

	first := strings.TrimSpace(sentenceBreak.Split(cleaned, 2)[0])
	if utf8.RuneCountInString(first) > minSentenceLen {
		return truncate(first, maxSentenceLen), true
	}
	return "", false
}
