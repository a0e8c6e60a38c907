// Package parser extracts structured transaction details from forwarded bank
// SMS and email notifications.
//
// Parsing is best effort. Only the amount is mandatory; every other field
// degrades to a default when its extractor finds nothing. The parser performs
// no I/O and holds no mutable state, so a single Parser is safe for concurrent
// use.
package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoAmount is returned when the message carries no recognizable amount.
var ErrNoAmount = errors.New("parser: amount not found in message")

// Polarity tells whether a transaction adds to or takes from a balance.
type Polarity string

const (
	Debit  Polarity = "debit"
	Credit Polarity = "credit"
)

const (
	maxDescriptionLen = 200
	maxSentenceLen    = 100
	minSentenceLen    = 10
)

// Extraction is the result of a successful parse.
type Extraction struct {
	Amount       decimal.Decimal
	AccountLast4 *string
	Polarity     Polarity
	OccurredAt   time.Time
	Description  string
}

// Parser turns raw message text into an Extraction.
type Parser struct {
	now func() time.Time
}

// New creates a Parser. now supplies the timestamp used when the message
// carries no date; nil means time.Now.
func New(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// Parse extracts transaction details from text. It returns ErrNoAmount when
// no amount can be found, which is the only failure mode.
func (p *Parser) Parse(text string) (*Extraction, error) {
	message := strings.TrimSpace(text)
	if message == "" {
		return nil, ErrNoAmount
	}

	amount, ok := extractAmount(message)
	if !ok {
		return nil, ErrNoAmount
	}

	now := p.now()
	result := &Extraction{
		Amount:      amount,
		Polarity:    Debit,
		OccurredAt:  now,
		Description: truncate(message, maxDescriptionLen),
	}

	if last4, ok := extractAccountLast4(message); ok {
		result.AccountLast4 = &last4
	}
	if polarity, ok := extractPolarity(message); ok {
		result.Polarity = polarity
	}
	if date, ok := extractDate(message, now.Location()); ok {
		result.OccurredAt = date
	}
	if description, ok := extractDescription(message); ok {
		result.Description = truncate(description, maxDescriptionLen)
	}

	return result, nil
}

// truncate limits s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
