package payu

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the gateway's ts format for new payments.
const TimestampLayout = "2006-01-02-15-04-05"

const (
	sessionSuffixMin = 100000000
	sessionSuffixMax = 999999999
)

var (
	hundred = decimal.NewFromInt(100)

	now = time.Now
)

// PaymentRequest describes one payment attempt. It is built once by NewPaymentRequest
// and consumed by Client.RedirectURL.
type PaymentRequest struct {
	timestamp   string
	orderID     string
	sessionID   string
	amount      int64
	channel     Channel
	description string
	firstName   string
	surname     string
	email       string
}

// NewPaymentRequest prepares a payment of amount (in major currency units) for the
// given order. Each call yields a fresh session id, so retries of the same
// order never reuse one.
func NewPaymentRequest(
	orderID string,
	amount decimal.Decimal,
	channel Channel,
	description, firstName, surname, email string,
) (*PaymentRequest, error) {
	if !channel.Valid() {
		return nil, fmt.Errorf("%w: invalid payment type %q", ErrValidation, string(channel))
	}

	minor := amount.Mul(hundred).Truncate(0)
	if !minor.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, amount.String())
	}

	ts := now().Format(TimestampLayout)

	return &PaymentRequest{
		timestamp:   ts,
		orderID:     orderID,
		sessionID:   fmt.Sprintf("%s_%s_%d", orderID, ts, sessionSuffix()),
		amount:      minor.IntPart(),
		channel:     channel,
		description: description,
		firstName:   firstName,
		surname:     surname,
		email:       email,
	}, nil
}

func sessionSuffix() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(sessionSuffixMax-sessionSuffixMin+1))
	if err != nil {
		// fallback: time-based entropy
		return sessionSuffixMin + now().UnixNano()%(sessionSuffixMax-sessionSuffixMin+1)
	}
	return sessionSuffixMin + n.Int64()
}

func (p *PaymentRequest) Timestamp() string   { return p.timestamp }
func (p *PaymentRequest) OrderID() string     { return p.orderID }
func (p *PaymentRequest) SessionID() string   { return p.sessionID }
func (p *PaymentRequest) Channel() Channel    { return p.channel }
func (p *PaymentRequest) Description() string { return p.description }
func (p *PaymentRequest) FirstName() string   { return p.firstName }
func (p *PaymentRequest) Surname() string     { return p.surname }
func (p *PaymentRequest) Email() string       { return p.email }

// Amount returns the amount in minor currency units.
func (p *PaymentRequest) Amount() int64 { return p.amount }
