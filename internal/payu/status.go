package payu

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the transaction state reported by the gateway.
type Status int

const (
	StatusNew      Status = 1
	StatusCanceled Status = 2
	StatusRejected Status = 3
	StatusStarted  Status = 4
	StatusAwaiting Status = 5
	StatusReturned Status = 7
	StatusPaid     Status = 99
	StatusFailure  Status = 888
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusCanceled, StatusRejected, StatusStarted,
		StatusAwaiting, StatusReturned, StatusPaid, StatusFailure:
		return true
	}
	return false
}

// IsFinal reports whether the gateway will not move the transaction any further.
func (s Status) IsFinal() bool {
	switch s {
	case StatusCanceled, StatusRejected, StatusReturned, StatusPaid, StatusFailure:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusCanceled:
		return "CANCELED"
	case StatusRejected:
		return "REJECTED"
	case StatusStarted:
		return "STARTED"
	case StatusAwaiting:
		return "AWAITING"
	case StatusReturned:
		return "RETURNED"
	case StatusPaid:
		return "PAID"
	case StatusFailure:
		return "FAILURE"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// ParseStatus converts the numeric trans.status value into a Status.
func ParseStatus(raw string) (Status, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric status %q", ErrValidation, raw)
	}
	s := Status(n)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: unknown status %d", ErrValidation, n)
	}
	return s, nil
}

// PaymentStatus is a verified snapshot of a transaction as the gateway sees it.
// Nil lifecycle timestamps mean the stage has not been reached yet.
type PaymentStatus struct {
	orderID     string
	status      Status
	created     time.Time
	initialized *time.Time
	sent        *time.Time
	received    *time.Time
	canceled    *time.Time
}

func NewPaymentStatus(
	orderID string,
	status Status,
	created time.Time,
	initialized, sent, received, canceled *time.Time,
) (*PaymentStatus, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %d", ErrValidation, int(status))
	}

	return &PaymentStatus{
		orderID:     orderID,
		status:      status,
		created:     created,
		initialized: initialized,
		sent:        sent,
		received:    received,
		canceled:    canceled,
	}, nil
}

func (p *PaymentStatus) OrderID() string         { return p.orderID }
func (p *PaymentStatus) Status() Status          { return p.status }
func (p *PaymentStatus) Created() time.Time      { return p.created }
func (p *PaymentStatus) Initialized() *time.Time { return p.initialized }
func (p *PaymentStatus) Sent() *time.Time        { return p.sent }
func (p *PaymentStatus) Received() *time.Time    { return p.received }
func (p *PaymentStatus) Canceled() *time.Time    { return p.canceled }
