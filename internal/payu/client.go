package payu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"payu-gateway/internal/logger"

	"go.uber.org/zap"
)

const (
	BaseURL = "https://secure.payu.com/paygw/UTF"

	newPaymentPath = "/NewPayment"
	statusPath     = "/Payment/get"

	DefaultLanguage = "cs"
	DefaultTimezone = "Europe/Prague"
)

// Notification POST fields.
const (
	FieldPosID     = "pos_id"
	FieldSessionID = "session_id"
	FieldTs        = "ts"
	FieldSig       = "sig"
)

var requiredFields = []string{FieldPosID, FieldSessionID, FieldTs, FieldSig}

var languages = map[string]bool{
	"cs": true,
	"en": true,
	"pl": true,
}

// Config holds the merchant credentials issued by the gateway.
type Config struct {
	PosID      int
	PosAuthKey string
	// Key1 signs requests the merchant sends to the gateway.
	Key1 string
	// Key2 verifies messages the gateway sends to the merchant.
	Key2     string
	Language string
}

// Client signs payment redirects and verifies status notifications for one
// point of sale. It is safe for concurrent use.
type Client struct {
	posID      int
	posAuthKey string
	key1       string
	key2       string
	language   string

	baseURL   string
	transport Transport
	parser    ResponseParser
	parseTime TimestampParser
	loc       *time.Location
}

type Option func(*Client)

func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

func WithResponseParser(p ResponseParser) Option {
	return func(c *Client) { c.parser = p }
}

func WithTimestampParser(p TimestampParser) Option {
	return func(c *Client) { c.parseTime = p }
}

// WithLocation sets the zone gateway timestamps are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

// WithBaseURL points the client at another gateway host, e.g. a sandbox.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.PosID <= 0 {
		return nil, fmt.Errorf("%w: pos id must be positive", ErrValidation)
	}
	if cfg.PosAuthKey == "" || cfg.Key1 == "" || cfg.Key2 == "" {
		return nil, fmt.Errorf("%w: pos auth key, key1 and key2 are required", ErrValidation)
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if !languages[cfg.Language] {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrValidation, cfg.Language)
	}

	c := &Client{
		posID:      cfg.PosID,
		posAuthKey: cfg.PosAuthKey,
		key1:       cfg.Key1,
		key2:       cfg.Key2,
		language:   cfg.Language,
		baseURL:    BaseURL,
		parser:     NewXMLParser(),
		parseTime:  ParseTimestamp,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = NewHTTPTransport(nil)
	}
	if c.loc == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			logger.L().Error("failed to load gateway location, defaulting to UTC", zap.Error(err))
			loc = time.UTC
		}
		c.loc = loc
	}

	return c, nil
}

func (c *Client) posIDString() string {
	return strconv.Itoa(c.posID)
}

// RedirectURL returns the hosted payment page URL the payer's browser should
// be sent to. clientIP is the payer's address as seen by the shop.
func (c *Client) RedirectURL(p *PaymentRequest, clientIP string) string {
	posID := c.posIDString()
	amount := strconv.FormatInt(p.Amount(), 10)

	sig := sign(
		posID,
		string(p.Channel()),
		p.SessionID(),
		c.posAuthKey,
		amount,
		p.Description(),
		p.OrderID(),
		p.FirstName(),
		p.Surname(),
		p.Email(),
		c.language,
		clientIP,
		p.Timestamp(),
		c.key1,
	)

	query := params{
		{"pos_id", posID},
		{"pos_auth_key", c.posAuthKey},
		{"client_ip", clientIP},
		{"language", c.language},
		{"amount", amount},
		{"pay_type", string(p.Channel())},
		{"session_id", p.SessionID()},
		{"order_id", p.OrderID()},
		{"desc", p.Description()},
		{"email", p.Email()},
		{"first_name", p.FirstName()},
		{"last_name", p.Surname()},
		{"ts", p.Timestamp()},
		{"sig", sig},
	}

	return c.baseURL + newPaymentPath + "?" + query.encode()
}

// VerifyNotification handles a status change push (UrlOnline). It checks
// the POST fields, then asks the gateway for the authoritative transaction
// state and verifies that answer too.
func (c *Client) VerifyNotification(ctx context.Context, fields map[string]string) (*PaymentStatus, error) {
	log := logger.FromCtx(ctx).With(zap.String("session_id", fields[FieldSessionID]))

	if err := c.checkNotification(fields); err != nil {
		logFailure(log, err)
		return nil, err
	}

	status, err := c.fetchStatus(ctx, fields[FieldSessionID], fields[FieldTs])
	if err != nil {
		logFailure(log, err)
		return nil, err
	}

	log.Info("PayU payment status verified",
		zap.String("order_id", status.OrderID()),
		zap.Stringer("status", status.Status()),
	)
	return status, nil
}

// VerifyNotificationForm is VerifyNotification for a parsed request form.
func (c *Client) VerifyNotificationForm(ctx context.Context, form url.Values) (*PaymentStatus, error) {
	return c.VerifyNotification(ctx, formFields(form))
}

// CheckNotificationForm runs only the local checks of a notification:
// required fields, the key2 signature and the pos id. It makes no network
// call, so handlers can reject forged pushes before storing anything.
func (c *Client) CheckNotificationForm(ctx context.Context, form url.Values) error {
	fields := formFields(form)
	if err := c.checkNotification(fields); err != nil {
		logFailure(logger.FromCtx(ctx).With(zap.String("session_id", fields[FieldSessionID])), err)
		return err
	}
	return nil
}

func formFields(form url.Values) map[string]string {
	fields := make(map[string]string, len(form))
	for k := range form {
		fields[k] = form.Get(k)
	}
	return fields
}

// PaymentStatus queries the gateway for a session without a preceding
// notification, e.g. when reconciling payments whose push never arrived.
func (c *Client) PaymentStatus(ctx context.Context, sessionID string) (*PaymentStatus, error) {
	log := logger.FromCtx(ctx).With(zap.String("session_id", sessionID))

	ts := strconv.FormatInt(now().UnixMilli(), 10)
	status, err := c.fetchStatus(ctx, sessionID, ts)
	if err != nil {
		logFailure(log, err)
		return nil, err
	}
	return status, nil
}

func (c *Client) checkNotification(fields map[string]string) error {
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			return &MissingFieldError{Field: f}
		}
	}

	expected := sign(fields[FieldPosID], fields[FieldSessionID], fields[FieldTs], c.key2)
	if !signatureMatches(expected, fields[FieldSig]) {
		return fmt.Errorf("%w: signature in POST data is corrupted", ErrInvalidSignature)
	}

	posID, err := strconv.Atoi(fields[FieldPosID])
	if err != nil || posID != c.posID {
		return fmt.Errorf("%w: unknown pos_id %q in POST data", ErrValidation, fields[FieldPosID])
	}

	return nil
}

func (c *Client) fetchStatus(ctx context.Context, sessionID, ts string) (*PaymentStatus, error) {
	posID := c.posIDString()

	body := params{
		{"pos_id", posID},
		{"session_id", sessionID},
		{"ts", ts},
		{"sig", sign(posID, sessionID, ts, c.key1)},
	}.encode()
	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}

	code, respBody, err := c.transport.Send(ctx, http.MethodPost, c.baseURL+statusPath, header, []byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w: http request to gateway: %w", ErrRequestFailed, err)
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected http status %d", ErrRequestFailed, code)
	}

	doc, err := c.parser.Parse(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid xml: %w", ErrRequestFailed, err)
	}
	if strings.TrimSpace(doc.Status) != "OK" {
		return nil, fmt.Errorf("%w: unexpected response status %q", ErrRequestFailed, doc.Status)
	}

	t := doc.Trans
	expected := sign(posID, t.SessionID, t.OrderID, t.Status, t.Amount, t.Desc, t.Ts, c.key2)
	if !signatureMatches(expected, t.Sig) {
		return nil, fmt.Errorf("%w: signature in XML response is corrupted", ErrInvalidSignature)
	}

	return c.materialize(t)
}

func (c *Client) materialize(t Transaction) (*PaymentStatus, error) {
	status, err := ParseStatus(t.Status)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(t.Create) == "" {
		return nil, fmt.Errorf("%w: missing create timestamp", ErrRequestFailed)
	}
	created, err := c.parseTime(t.Create, c.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: field create: %w", ErrRequestFailed, err)
	}

	var stamps [4]*time.Time
	for i, f := range []struct{ name, value string }{
		{"init", t.Init},
		{"sent", t.Sent},
		{"recv", t.Recv},
		{"cancel", t.Cancel},
	} {
		if stamps[i], err = c.optionalTime(f.name, f.value); err != nil {
			return nil, err
		}
	}

	return NewPaymentStatus(t.OrderID, status, created, stamps[0], stamps[1], stamps[2], stamps[3])
}

func (c *Client) optionalTime(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := c.parseTime(value, c.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %w", ErrRequestFailed, field, err)
	}
	return &t, nil
}

func logFailure(log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		log.Warn("PayU signature mismatch", zap.Bool("security", true), zap.Error(err))
	case errors.Is(err, ErrRequestFailed):
		log.Error("PayU status request failed", zap.Error(err))
	default:
		log.Warn("Invalid PayU notification", zap.Error(err))
	}
}
