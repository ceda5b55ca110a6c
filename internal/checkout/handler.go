package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"payu-gateway/internal/logger"
	"payu-gateway/internal/notification"
	"payu-gateway/internal/payu"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the part of payu.Client the checkout endpoints use.
type Gateway interface {
	RedirectURL(p *payu.PaymentRequest, clientIP string) string
	PaymentStatus(ctx context.Context, sessionID string) (*payu.PaymentStatus, error)
}

type Handler struct {
	Gateway       Gateway
	Notifications notification.Repository
}

func NewHandler(gateway Gateway, repo notification.Repository) *Handler {
	return &Handler{
		Gateway:       gateway,
		Notifications: repo,
	}
}

// Routes mounts the checkout endpoints; the caller applies authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/new", h.NewPayment)
	r.Get("/channels", h.ListChannels)
	r.Get("/notifications/{id}", h.GetNotification)
	r.Get("/{sessionID}/status", h.GetStatus)
	r.Get("/{sessionID}/notifications", h.ListNotifications)
}

// NewPayment turns a shop form post into a signed gateway redirect.
func (h *Handler) NewPayment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.PostForm.Get("amount")))
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	channel, err := payu.ParseChannel(r.PostForm.Get("pay_type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := payu.NewPaymentRequest(
		r.PostForm.Get("order_id"),
		amount,
		channel,
		r.PostForm.Get("desc"),
		r.PostForm.Get("first_name"),
		r.PostForm.Get("last_name"),
		r.PostForm.Get("email"),
	)
	if err != nil {
		log.Warn("Rejected payment request", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info("Redirecting to PayU",
		zap.String("order_id", p.OrderID()),
		zap.String("session_id", p.SessionID()),
		zap.Int64("amount", p.Amount()),
		zap.String("pay_type", string(p.Channel())),
	)

	http.Redirect(w, r, h.Gateway.RedirectURL(p, ClientIP(r)), http.StatusFound)
}

type channelResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels := payu.Channels()
	out := make([]channelResponse, 0, len(channels))
	for _, c := range channels {
		out = append(out, channelResponse{Code: string(c), Name: c.Name()})
	}
	writeJSON(w, http.StatusOK, out)
}

type statusResponse struct {
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	StatusCode  int        `json:"status_code"`
	Final       bool       `json:"final"`
	Created     time.Time  `json:"created"`
	Initialized *time.Time `json:"initialized,omitempty"`
	Sent        *time.Time `json:"sent,omitempty"`
	Received    *time.Time `json:"received,omitempty"`
	Canceled    *time.Time `json:"canceled,omitempty"`
}

// GetStatus asks the gateway for the current state of a session.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s, err := h.Gateway.PaymentStatus(r.Context(), sessionID)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, payu.ErrValidation) {
			code = http.StatusBadRequest
		}
		http.Error(w, http.StatusText(code), code)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		OrderID:     s.OrderID(),
		Status:      s.Status().String(),
		StatusCode:  int(s.Status()),
		Final:       s.Status().IsFinal(),
		Created:     s.Created(),
		Initialized: s.Initialized(),
		Sent:        s.Sent(),
		Received:    s.Received(),
		Canceled:    s.Canceled(),
	})
}

type notificationResponse struct {
	ID           int64           `json:"id"`
	SessionID    string          `json:"session_id"`
	Ts           string          `json:"ts"`
	Payload      json.RawMessage `json:"payload"`
	Attempts     int             `json:"attempts"`
	ReceivedAt   time.Time       `json:"received_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	FailureKind  *string         `json:"failure_kind,omitempty"`
	ProcessError *string         `json:"process_error,omitempty"`
}

// ListNotifications returns the audit trail of pushes for a session.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	list, err := h.Notifications.ListBySession(r.Context(), sessionID)
	if err != nil {
		logger.FromCtx(r.Context()).Error("Failed to list PayU notifications",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]notificationResponse, 0, len(list))
	for i := range list {
		out = append(out, toNotificationResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetNotification returns one audit entry by id.
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	n, err := h.Notifications.GetByID(r.Context(), id)
	if errors.Is(err, notification.ErrNotificationNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		logger.FromCtx(r.Context()).Error("Failed to get PayU notification",
			zap.Int64("notification_id", id),
			zap.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:           n.ID,
		SessionID:    n.SessionID,
		Ts:           n.Ts,
		Payload:      n.Payload,
		Attempts:     n.Attempts,
		ReceivedAt:   n.ReceivedAt,
		ProcessedAt:  n.ProcessedAt,
		FailureKind:  n.FailureKind,
		ProcessError: n.ProcessError,
	}
}

// ClientIP returns the payer address: the first X-Forwarded-For hop when
// behind a proxy, otherwise the connection's remote host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
