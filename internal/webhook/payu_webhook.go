package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"payu-gateway/internal/logger"
	"payu-gateway/internal/metrics"
	"payu-gateway/internal/notification"
	"payu-gateway/internal/payu"

	"go.uber.org/zap"
)

// Verifier checks a notification locally and confirms it against the
// gateway.
type Verifier interface {
	CheckNotificationForm(ctx context.Context, form url.Values) error
	VerifyNotificationForm(ctx context.Context, form url.Values) (*payu.PaymentStatus, error)
}

// StatusListener receives every verified payment status. A returned error
// makes the handler answer 500 so the gateway delivers the push again.
type StatusListener func(ctx context.Context, sessionID string, status *payu.PaymentStatus) error

type Handler struct {
	Verifier      Verifier
	Notifications notification.Repository
	OnStatus      StatusListener
	Metrics       *metrics.Webhook
}

func NewWebhookHandler(verifier Verifier, repo notification.Repository, onStatus StatusListener) *Handler {
	return &Handler{
		Verifier:      verifier,
		Notifications: repo,
		OnStatus:      onStatus,
		Metrics:       metrics.NewWebhook(),
	}
}

// PaymentWebhookHandler serves the gateway's UrlOnline push. The gateway
// keeps re-sending until the body is exactly "OK". Only pushes carrying a
// valid key2 signature reach the audit log.
func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		logger.FromCtx(ctx).Warn("Invalid PayU notification body", zap.Error(err))
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	form := r.PostForm
	h.Metrics.Received()
	sessionID := form.Get(payu.FieldSessionID)
	log := logger.FromCtx(ctx).With(zap.String("session_id", sessionID))

	if err := h.Verifier.CheckNotificationForm(ctx, form); err != nil {
		code, kind := classify(err)
		h.Metrics.Outcome(kind)
		http.Error(w, http.StatusText(code), code)
		return
	}

	id, processed, err := h.record(ctx, form)
	if err != nil {
		log.Error("Failed to save PayU notification", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if processed {
		h.Metrics.Outcome(metrics.OutcomeDuplicate)
		log.Info("Duplicate PayU notification ignored", zap.Int64("notification_id", id))
		writeOK(w)
		return
	}

	timer := metrics.StartTimer()
	status, err := h.Verifier.VerifyNotificationForm(ctx, form)
	h.Metrics.ObserveVerify(timer)
	if err != nil {
		code, kind := classify(err)
		h.Metrics.Outcome(kind)
		h.markFailed(ctx, log, id, kind, err)
		http.Error(w, http.StatusText(code), code)
		return
	}
	h.Metrics.Outcome(metrics.OutcomeVerified)

	if h.OnStatus != nil {
		if err := h.OnStatus(ctx, sessionID, status); err != nil {
			log.Error("PayU status listener failed",
				zap.String("order_id", status.OrderID()),
				zap.Stringer("status", status.Status()),
				zap.Error(err),
			)
			h.Metrics.Outcome(metrics.OutcomeListenerFailed)
			h.markFailed(ctx, log, id, notification.KindListener, err)
			http.Error(w, "failed to handle payment status", http.StatusInternalServerError)
			return
		}
	}

	if err := h.Notifications.MarkProcessed(ctx, id); err != nil {
		log.Error("Failed to mark PayU notification processed",
			zap.Int64("notification_id", id),
			zap.Error(err),
		)
	}

	writeOK(w)
}

func (h *Handler) record(ctx context.Context, form url.Values) (int64, bool, error) {
	fields := make(map[string]string, len(form))
	for k := range form {
		fields[k] = form.Get(k)
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return 0, false, err
	}

	return h.Notifications.Save(ctx, &notification.Notification{
		PosID:     fields[payu.FieldPosID],
		SessionID: fields[payu.FieldSessionID],
		Ts:        fields[payu.FieldTs],
		Payload:   payload,
	})
}

func (h *Handler) markFailed(ctx context.Context, log *zap.Logger, id int64, kind string, cause error) {
	if err := h.Notifications.MarkFailed(ctx, id, kind, cause.Error()); err != nil {
		log.Error("Failed to mark PayU notification failed",
			zap.Int64("notification_id", id),
			zap.Error(err),
		)
	}
}

// classify maps a verification error to the response code and the failure
// kind stored in the audit log.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, payu.ErrInvalidSignature):
		return http.StatusForbidden, notification.KindInvalidSignature
	case errors.Is(err, payu.ErrValidation):
		return http.StatusBadRequest, notification.KindValidation
	case errors.Is(err, payu.ErrRequestFailed):
		return http.StatusBadGateway, notification.KindRequestFailed
	default:
		return http.StatusInternalServerError, notification.KindRequestFailed
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
