package webhook

import (
	"context"
	"net/url"

	"payu-gateway/internal/notification"
	"payu-gateway/internal/payu"

	"github.com/stretchr/testify/mock"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) CheckNotificationForm(ctx context.Context, form url.Values) error {
	return m.Called(ctx, form).Error(0)
}

func (m *MockVerifier) VerifyNotificationForm(ctx context.Context, form url.Values) (*payu.PaymentStatus, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payu.PaymentStatus), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Save(ctx context.Context, n *notification.Notification) (int64, bool, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockNotificationRepository) MarkProcessed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNotificationRepository) MarkFailed(ctx context.Context, id int64, kind, reason string) error {
	return m.Called(ctx, id, kind, reason).Error(0)
}

func (m *MockNotificationRepository) ListBySession(ctx context.Context, sessionID string) ([]notification.Notification, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id int64) (*notification.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}
