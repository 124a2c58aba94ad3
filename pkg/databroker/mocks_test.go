package databroker

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/zoff-tech/go-databroker/pkg/management"
	"github.com/zoff-tech/go-databroker/pkg/metadata"
)

type mockManagement struct {
	mock.Mock
}

func (m *mockManagement) ExchangeExists(ctx context.Context, name, vhost string, hint management.Hint) (bool, error) {
	args := m.Called(ctx, name, vhost, hint)
	return args.Bool(0), args.Error(1)
}

func (m *mockManagement) CreateExchange(ctx context.Context, name, vhost string) error {
	return m.Called(ctx, name, vhost).Error(0)
}

func (m *mockManagement) DeleteExchange(ctx context.Context, name, vhost string) (map[string]any, error) {
	args := m.Called(ctx, name, vhost)
	details, _ := args.Get(0).(map[string]any)
	return details, args.Error(1)
}

func (m *mockManagement) GetOrCreateQueue(ctx context.Context, meta metadata.StreamMetadata, vhost string) (string, error) {
	args := m.Called(ctx, meta, vhost)
	return args.String(0), args.Error(1)
}

func (m *mockManagement) BindQueue(ctx context.Context, binding management.Binding, vhost string) error {
	return m.Called(ctx, binding, vhost).Error(0)
}

func (m *mockManagement) ListExchanges(ctx context.Context, vhost string) ([]string, error) {
	args := m.Called(ctx, vhost)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *mockTransport) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockTransport) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return m.Called(ctx, exchange, routingKey, body).Error(0)
}

func (m *mockTransport) Close() error {
	return m.Called().Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
