// Package mocks provides testify mocks of the output ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jupyter/overviews/internal/domain"
)

// MockOverviewPublisher is a mock implementation of out.OverviewPublisher
type MockOverviewPublisher struct {
	mock.Mock
}

// NewMockOverviewPublisher creates a publisher mock asserting its expectations on cleanup.
func NewMockOverviewPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOverviewPublisher {
	m := &MockOverviewPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOverviewPublisher) Provider() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockOverviewPublisher) Publish(ctx context.Context, req domain.PublishRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockContentReader is a mock implementation of out.ContentReader
type MockContentReader struct {
	mock.Mock
}

// NewMockContentReader creates a content reader mock asserting its expectations on cleanup.
func NewMockContentReader(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockContentReader {
	m := &MockContentReader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockContentReader) ReadContent(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSecretProvider is a mock implementation of out.SecretProvider
type MockSecretProvider struct {
	mock.Mock
}

// NewMockSecretProvider creates a secret provider mock asserting its expectations on cleanup.
func NewMockSecretProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSecretProvider {
	m := &MockSecretProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSecretProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSecretProvider) GetSecret(ctx context.Context, key string) (domain.Secret, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.Secret), args.Error(1)
}

func (m *MockSecretProvider) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockMetricsRecorder is a mock implementation of out.MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

// NewMockMetricsRecorder creates a metrics mock asserting its expectations on cleanup.
func NewMockMetricsRecorder(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMetricsRecorder {
	m := &MockMetricsRecorder{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMetricsRecorder) RecordPublish(ctx context.Context, provider string, status domain.OutcomeStatus, duration time.Duration) {
	m.Called(ctx, provider, status, duration)
}

func (m *MockMetricsRecorder) RecordSkip(ctx context.Context, code domain.SkipCode) {
	m.Called(ctx, code)
}
