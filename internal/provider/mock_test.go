package provider

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Name() string {
	return m.Called().String(0)
}

func (m *MockAdapter) Kind() Kind {
	return m.Called().Get(0).(Kind)
}

func (m *MockAdapter) FetchQuotes(ctx context.Context) Batch {
	args := m.Called(ctx)
	return args.Get(0).(Batch)
}
