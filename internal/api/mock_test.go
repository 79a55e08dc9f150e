package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rateservice/internal/service"
)

type mockRateReader struct {
	mock.Mock
}

func (m *mockRateReader) GetRate(ctx context.Context, from, to string) (*service.RateQuote, error) {
	args := m.Called(ctx, from, to)
	q, _ := args.Get(0).(*service.RateQuote)
	return q, args.Error(1)
}

func (m *mockRateReader) GetAllRates(ctx context.Context) (map[string]float64, error) {
	args := m.Called(ctx)
	rates, _ := args.Get(0).(map[string]float64)
	return rates, args.Error(1)
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RunCycle(ctx context.Context, filter service.SourceFilter) (*service.RefreshResult, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).(*service.RefreshResult)
	return res, args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueRefresh(ctx context.Context, filter service.SourceFilter) (string, error) {
	args := m.Called(ctx, filter)
	return args.String(0), args.Error(1)
}
