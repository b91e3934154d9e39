package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
)

// MockCacheService is a mock implementation of the CacheService interface.
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockForecastManager is a mock implementation of the ForecastManager interface.
type MockForecastManager struct {
	mock.Mock
}

func (m *MockForecastManager) GetForecast(ctx context.Context, coords domain.Coordinates, preferred string) (string, error) {
	args := m.Called(ctx, coords, preferred)
	return args.String(0), args.Error(1)
}

func (m *MockForecastManager) ActiveProvider() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockForecastManager) PriorityOrder() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func newTestMessageService(manager *MockForecastManager, cache *MockCacheService) *messageService {
	parser := NewLocationParser(nil, 0, zap.NewNop())
	svc := NewMessageService(parser, manager, cache, time.Minute, "", zap.NewNop())

	return svc.(*messageService)
}

func TestMessageServiceRoundTrip(t *testing.T) {
	manager := new(MockForecastManager)
	cache := new(MockCacheService)
	svc := newTestMessageService(manager, cache)

	coords := domain.Coordinates{Latitude: 51.5074, Longitude: -0.1278}
	reply := FormatForecast(forecastFor("mock"))

	cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("cache miss"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Minute).Return(nil)
	manager.On("GetForecast", mock.Anything, coords, "").Return(reply, nil)
	manager.On("ActiveProvider").Return("mock")

	got, err := svc.HandleMessage(context.Background(), "+15550100", "51.5074,-0.1278", "")

	require.NoError(t, err)
	assert.Contains(t, got, "15°C Clear")
	assert.Contains(t, got, "Feels like")
	assert.Contains(t, got, "Humidity: 60%")
	assert.Contains(t, got, "High: 16°C Low: 14°C")
	assert.Contains(t, got, "Predominantly Clear")
	manager.AssertExpectations(t)
}

func TestMessageServiceGuidanceForNonLocation(t *testing.T) {
	manager := new(MockForecastManager)
	cache := new(MockCacheService)
	svc := newTestMessageService(manager, cache)

	got, err := svc.HandleMessage(context.Background(), "+15550100", "hello world", "")

	require.NoError(t, err)
	assert.Equal(t, GuidanceReply, got)
	manager.AssertNotCalled(t, "GetForecast", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageServiceParserErrorsPropagate(t *testing.T) {
	manager := new(MockForecastManager)
	cache := new(MockCacheService)
	svc := newTestMessageService(manager, cache)

	_, err := svc.HandleMessage(context.Background(), "+15550100", "91,0", "")

	var formatErr *domain.LocationFormatError

	assert.ErrorAs(t, err, &formatErr)
	manager.AssertNotCalled(t, "GetForecast", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageServiceManagerErrorsPropagate(t *testing.T) {
	manager := new(MockForecastManager)
	cache := new(MockCacheService)
	svc := newTestMessageService(manager, cache)

	allFailed := &domain.AllProvidersFailedError{
		Failures: []domain.ProviderFailure{
			{Provider: "openweather", Err: errors.New("down")},
		},
	}

	cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("cache miss"))
	manager.On("GetForecast", mock.Anything, mock.Anything, "").Return("", allFailed)

	_, err := svc.HandleMessage(context.Background(), "+15550100", "51.5,0.1", "")

	var got *domain.AllProvidersFailedError

	assert.ErrorAs(t, err, &got)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageServiceCachedReplySkipsManager(t *testing.T) {
	manager := new(MockForecastManager)
	cache := new(MockCacheService)
	svc := newTestMessageService(manager, cache)

	cache.On("Get", mock.Anything, "reply::51.51,-0.13").Return([]byte("cached reply"), nil)

	got, err := svc.HandleMessage(context.Background(), "+15550100", "51.5074,-0.1278", "")

	require.NoError(t, err)
	assert.Equal(t, "cached reply", got)
	manager.AssertNotCalled(t, "GetForecast", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageServicePreferredProviderPassedThrough(t *testing.T) {
	manager := new(MockForecastManager)
	cache := new(MockCacheService)
	svc := newTestMessageService(manager, cache)

	cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("cache miss"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	manager.On("GetForecast", mock.Anything, mock.Anything, "weatherapi").Return("reply", nil)
	manager.On("ActiveProvider").Return("weatherapi")

	_, err := svc.HandleMessage(context.Background(), "+15550100", "51.5,0.1", "weatherapi")

	require.NoError(t, err)
	manager.AssertExpectations(t)
}

func TestMessageServiceCacheSetFailureIsNotFatal(t *testing.T) {
	manager := new(MockForecastManager)
	cache := new(MockCacheService)
	svc := newTestMessageService(manager, cache)

	cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("cache miss"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis gone"))
	manager.On("GetForecast", mock.Anything, mock.Anything, "").Return("reply", nil)
	manager.On("ActiveProvider").Return("openmeteo")

	got, err := svc.HandleMessage(context.Background(), "+15550100", "51.5,0.1", "")

	require.NoError(t, err)
	assert.Equal(t, "reply", got)
}

func TestReplyCacheKeyQuantizes(t *testing.T) {
	assert.Equal(t, "reply:openmeteo:51.51,-0.13", replyCacheKey("openmeteo", 51.5074, -0.1278))
	assert.Equal(t, replyCacheKey("", 51.5074, -0.1278), replyCacheKey("", 51.5099, -0.1251))
}
