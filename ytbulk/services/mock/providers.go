package mock

import (
	context "context"
	reflect "reflect"

	services "github.com/pkbhaiya/ytbulk/ytbulk/services"
	gomock "go.uber.org/mock/gomock"
)

// MockStatsProvider is a mock of StatsProvider interface.
type MockStatsProvider struct {
	ctrl     *gomock.Controller
	recorder *MockStatsProviderMockRecorder
	isgomock struct{}
}

// MockStatsProviderMockRecorder is the mock recorder for MockStatsProvider.
type MockStatsProviderMockRecorder struct {
	mock *MockStatsProvider
}

// NewMockStatsProvider creates a new mock instance.
func NewMockStatsProvider(ctrl *gomock.Controller) *MockStatsProvider {
	mock := &MockStatsProvider{ctrl: ctrl}
	mock.recorder = &MockStatsProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStatsProvider) EXPECT() *MockStatsProviderMockRecorder {
	return m.recorder
}

// FetchStats mocks base method.
func (m *MockStatsProvider) FetchStats(ctx context.Context, videoIDs []string) (map[string]services.VideoStats, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FetchStats", ctx, videoIDs)
	ret0, _ := ret[0].(map[string]services.VideoStats)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// FetchStats indicates an expected call of FetchStats.
func (mr *MockStatsProviderMockRecorder) FetchStats(ctx, videoIDs any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FetchStats", reflect.TypeOf((*MockStatsProvider)(nil).FetchStats), ctx, videoIDs)
}

// MockSuggestProvider is a mock of SuggestProvider interface.
type MockSuggestProvider struct {
	ctrl     *gomock.Controller
	recorder *MockSuggestProviderMockRecorder
	isgomock struct{}
}

// MockSuggestProviderMockRecorder is the mock recorder for MockSuggestProvider.
type MockSuggestProviderMockRecorder struct {
	mock *MockSuggestProvider
}

// NewMockSuggestProvider creates a new mock instance.
func NewMockSuggestProvider(ctrl *gomock.Controller) *MockSuggestProvider {
	mock := &MockSuggestProvider{ctrl: ctrl}
	mock.recorder = &MockSuggestProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSuggestProvider) EXPECT() *MockSuggestProviderMockRecorder {
	return m.recorder
}

// Suggest mocks base method.
func (m *MockSuggestProvider) Suggest(ctx context.Context, keyword string) ([]string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Suggest", ctx, keyword)
	ret0, _ := ret[0].([]string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Suggest indicates an expected call of Suggest.
func (mr *MockSuggestProviderMockRecorder) Suggest(ctx, keyword any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Suggest", reflect.TypeOf((*MockSuggestProvider)(nil).Suggest), ctx, keyword)
}
