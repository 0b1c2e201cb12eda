// MockSink mirrors mockgen output for sink.go; go generate rewrites this file.

package mocks

import (
	reflect "reflect"

	xim "github.com/trickstertwo/xim"
	gomock "go.uber.org/mock/gomock"
)

// MockSink is a mock of Sink interface.
type MockSink struct {
	ctrl     *gomock.Controller
	recorder *MockSinkMockRecorder
	isgomock struct{}
}

// MockSinkMockRecorder is the mock recorder for MockSink.
type MockSinkMockRecorder struct {
	mock *MockSink
}

// NewMockSink creates a new mock instance.
func NewMockSink(ctrl *gomock.Controller) *MockSink {
	mock := &MockSink{ctrl: ctrl}
	mock.recorder = &MockSinkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSink) EXPECT() *MockSinkMockRecorder {
	return m.recorder
}

// OnIdentityChanged mocks base method.
func (m *MockSink) OnIdentityChanged(name string) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnIdentityChanged", name)
}

// OnIdentityChanged indicates an expected call of OnIdentityChanged.
func (mr *MockSinkMockRecorder) OnIdentityChanged(name any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnIdentityChanged", reflect.TypeOf((*MockSink)(nil).OnIdentityChanged), name)
}

// OnIncomingMessage mocks base method.
func (m *MockSink) OnIncomingMessage(sender, content string) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnIncomingMessage", sender, content)
}

// OnIncomingMessage indicates an expected call of OnIncomingMessage.
func (mr *MockSinkMockRecorder) OnIncomingMessage(sender, content any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnIncomingMessage", reflect.TypeOf((*MockSink)(nil).OnIncomingMessage), sender, content)
}

// OnOutgoingResult mocks base method.
func (m *MockSink) OnOutgoingResult(recipient string, outcome xim.DeliveryOutcome) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnOutgoingResult", recipient, outcome)
}

// OnOutgoingResult indicates an expected call of OnOutgoingResult.
func (mr *MockSinkMockRecorder) OnOutgoingResult(recipient, outcome any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnOutgoingResult", reflect.TypeOf((*MockSink)(nil).OnOutgoingResult), recipient, outcome)
}
