package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) SendCode(ctx context.Context, phone string) error {
	return m.Called(ctx, phone).Error(0)
}

func (m *mockClient) SignIn(ctx context.Context, phone, code string) error {
	return m.Called(ctx, phone, code).Error(0)
}

func (m *mockClient) SignInPassword(ctx context.Context, password string) error {
	return m.Called(ctx, password).Error(0)
}

func (m *mockClient) IsAuthorized() bool {
	return m.Called().Bool(0)
}

func (m *mockClient) EntityByHandle(ctx context.Context, handle string) (*Entity, error) {
	args := m.Called(ctx, handle)
	if e := args.Get(0); e != nil {
		return e.(*Entity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) EntityByID(ctx context.Context, id int64) (*Entity, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*Entity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) MessageByID(ctx context.Context, entity *Entity, messageID int64) (*Message, error) {
	args := m.Called(ctx, entity, messageID)
	if msg := args.Get(0); msg != nil {
		return msg.(*Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) Close() error {
	return m.Called().Error(0)
}

func newTestManager(client Client, dialErr error) *Manager {
	dial := func(ctx context.Context, userID int64) (Client, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return client, nil
	}
	return NewManager(dial, zap.NewNop())
}

func TestSubmitPhoneStartsSession(t *testing.T) {
	client := &mockClient{}
	client.On("SendCode", mock.Anything, "+1234567890").Return(nil)
	m := newTestManager(client, nil)

	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+1234567890"))

	sess := m.Session(7)
	require.NotNil(t, sess)
	assert.Equal(t, StatePhoneSubmitted, sess.State())
	assert.False(t, m.IsAuthorized(7))
	client.AssertExpectations(t)
}

func TestSubmitPhoneDialFailure(t *testing.T) {
	m := newTestManager(nil, errors.New("network down"))

	err := m.SubmitPhone(context.Background(), 7, "+1")
	require.Error(t, err)
	assert.Nil(t, m.Session(7))
}

func TestSubmitPhoneSendCodeFailure(t *testing.T) {
	client := &mockClient{}
	client.On("SendCode", mock.Anything, "bogus").Return(errors.New("invalid phone"))
	client.On("Close").Return(nil)
	m := newTestManager(client, nil)

	err := m.SubmitPhone(context.Background(), 7, "bogus")
	require.Error(t, err)
	// No session survives a failed code request; the user retries the phone.
	assert.Nil(t, m.Session(7))
	client.AssertExpectations(t)
}

func TestSubmitCodeAuthorizes(t *testing.T) {
	client := &mockClient{}
	client.On("SendCode", mock.Anything, "+1").Return(nil)
	client.On("SignIn", mock.Anything, "+1", "12345").Return(nil)
	client.On("IsAuthorized").Return(true)
	m := newTestManager(client, nil)

	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+1"))
	needsPassword, err := m.SubmitCode(context.Background(), 7, "12345")
	require.NoError(t, err)
	assert.False(t, needsPassword)
	assert.Equal(t, StateAuthorized, m.Session(7).State())
	assert.True(t, m.IsAuthorized(7))
}

func TestSubmitCodeSecondFactorBranch(t *testing.T) {
	client := &mockClient{}
	client.On("SendCode", mock.Anything, "+1").Return(nil)
	client.On("SignIn", mock.Anything, "+1", "12345").Return(ErrPasswordNeeded)
	client.On("SignInPassword", mock.Anything, "hunter2").Return(nil)
	client.On("IsAuthorized").Return(true)
	m := newTestManager(client, nil)

	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+1"))

	needsPassword, err := m.SubmitCode(context.Background(), 7, "12345")
	require.NoError(t, err)
	assert.True(t, needsPassword)
	assert.Equal(t, StateSecondFactorRequired, m.Session(7).State())
	assert.False(t, m.IsAuthorized(7))

	require.NoError(t, m.SubmitPassword(context.Background(), 7, "hunter2"))
	assert.True(t, m.IsAuthorized(7))
}

func TestSubmitCodeFailureAbandonsSession(t *testing.T) {
	client := &mockClient{}
	client.On("SendCode", mock.Anything, "+1").Return(nil)
	client.On("SignIn", mock.Anything, "+1", "wrong").Return(errors.New("code invalid"))
	client.On("Close").Return(nil)
	m := newTestManager(client, nil)

	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+1"))
	_, err := m.SubmitCode(context.Background(), 7, "wrong")
	require.Error(t, err)

	// The session is gone; a fresh phone submission is required.
	assert.Nil(t, m.Session(7))
	assert.False(t, m.IsAuthorized(7))
}

func TestSubmitPasswordFailureAbandonsSession(t *testing.T) {
	client := &mockClient{}
	client.On("SendCode", mock.Anything, "+1").Return(nil)
	client.On("SignIn", mock.Anything, "+1", "12345").Return(ErrPasswordNeeded)
	client.On("SignInPassword", mock.Anything, "wrong").Return(errors.New("bad password"))
	client.On("Close").Return(nil)
	m := newTestManager(client, nil)

	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+1"))
	_, err := m.SubmitCode(context.Background(), 7, "12345")
	require.NoError(t, err)

	require.Error(t, m.SubmitPassword(context.Background(), 7, "wrong"))
	assert.Nil(t, m.Session(7))
}

func TestSubmitCodeWithoutSession(t *testing.T) {
	m := newTestManager(nil, nil)

	_, err := m.SubmitCode(context.Background(), 99, "12345")
	assert.Error(t, err)

	assert.Error(t, m.SubmitPassword(context.Background(), 99, "pw"))
}

func TestSubmitCodeOutOfOrder(t *testing.T) {
	client := &mockClient{}
	client.On("SendCode", mock.Anything, "+1").Return(nil)
	client.On("SignIn", mock.Anything, "+1", "12345").Return(nil)
	m := newTestManager(client, nil)

	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+1"))
	_, err := m.SubmitCode(context.Background(), 7, "12345")
	require.NoError(t, err)

	// Password after terminal success is a state violation.
	assert.Error(t, m.SubmitPassword(context.Background(), 7, "pw"))
}

func TestResubmitPhoneReplacesSession(t *testing.T) {
	first := &mockClient{}
	first.On("SendCode", mock.Anything, "+1").Return(nil)
	first.On("Close").Return(nil)

	second := &mockClient{}
	second.On("SendCode", mock.Anything, "+2").Return(nil)

	clients := []Client{first, second}
	dial := func(ctx context.Context, userID int64) (Client, error) {
		c := clients[0]
		clients = clients[1:]
		return c, nil
	}
	m := NewManager(dial, zap.NewNop())

	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+1"))
	require.NoError(t, m.SubmitPhone(context.Background(), 7, "+2"))

	assert.Equal(t, "+2", m.Session(7).Phone)
	first.AssertExpectations(t)
}

func TestTryAcquireRejectsOverlap(t *testing.T) {
	sess := &Session{UserID: 7}
	require.True(t, sess.TryAcquire())
	assert.False(t, sess.TryAcquire())
	sess.Release()
	assert.True(t, sess.TryAcquire())
}

func TestFloodWaitError(t *testing.T) {
	err := &FloodWaitError{RetryAfter: 30 * time.Second}
	assert.Contains(t, err.Error(), "30s")

	var flood *FloodWaitError
	assert.True(t, errors.As(error(err), &flood))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "phone_submitted", StatePhoneSubmitted.String())
	assert.Equal(t, "second_factor_required", StateSecondFactorRequired.String())
	assert.Equal(t, "authorized", StateAuthorized.String())
}
