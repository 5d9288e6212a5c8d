package otp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"medcert-apply/internal/common/config"
	"medcert-apply/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func testOTPConfig() config.OTPConfig {
	return config.OTPConfig{
		KeyPrefix:   "apply:otp:",
		Length:      6,
		TTL:         300,
		MaxAttempts: 3,
		ResendAfter: 60,
		SenderID:    "MEDCRT",
	}
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, sender SMSSender) (*Service, *miniredis.Miniredis, *testClock) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &testClock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	svc := NewService(client, sender, testOTPConfig(), logger.NewTestLogger(t))
	svc.now = clock.Now
	svc.newCode = func(int) (string, error) { return "482913", nil }
	return svc, mr, clock
}

func TestSend_StoresCodeAndPublishes(t *testing.T) {
	sender := new(MockSender)
	sender.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return *in.PhoneNumber == "+919876543210" &&
			strings.HasPrefix(*in.Message, "482913 ") &&
			*in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue == "MEDCRT"
	})).Return(&sns.PublishOutput{}, nil).Once()

	svc, mr, clock := newTestService(t, sender)
	ch, err := svc.Send(context.Background(), "98765 43210")
	require.NoError(t, err)

	assert.Equal(t, "+919876543210", ch.Phone)
	assert.Equal(t, clock.t.Add(5*time.Minute), ch.ExpiresAt)
	assert.Equal(t, clock.t.Add(time.Minute), ch.ResendAfter)
	assert.Equal(t, "482913", mr.HGet("apply:otp:+919876543210", "code"))
	assert.Equal(t, 5*time.Minute, mr.TTL("apply:otp:+919876543210"))
	sender.AssertExpectations(t)
}

func TestSend_InvalidPhone(t *testing.T) {
	sender := new(MockSender)
	svc, _, _ := newTestService(t, sender)

	_, err := svc.Send(context.Background(), "12345")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	sender.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSend_ResendThrottle(t *testing.T) {
	sender := new(MockSender)
	sender.On("Publish", mock.Anything, mock.Anything).Return(&sns.PublishOutput{}, nil)
	svc, _, clock := newTestService(t, sender)
	ctx := context.Background()

	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)

	clock.t = clock.t.Add(30 * time.Second)
	_, err = svc.Send(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrResendTooSoon)

	clock.t = clock.t.Add(31 * time.Second)
	_, err = svc.Send(ctx, "9876543210")
	assert.NoError(t, err)
	sender.AssertNumberOfCalls(t, "Publish", 2)
}

func TestSend_DeliveryFailureDiscardsCode(t *testing.T) {
	sender := new(MockSender)
	sender.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled by sns"))
	svc, mr, _ := newTestService(t, sender)

	_, err := svc.Send(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.False(t, mr.Exists("apply:otp:+919876543210"))
}

func TestVerify(t *testing.T) {
	sender := new(MockSender)
	sender.On("Publish", mock.Anything, mock.Anything).Return(&sns.PublishOutput{}, nil)
	ctx := context.Background()

	t.Run("correct code is consumed", func(t *testing.T) {
		svc, mr, _ := newTestService(t, sender)
		_, err := svc.Send(ctx, "9876543210")
		require.NoError(t, err)

		require.NoError(t, svc.Verify(ctx, "+91 98765 43210", "482913"))
		assert.False(t, mr.Exists("apply:otp:+919876543210"))
		assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "482913"), ErrCodeExpired)
	})

	t.Run("wrong codes use up attempts", func(t *testing.T) {
		svc, mr, _ := newTestService(t, sender)
		_, err := svc.Send(ctx, "9876543210")
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "000000"), ErrCodeInvalid)
		assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "111111"), ErrCodeInvalid)
		assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "222222"), ErrAttemptsExceeded)
		assert.False(t, mr.Exists("apply:otp:+919876543210"))
		assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "482913"), ErrCodeExpired)
	})

	t.Run("expired code", func(t *testing.T) {
		svc, mr, _ := newTestService(t, sender)
		_, err := svc.Send(ctx, "9876543210")
		require.NoError(t, err)

		mr.FastForward(5*time.Minute + time.Second)
		assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "482913"), ErrCodeExpired)
	})

	t.Run("invalid phone", func(t *testing.T) {
		svc, _, _ := newTestService(t, sender)
		assert.ErrorIs(t, svc.Verify(ctx, "abc", "482913"), ErrInvalidPhone)
	})
}

func TestRecordAttempt(t *testing.T) {
	svc, mr, _ := newTestService(t, new(MockSender))
	ctx := context.Background()
	key := "apply:otp:+919876543210"

	used, err := svc.recordAttempt(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), used)
	assert.False(t, mr.Exists(key))

	mr.HSet(key, "code", "482913", "attempts", "1")
	mr.SetTTL(key, 5*time.Minute)

	used, err = svc.recordAttempt(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), used)
	assert.Equal(t, 5*time.Minute, mr.TTL(key))
}

func TestRandomDigits(t *testing.T) {
	code, err := randomDigits(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*********3210", maskPhone("+919876543210"))
	assert.Equal(t, "****", maskPhone("12"))
}
