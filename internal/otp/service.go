// Package otp issues and verifies the one-time codes that confirm an
// applicant's phone number.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"medcert-apply/internal/common/config"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/common/metrics"
	"medcert-apply/internal/common/validation"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidPhone     = errors.New("INVALID_PHONE")
	ErrCodeInvalid      = errors.New("OTP_INVALID")
	ErrCodeExpired      = errors.New("OTP_EXPIRED")
	ErrAttemptsExceeded = errors.New("OTP_ATTEMPTS_EXCEEDED")
	ErrResendTooSoon    = errors.New("OTP_RESEND_TOO_SOON")
	ErrSendFailed       = errors.New("OTP_SEND_FAILED")
	ErrStoreFailed      = errors.New("OTP_STORE_FAILED")
)

// SMSSender is the part of the SNS client the service needs.
type SMSSender interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Challenge describes a code that has been sent.
type Challenge struct {
	Phone       string    `json:"phone"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ResendAfter time.Time `json:"resendAfter"`
}

// Service keeps one outstanding code per phone number in a Redis hash with
// the code, the failed attempt count and the time it was sent.
type Service struct {
	redis   *redis.Client
	sender  SMSSender
	cfg     config.OTPConfig
	logger  logger.Logger
	now     func() time.Time
	newCode func(length int) (string, error)
}

func NewService(client *redis.Client, sender SMSSender, cfg config.OTPConfig, log logger.Logger) *Service {
	return &Service{
		redis:   client,
		sender:  sender,
		cfg:     cfg,
		logger:  log.WithFields(map[string]interface{}{"component": "otp"}),
		now:     time.Now,
		newCode: randomDigits,
	}
}

func (s *Service) key(phone string) string {
	return s.cfg.KeyPrefix + phone
}

// Send generates a fresh code for phone and delivers it by SMS. A previous
// code for the same phone is replaced, unless it was sent too recently.
func (s *Service) Send(ctx context.Context, phone string) (*Challenge, error) {
	if !validation.ValidatePhone(phone) {
		return nil, ErrInvalidPhone
	}
	phone = validation.NormalizePhone(phone)
	key := s.key(phone)
	now := s.now()

	sentAt, err := s.redis.HGet(ctx, key, "sentAt").Int64()
	switch {
	case err == nil:
		if next := time.Unix(sentAt, 0).Add(config.GetSeconds(s.cfg.ResendAfter)); now.Before(next) {
			metrics.OTPEvents.WithLabelValues("throttled").Inc()
			return nil, ErrResendTooSoon
		}
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	code, err := s.newCode(s.cfg.Length)
	if err != nil {
		return nil, fmt.Errorf("%w: generate code: %v", ErrStoreFailed, err)
	}

	ttl := config.GetSeconds(s.cfg.TTL)
	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "code", code, "attempts", 0, "sentAt", now.Unix())
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	if err := s.deliver(ctx, phone, code); err != nil {
		s.redis.Del(ctx, key)
		metrics.OTPEvents.WithLabelValues("send_failed").Inc()
		s.logger.Error("otp delivery failed", map[string]interface{}{
			"phone": maskPhone(phone),
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	metrics.OTPEvents.WithLabelValues("sent").Inc()
	s.logger.Info("otp sent", map[string]interface{}{"phone": maskPhone(phone)})

	return &Challenge{
		Phone:       phone,
		ExpiresAt:   now.Add(ttl),
		ResendAfter: now.Add(config.GetSeconds(s.cfg.ResendAfter)),
	}, nil
}

// Verify checks code against the outstanding code for phone. A correct code
// is consumed. Each wrong code uses one attempt; the code is discarded once
// the attempts run out.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	if !validation.ValidatePhone(phone) {
		return ErrInvalidPhone
	}
	phone = validation.NormalizePhone(phone)
	key := s.key(phone)

	vals, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	stored, ok := vals["code"]
	if !ok {
		metrics.OTPEvents.WithLabelValues("expired").Inc()
		return ErrCodeExpired
	}

	attempts, _ := strconv.Atoi(vals["attempts"])
	if attempts >= s.cfg.MaxAttempts {
		s.redis.Del(ctx, key)
		metrics.OTPEvents.WithLabelValues("exceeded").Inc()
		return ErrAttemptsExceeded
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) == 1 {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreFailed, err)
		}
		metrics.OTPEvents.WithLabelValues("verified").Inc()
		return nil
	}

	used, err := s.recordAttempt(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if used < 0 {
		metrics.OTPEvents.WithLabelValues("expired").Inc()
		return ErrCodeExpired
	}
	if int(used) >= s.cfg.MaxAttempts {
		s.redis.Del(ctx, key)
		metrics.OTPEvents.WithLabelValues("exceeded").Inc()
		return ErrAttemptsExceeded
	}
	metrics.OTPEvents.WithLabelValues("invalid").Inc()
	return ErrCodeInvalid
}

// incrAttempts bumps the attempt counter only while the challenge exists, so
// a code consumed or expired meanwhile is not recreated without a TTL.
var incrAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

// recordAttempt returns the new attempt count, or -1 when the challenge is gone.
func (s *Service) recordAttempt(ctx context.Context, key string) (int64, error) {
	return incrAttempts.Run(ctx, s.redis, []string{key}).Int64()
}

func (s *Service) deliver(ctx context.Context, phone, code string) error {
	minutes := s.cfg.TTL / 60
	if minutes < 1 {
		minutes = 1
	}
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message: aws.String(fmt.Sprintf(
			"%s is your verification code for your medical certificate application. It expires in %d minutes.",
			code, minutes)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if s.cfg.SenderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.cfg.SenderID),
		}
	}
	_, err := s.sender.Publish(ctx, input)
	return err
}

func randomDigits(length int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
