// Package otp issues and verifies one-time numeric codes.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/metrics"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

const CodeLength = 6

// ErrInvalidOrExpired covers wrong, expired and already used codes alike.
var ErrInvalidOrExpired = apperr.NewValidation("Invalid or expired code")

// Identifier namespaces sharing the one otps table.
// Phone codes are scoped to the restaurant that sent them.
func PhoneKey(tenantID, phone string) string {
	return "phone:" + tenantID + ":" + strings.TrimSpace(phone)
}
func VerifyKey(email string) string { return "verify:" + strings.ToLower(strings.TrimSpace(email)) }
func ResetKey(email string) string  { return "reset:" + strings.ToLower(strings.TrimSpace(email)) }

// Throttle counts issues per identifier inside a rolling window.
type Throttle interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Service struct {
	DB       *store.DB
	Throttle Throttle
	Max      int
	Window   time.Duration
	Logger   *logger.Logger
	Clock    utils.Clock
}

func NewService(db *store.DB, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// WithThrottle limits issuance to max codes per identifier per window.
func (s *Service) WithThrottle(t Throttle, max int, window time.Duration) *Service {
	s.Throttle = t
	s.Max = max
	s.Window = window
	return s
}

// Issue stores a fresh code. Earlier codes for the identifier stay valid.
func (s *Service) Issue(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
	if identifier == "" {
		return "", apperr.NewValidation("Identifier is required")
	}

	if s.Throttle != nil && s.Max > 0 {
		n, err := s.Throttle.Hit(ctx, "otp:"+identifier, s.Window)
		if err != nil {
			s.Logger.Warn("OTP", fmt.Sprintf("throttle unavailable for %s: %v", identifier, err))
		} else if n > int64(s.Max) {
			s.Logger.LogSecurity("OTP_THROTTLED", identifier)
			return "", apperr.New(apperr.RateLimited, "Too many codes requested, try again later")
		}
	}

	code, err := utils.RandomDigits(CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	now := s.Clock.Now().UTC()
	row := &models.OTP{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Code:       code,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	if err := s.DB.InsertOTP(ctx, row); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	ns := identifier
	if i := strings.IndexByte(identifier, ':'); i > 0 {
		ns = identifier[:i]
	}
	metrics.OTPIssued.WithLabelValues(ns).Inc()
	s.Logger.Info("OTP", fmt.Sprintf("Issued code for %s (ttl %s)", identifier, ttl))
	return code, nil
}

// Verify consumes the newest matching code. Concurrent verifies of the same
// code succeed at most once.
func (s *Service) Verify(ctx context.Context, identifier, code string) error {
	if identifier == "" || code == "" {
		return ErrInvalidOrExpired
	}

	row, err := s.DB.FindValidOTP(ctx, identifier, code, s.Clock.Now().UTC())
	if err != nil {
		if store.IsNotFound(err) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("lookup otp: %w", err)
	}

	if err := s.DB.MarkOTPVerified(ctx, row.ID); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

// Using returns a copy bound to db, so codes can be issued inside a caller's
// transaction.
func (s *Service) Using(db *store.DB) *Service {
	c := *s
	c.DB = db
	return &c
}
