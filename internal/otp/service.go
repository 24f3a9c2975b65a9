// Package otp implements the email one-time-passcode gate used before
// wallet creation.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")

	reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Mailer delivers the passcode. internal/otp provides an SMTP
// implementation; tests inject fakes.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type issued struct {
	code      string
	expiresAt time.Time
}

// Service issues 6-digit single-use codes keyed by email, each valid for
// one TTL window.
type Service struct {
	mu    sync.Mutex
	codes map[string]issued

	mailer Mailer
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(mailer Mailer, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		codes:  make(map[string]issued),
		mailer: mailer,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// Issue generates a code for email and mails it. A new Issue replaces any
// previous unexpired code for the same address.
func (s *Service) Issue(ctx context.Context, email string) error {
	if !reEmail.MatchString(email) {
		return ErrInvalidEmail
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	body := fmt.Sprintf("Your OTP for wallet creation is: %s", code)
	if err := s.mailer.Send(ctx, email, "Your Wallet Verification OTP", body); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}

	s.mu.Lock()
	s.codes[email] = issued{code: code, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	s.log.Info().Str("email", email).Msg("otp issued")
	return nil
}

// Verify consumes the code for email. True only for an exact, unexpired
// match; the code is deleted on success (single use).
func (s *Service) Verify(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	iss, ok := s.codes[email]
	if !ok {
		return false
	}
	if s.now().After(iss.expiresAt) {
		delete(s.codes, email)
		return false
	}
	if iss.code != code {
		return false
	}
	delete(s.codes, email)
	return true
}

// generateCode returns a uniform 6-digit decimal code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
