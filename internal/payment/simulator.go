// Package payment simulates an external payment processor. It never moves
// money and never touches application state.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/config"
	"github.com/shopspring/decimal"
)

var (
	ErrDeclined      = errors.New("payment declined")
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

type Simulator struct {
	successRate float64
	delay       time.Duration
	roll        func() float64
}

type Option func(*Simulator)

// WithRoll replaces the random source. roll must return values in [0, 1);
// a charge succeeds when roll() < success rate.
func WithRoll(roll func() float64) Option {
	return func(s *Simulator) {
		s.roll = roll
	}
}

func NewSimulator(cfg config.PaymentConfig, opts ...Option) *Simulator {
	s := &Simulator{
		successRate: cfg.SuccessRate,
		delay:       cfg.Delay,
		roll:        rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge waits for the configured delay and then approves or declines the
// amount. It returns a transaction reference on approval, ErrDeclined on
// decline, and ctx.Err() if ctx ends first.
func (s *Simulator) Charge(ctx context.Context, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.roll() >= s.successRate {
		return "", ErrDeclined
	}

	return uuid.NewString(), nil
}
