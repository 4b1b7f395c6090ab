package payment

import (
	"context"
	"testing"
	"time"

	"github.com/safar/go-sql-shop/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRoll(v float64) Option {
	return WithRoll(func() float64 { return v })
}

func TestChargeApproves(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(config.PaymentConfig{SuccessRate: 0.95}, fixedRoll(0.5))
	ref, err := sim.Charge(context.Background(), decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}

func TestChargeDeclines(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(config.PaymentConfig{SuccessRate: 0.95}, fixedRoll(0.95))
	_, err := sim.Charge(context.Background(), decimal.NewFromInt(25))
	require.ErrorIs(t, err, ErrDeclined)
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(config.PaymentConfig{SuccessRate: 1})
	_, err := sim.Charge(context.Background(), decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestChargeWaitsForDelay(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(config.PaymentConfig{SuccessRate: 1, Delay: 30 * time.Millisecond})
	start := time.Now()
	_, err := sim.Charge(context.Background(), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestChargeHonorsCancellation(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(config.PaymentConfig{SuccessRate: 1, Delay: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sim.Charge(ctx, decimal.NewFromInt(1))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSuccessRateIsRoughlyHonored(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(config.PaymentConfig{SuccessRate: 0.95})
	approved := 0
	const runs = 2000
	for i := 0; i < runs; i++ {
		if _, err := sim.Charge(context.Background(), decimal.NewFromInt(1)); err == nil {
			approved++
		}
	}
	rate := float64(approved) / runs
	assert.InDelta(t, 0.95, rate, 0.03)
}
