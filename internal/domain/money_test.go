package domain

import (
	"testing"
	"time"
)

func TestTotalAmountLocal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name             string
		amountLocal      float64
		amountForeign    float64
		exchangeRate     float64
		paymentInForeign bool
		want             float64
	}{
		{"local only", 100, 0, 0, false, 100},
		{"foreign converted", 100, 10, 20, true, 300},
		{"foreign ignored when flag unset", 100, 10, 20, false, 100},
		{"zero foreign amount adds nothing", 100, 0, 20, true, 100},
		{"zero rate adds nothing", 100, 10, 0, true, 100},
		{"all zero", 0, 0, 0, false, 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := TotalAmountLocal(tc.amountLocal, tc.amountForeign, tc.exchangeRate, tc.paymentInForeign)
			if got != tc.want {
				t.Errorf("TotalAmountLocal(%v, %v, %v, %v) = %v, want %v",
					tc.amountLocal, tc.amountForeign, tc.exchangeRate, tc.paymentInForeign, got, tc.want)
			}
		})
	}
}

func TestTrip_TotalAmountLocal(t *testing.T) {
	t.Parallel()

	trip := &Trip{
		AmountLocal:      100,
		AmountForeign:    10,
		ExchangeRate:     20,
		PaymentInForeign: true,
	}
	if got := trip.TotalAmountLocal(); got != 300 {
		t.Errorf("expected 300, got %v", got)
	}
}

func TestTrip_Duration(t *testing.T) {
	t.Parallel()

	now := time.Now()

	trip := &Trip{StartedAt: now.Add(-90 * time.Minute), EndedAt: now}
	if got := trip.Duration(); got != 1.5 {
		t.Errorf("expected 1.5h, got %v", got)
	}

	open := &Trip{StartedAt: now}
	if got := open.Duration(); got != 0 {
		t.Errorf("open trip has no duration, got %v", got)
	}
}

func TestPauseDuration(t *testing.T) {
	t.Parallel()

	now := time.Now()
	pauses := []*Pause{
		{StartedAt: now.Add(-3 * time.Hour), EndedAt: now.Add(-2 * time.Hour)},
		{StartedAt: now.Add(-30 * time.Minute), IsActive: true},
	}

	// The open pause is measured against now.
	if got := PauseDuration(pauses, now); got != 1.5 {
		t.Errorf("expected 1.5h paused, got %v", got)
	}

	if p := CurrentPause(pauses); p != pauses[1] {
		t.Errorf("expected the open pause, got %+v", p)
	}
}

func TestCreditWarning(t *testing.T) {
	t.Parallel()

	cases := []struct {
		balance float64
		want    string
	}{
		{-1, "no credits available"},
		{0, "no credits available"},
		{3, "low credits"},
		{5, "low credits"},
		{6, "credits available"},
	}

	for _, tc := range cases {
		if got := CreditWarning(tc.balance); got != tc.want {
			t.Errorf("CreditWarning(%v) = %q, want %q", tc.balance, got, tc.want)
		}
	}
}
