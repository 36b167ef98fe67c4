package money

import (
	"errors"
	"testing"
)

func TestDollars_DefaultsCurrency(t *testing.T) {
	m := Dollars(450, "")
	if m.Amount != 45000 || m.Currency != DefaultCurrency {
		t.Fatalf("unexpected value %+v", m)
	}
	if got := m.String(); got != "450.00 CAD" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := Must(100, "CAD").Add(Must(100, "usd"))
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	sum, err := Must(150, "CAD").Add(Must(50, "cad"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.Amount != 200 {
		t.Fatalf("expected 200, got %d", sum.Amount)
	}
}
