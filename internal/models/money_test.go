package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"50", 5000},
		{"50.1", 5010},
		{"50.10", 5010},
		{"0.01", 1},
		{"0", 0},
		{"-3.25", -325},
		{"1234567.89", 123456789},
	}

	for _, tc := range tests {
		got, err := ParseMoney(tc.in)
		if err != nil {
			t.Errorf("ParseMoney(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMoney(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestParseMoney_Rejects(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"abc", ErrInvalidMoney},
		{"", ErrInvalidMoney},
		{"1.001", ErrMoneyPrecision},
		{"99999999999999999999", ErrMoneyRange},
	}

	for _, tc := range tests {
		_, err := ParseMoney(tc.in)
		if !errors.Is(err, tc.want) {
			t.Errorf("ParseMoney(%q): expected %v, got %v", tc.in, tc.want, err)
		}
	}
}

func TestMoney_String(t *testing.T) {
	if s := Money(5000).String(); s != "50.00" {
		t.Errorf("Expected 50.00, got %s", s)
	}
	if s := Money(7).String(); s != "0.07" {
		t.Errorf("Expected 0.07, got %s", s)
	}
	if s := Money(-125).String(); s != "-1.25" {
		t.Errorf("Expected -1.25, got %s", s)
	}
}

func TestMoney_RepeatedCyclesDoNotDrift(t *testing.T) {
	var balance Money
	step := MustParseMoney("0.10")
	for i := 0; i < 1000; i++ {
		balance, _ = balance.Add(step)
	}
	for i := 0; i < 1000; i++ {
		balance, _ = balance.Sub(step)
	}
	if balance != 0 {
		t.Errorf("Expected zero balance after symmetric cycles, got %s", balance)
	}
}

func TestMoney_AddOverflow(t *testing.T) {
	if _, ok := Money(math.MaxInt64).Add(1); ok {
		t.Error("Expected overflow to be reported")
	}
	if _, ok := Money(math.MinInt64).Sub(1); ok {
		t.Error("Expected underflow to be reported")
	}
	if v, ok := Money(10).Sub(3); !ok || v != 7 {
		t.Errorf("Expected 7, got %d (ok=%v)", v, ok)
	}
}

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: 5000})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":"50.00"}` {
		t.Errorf("Expected quoted decimal, got %s", b)
	}

	var in struct {
		Amount Money `json:"amount"`
	}
	for _, raw := range []string{`{"amount":"50.00"}`, `{"amount":50}`, `{"amount":50.0}`} {
		in.Amount = 0
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			t.Errorf("unmarshal %s: %v", raw, err)
			continue
		}
		if in.Amount != 5000 {
			t.Errorf("unmarshal %s: expected 5000, got %d", raw, in.Amount)
		}
	}

	if err := json.Unmarshal([]byte(`{"amount":"10.005"}`), &in); !errors.Is(err, ErrMoneyPrecision) {
		t.Errorf("Expected precision error, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"amount":true}`), &in); err == nil {
		t.Error("Expected error for non-numeric amount")
	}
}
