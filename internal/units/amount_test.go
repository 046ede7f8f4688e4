package units

import (
	"math/big"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	got, err := ParseDecimal("1.25", 6)
	if err != nil {
		t.Fatalf("ParseDecimal failed: %v", err)
	}
	if got.String() != "1250000" {
		t.Fatalf("unexpected base units: %s", got)
	}
	zero, err := ParseDecimal("0.000", 6)
	if err != nil || zero.Sign() != 0 {
		t.Fatalf("expected zero, got %v err=%v", zero, err)
	}
}

func TestParseDecimalValidation(t *testing.T) {
	if _, err := ParseDecimal("1.1234567", 6); err == nil {
		t.Fatal("expected precision error")
	}
	if _, err := ParseDecimal("-1", 18); err == nil {
		t.Fatal("expected negative amount rejection")
	}
	if _, err := ParseDecimal("1e18", 18); err == nil {
		t.Fatal("expected scientific notation rejection")
	}
}

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		in       *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(0), 6, "0"},
		{big.NewInt(1250000), 6, "1.25"},
		{big.NewInt(1), 18, "0.000000000000000001"},
		{Ether("2"), 18, "2"},
		{nil, 18, "0"},
	}
	for _, tc := range cases {
		if got := FormatUnits(tc.in, tc.decimals); got != tc.want {
			t.Fatalf("FormatUnits(%v, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestFormatEtherRoundTrip(t *testing.T) {
	wei := Ether("0.000123")
	if FormatEther(wei) != "0.000123" {
		t.Fatalf("unexpected format: %s", FormatEther(wei))
	}
}
