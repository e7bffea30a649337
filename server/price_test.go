package server

import "testing"

func TestParsePriceMatchesSpecExamples(t *testing.T) {
	cases := []struct {
		price    string
		decimals uint8
		want     string
	}{
		{"$0.001", 6, "1000"},
		{"$1", 6, "1000000"},
		{"$0.000001", 6, "1"},
		{"$2.5", 6, "2500000"},
	}
	for _, c := range cases {
		got, err := ParsePrice(c.price, c.decimals)
		if err != nil {
			t.Fatalf("ParsePrice(%q, %d): %v", c.price, c.decimals, err)
		}
		if got != c.want {
			t.Errorf("ParsePrice(%q, %d) = %s, want %s", c.price, c.decimals, got, c.want)
		}
	}
}

func TestParsePriceRoundsHalfToEven(t *testing.T) {
	cases := []struct {
		price    string
		decimals uint8
		want     string
	}{
		{"$0.0005", 3, "0"},    // tie, 0 is even, stays 0
		{"$0.0015", 3, "2"},    // tie, 2 is even, rounds up from 1
		{"$0.0025", 3, "2"},    // tie, 2 is even, stays 2
		{"$0.00151", 3, "2"},   // not a tie, rounds up
	}
	for _, c := range cases {
		got, err := ParsePrice(c.price, c.decimals)
		if err != nil {
			t.Fatalf("ParsePrice(%q, %d): %v", c.price, c.decimals, err)
		}
		if got != c.want {
			t.Errorf("ParsePrice(%q, %d) = %s, want %s", c.price, c.decimals, got, c.want)
		}
	}
}

func TestParsePriceRejectsMalformedInput(t *testing.T) {
	for _, price := range []string{"1.0", "$", "$-1", "", "$1.2.3", "$abc"} {
		if _, err := ParsePrice(price, 6); err == nil {
			t.Errorf("ParsePrice(%q) should have failed", price)
		}
	}
}
