package ifgram

import (
	"errors"
	"testing"
)

// TestNormalizeDate_EightDigit tests that 8-digit dates pass through.
func TestNormalizeDate_EightDigit(t *testing.T) {
	d, err := NormalizeDate("20080520")
	if err != nil {
		t.Fatalf("NormalizeDate failed: %v", err)
	}
	if d != "20080520" {
		t.Errorf("got %q, want 20080520", d)
	}
}

// TestNormalizeDate_SixDigitCenturyRule tests the legacy century rule:
// a leading '9' expands to 19xx, everything else to 20xx.
func TestNormalizeDate_SixDigitCenturyRule(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"900102", "19900102"},
		{"991231", "19991231"},
		{"080520", "20080520"},
		{"100101", "20100101"},
		{"000229", "20000229"}, // 2000 was a leap year
	}
	for _, tt := range tests {
		got, err := NormalizeDate(tt.in)
		if err != nil {
			t.Errorf("NormalizeDate(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestNormalizeDate_RoundTrip tests that re-normalizing the 6-digit form
// of an expanded date is stable.
func TestNormalizeDate_RoundTrip(t *testing.T) {
	for _, in := range []string{"900102", "080520", "991231", "120229"} {
		d, err := NormalizeDate(in)
		if err != nil {
			t.Fatalf("NormalizeDate(%q) failed: %v", in, err)
		}
		again, err := NormalizeDate(d.YYMMDD())
		if err != nil {
			t.Fatalf("NormalizeDate(%q) failed: %v", d.YYMMDD(), err)
		}
		if again != d {
			t.Errorf("round trip of %q: got %q, want %q", in, again, d)
		}
	}
}

// TestNormalizeDate_Invalid tests rejection of malformed input.
func TestNormalizeDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2008", "2008052", "200805200", "20081340", "20080532", "20O80520", "abc520"} {
		if _, err := NormalizeDate(in); err == nil {
			t.Errorf("NormalizeDate(%q) should have failed", in)
		} else if !errors.Is(err, ErrFormat) {
			t.Errorf("NormalizeDate(%q) error = %v, want ErrFormat", in, err)
		}
	}
}

// TestNormalizeDates_FirstBadEntryAborts tests list conversion.
func TestNormalizeDates_FirstBadEntryAborts(t *testing.T) {
	got, err := NormalizeDates([]string{"080520", "20090101"})
	if err != nil {
		t.Fatalf("NormalizeDates failed: %v", err)
	}
	if len(got) != 2 || got[0] != "20080520" || got[1] != "20090101" {
		t.Errorf("unexpected result: %v", got)
	}

	if _, err := NormalizeDates([]string{"20080520", "bogus"}); err == nil {
		t.Error("expected error for malformed entry")
	}
}

// TestDate_Time tests UTC midnight conversion.
func TestDate_Time(t *testing.T) {
	d := Date("20080520")
	tm := d.Time()
	if tm.Year() != 2008 || tm.Month() != 5 || tm.Day() != 20 {
		t.Errorf("Time() = %v, want 2008-05-20", tm)
	}
	if tm.Hour() != 0 || tm.Location().String() != "UTC" {
		t.Errorf("Time() should be midnight UTC, got %v", tm)
	}
}

// TestDate_Before tests calendar ordering across centuries.
func TestDate_Before(t *testing.T) {
	if !Date("19991231").Before(Date("20000101")) {
		t.Error("19991231 should be before 20000101")
	}
	if Date("20080520").Before(Date("20080520")) {
		t.Error("a date is not before itself")
	}
}
