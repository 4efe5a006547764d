package geoid

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"tract", "1400000US17031010100", "17031010100", nil},
		{"padded", "  1400000US17031990000 ", "17031990000", nil},
		{"county", "0500000US17031", "", ErrNotTract},
		{"nation", "0100000US", "", ErrNotTract},
		{"header echo", "Geography", "", ErrNotTract},
		{"short", "1400000US1703101", "", ErrMalformed},
		{"letters", "1400000US17031A10100", "", ErrMalformed},
		{"long", "1400000US170310101000", "", ErrMalformed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Normalize(c.in)
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Fatalf("Normalize(%q) err = %v, want %v", c.in, err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q): %v", c.in, err)
			}
			if got != c.want {
				t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestNormalizeOutputIsElevenDigits(t *testing.T) {
	for _, tract := range []string{"010100", "990000", "842300", "000001"} {
		id, err := Normalize(TractPrefix + "17031" + tract)
		if err != nil {
			t.Fatalf("normalize %s: %v", tract, err)
		}
		if len(id) != Length || !Valid(id) {
			t.Fatalf("identifier %q is not %d digits", id, Length)
		}
	}
}

func TestPredicates(t *testing.T) {
	if !IsTract("1400000US17031010100") || IsTract("0500000US17031") {
		t.Fatal("IsTract misclassified")
	}
	if !IsMetadata("Geography") || !IsMetadata("0100000US") || IsMetadata("1400000US17031010100") {
		t.Fatal("IsMetadata misclassified")
	}
	if County("17031010100") != "17031" {
		t.Fatalf("County = %q", County("17031010100"))
	}
}
