package product

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Signature scopes one batch job: its checkpoint log, cached item list, run
// lock, and staging sub-root. Year and Month are zero when absent; Month is
// only meaningful when Year is set.
type Signature struct {
	Product string
	Year    int
	Month   int
}

// Validate reports whether the signature fields are coherent.
func (s Signature) Validate() error {
	if strings.TrimSpace(s.Product) == "" {
		return errors.New("signature: product is required")
	}
	if strings.ContainsAny(s.Product, `/\`) {
		return fmt.Errorf("signature: product %q must not contain path separators", s.Product)
	}
	if s.Year < 0 || s.Year > 9999 {
		return fmt.Errorf("signature: year %d out of range", s.Year)
	}
	if s.Month != 0 {
		if s.Year == 0 {
			return errors.New("signature: month requires year")
		}
		if s.Month < 1 || s.Month > 12 {
			return fmt.Errorf("signature: month %d out of range", s.Month)
		}
	}
	return nil
}

// Key renders the signature as product[_year[_month]].
func (s Signature) Key() string {
	key := s.Product
	if s.Year != 0 {
		key += "_" + strconv.Itoa(s.Year)
		if s.Month != 0 {
			key += "_" + strconv.Itoa(s.Month)
		}
	}
	return key
}

func (s Signature) String() string { return s.Key() }

// Window returns the half-open UTC time range covered by the signature. ok is
// false when the signature has no year and therefore spans all time.
func (s Signature) Window() (from, to time.Time, ok bool) {
	if s.Year == 0 {
		return time.Time{}, time.Time{}, false
	}
	if s.Month == 0 {
		from = time.Date(s.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), true
	}
	from = time.Date(s.Year, time.Month(s.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), true
}

// MatchesFile applies the year/month filter to a source file path using the
// timestamp embedded in its name: the second-to-last underscore-separated
// token of the base name without extension (…_<x>_<y>_<stamp>_<version>.nc).
// Stamps shorter than six digits carry only a year, so the month filter is
// not applied to them.
func (s Signature) MatchesFile(path string) bool {
	if s.Year == 0 {
		return true
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return false
	}
	return s.matchesStamp(parts[len(parts)-2])
}

// FileTime parses the timestamp embedded in a source file name (see
// MatchesFile). Stamps may carry only a year, a year and month, a date, or a
// full date and time; the remaining fields default to their minimum.
func FileTime(path string) (time.Time, bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	stamp := parts[len(parts)-2]
	if len(stamp) < 4 || !allDigits(stamp) {
		return time.Time{}, false
	}
	field := func(from, to, def int) int {
		if len(stamp) < to {
			return def
		}
		v, _ := strconv.Atoi(stamp[from:to])
		return v
	}
	year := field(0, 4, 0)
	month := field(4, 6, 1)
	day := field(6, 8, 1)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, field(8, 10, 0), field(10, 12, 0), field(12, 14, 0), 0, time.UTC), true
}

func (s Signature) matchesStamp(stamp string) bool {
	if len(stamp) < 4 {
		return false
	}
	year, err := strconv.Atoi(stamp[:4])
	if err != nil || year != s.Year {
		return false
	}
	if s.Month == 0 || len(stamp) < 6 {
		return true
	}
	month, err := strconv.Atoi(stamp[4:6])
	return err == nil && month == s.Month
}

// ParseKey reverses Key. Trailing numeric tokens are read as year and month
// only when they form a valid signature.
func ParseKey(key string) (Signature, error) {
	key = strings.TrimSpace(key)
	parts := strings.Split(key, "_")
	numeric := func(s string, max int) bool { return s != "" && len(s) <= max && allDigits(s) }
	sig := Signature{Product: key}
	switch n := len(parts); {
	case n >= 3 && len(parts[n-2]) == 4 && numeric(parts[n-2], 4) && numeric(parts[n-1], 2):
		year, _ := strconv.Atoi(parts[n-2])
		month, _ := strconv.Atoi(parts[n-1])
		sig = Signature{Product: strings.Join(parts[:n-2], "_"), Year: year, Month: month}
	case n >= 2 && len(parts[n-1]) == 4 && numeric(parts[n-1], 4):
		year, _ := strconv.Atoi(parts[n-1])
		sig = Signature{Product: strings.Join(parts[:n-1], "_"), Year: year}
	}
	if err := sig.Validate(); err != nil {
		return Signature{}, fmt.Errorf("parse signature key %q: %w", key, err)
	}
	return sig, nil
}
