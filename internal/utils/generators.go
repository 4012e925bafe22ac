package utils

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"
)

// RandomDigits returns n uniformly random decimal digits.
func RandomDigits(n int) (string, error) {
	max := big.NewInt(int64(math.Pow10(n)))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}

// FormatSequence renders PREFIX-YYYYMMDD-NNNN.
func FormatSequence(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), n)
}

// DayKey is the YYYYMMDD bucket used by the daily sequences.
func DayKey(t time.Time) string {
	return t.Format("20060102")
}

// RoundMoney rounds to two decimals.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
