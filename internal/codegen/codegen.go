// Package codegen produces tracking codes in the two accepted shapes: the
// grouped secure format XXX-XXXX-XXXX over an alphabet without visually
// ambiguous characters, and the flat 12-character alphanumeric format used by
// admin issuance.
package codegen

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Alphabet excludes 0, O, I and 1.
const secureChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const flatChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const flatLength = 12

// maxAttempts bounds collision retries. With a ~32^11 keyspace hitting it
// means the uniqueness check is broken, so it surfaces as an operator error.
const maxAttempts = 100

// ReservedDemoCode always resolves to a fixed fixture and must never be issued.
const ReservedDemoCode = "TEST-1234-5678"

var ErrExhaustedRetries = errors.New("unable to generate unique code after maximum attempts")

var (
	securePattern = regexp.MustCompile(`^[A-HJ-NP-Z0-9]{3}-[A-HJ-NP-Z0-9]{4}-[A-HJ-NP-Z0-9]{4}$`)
	flatPattern   = regexp.MustCompile(`^[A-Z0-9]{12}$`)
)

var secureGroups = []int{3, 4, 4}

// Generate returns a random secure-format code. Uniqueness is not checked here.
func Generate() string {
	groups := make([]string, 0, len(secureGroups))
	for _, n := range secureGroups {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(secureChars[rand.IntN(len(secureChars))])
		}
		groups = append(groups, b.String())
	}
	return strings.Join(groups, "-")
}

// GenerateFlat returns a random flat 12-character code. Callers are expected
// to verify uniqueness against the record store before persisting.
func GenerateFlat() string {
	var b strings.Builder
	for i := 0; i < flatLength; i++ {
		b.WriteByte(flatChars[rand.IntN(len(flatChars))])
	}
	return b.String()
}

func Validate(code string) bool {
	return securePattern.MatchString(code)
}

func ValidateFlat(code string) bool {
	return flatPattern.MatchString(code)
}

// IsUnique reports whether code is absent from existing.
func IsUnique(code string, existing []string) bool {
	for _, c := range existing {
		if c == code {
			return false
		}
	}
	return true
}

// GenerateUnique draws secure codes until one is absent from existing, failing
// with ErrExhaustedRetries once the attempt budget is spent.
func GenerateUnique(existing []string) (string, error) {
	used := toSet(existing)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := Generate()
		if code == ReservedDemoCode {
			continue
		}
		if _, ok := used[code]; !ok {
			return code, nil
		}
	}
	return "", ErrExhaustedRetries
}

// GenerateBatch returns n codes, pairwise distinct and absent from existing.
// Each draw treats the codes generated earlier in the batch as taken.
func GenerateBatch(n int, existing []string) ([]string, error) {
	used := toSet(existing)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		code, err := generateAgainst(used)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
		used[code] = struct{}{}
	}
	return out, nil
}

func generateAgainst(used map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := Generate()
		if code == ReservedDemoCode {
			continue
		}
		if _, ok := used[code]; !ok {
			return code, nil
		}
	}
	return "", ErrExhaustedRetries
}

func toSet(codes []string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}
