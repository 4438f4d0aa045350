package otpcode

import (
	"strconv"
	"testing"
)

func TestCryptoGeneratorGenerate(t *testing.T) {
	// Arrange
	gen := NewCryptoGenerator()

	seen := make(map[string]struct{})

	for range 500 {
		// Act
		code, err := gen.Generate()

		// Assert
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(code) != Digits {
			t.Fatalf("expected %d digits, got %q", Digits, code)
		}

		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code is not numeric: %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code out of range: %d", n)
		}

		seen[code] = struct{}{}
	}

	if len(seen) < 2 {
		t.Fatalf("expected varying codes, got %d distinct values", len(seen))
	}
}
