package security

import "testing"

func TestGenerateSecureTokenLengthAndUniqueness(t *testing.T) {
	first, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	second, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	if first == "" || second == "" {
		t.Fatal("GenerateSecureToken returned empty token")
	}
	if first == second {
		t.Fatal("GenerateSecureToken returned identical tokens")
	}
}

func TestGenerateSecureTokenRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	a := HashToken("reset-token")
	b := HashToken("reset-token")
	if a != b {
		t.Fatal("HashToken should be deterministic")
	}
	if a == HashToken("other-token") {
		t.Fatal("HashToken collision for distinct inputs")
	}
	if !TokensEqual(a, b) {
		t.Fatal("TokensEqual returned false for equal hashes")
	}
	if TokensEqual(a, HashToken("other-token")) {
		t.Fatal("TokensEqual returned true for distinct hashes")
	}
}
