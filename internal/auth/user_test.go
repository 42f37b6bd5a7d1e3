package auth

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery", 4) // low cost for speed
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct-horse-battery") {
		t.Error("CheckPassword should return true for correct secret")
	}
	if CheckPassword(hash, "wrong-secret") {
		t.Error("CheckPassword should return false for incorrect secret")
	}
}

var accessKeyPattern = regexp.MustCompile(`^CGPT-[0-9A-Z]{4}-[0-9A-Z]{4}$`)

func TestGenerateAccessKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key, err := GenerateAccessKey()
		if err != nil {
			t.Fatalf("GenerateAccessKey: %v", err)
		}
		if !accessKeyPattern.MatchString(key) {
			t.Fatalf("key %q does not match CGPT-XXXX-XXXX", key)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestHashAccessKey_TrimsWhitespace(t *testing.T) {
	if HashAccessKey(" CGPT-AAAA-BBBB\n") != HashAccessKey("CGPT-AAAA-BBBB") {
		t.Error("surrounding whitespace should not change the hash")
	}
	if HashAccessKey("CGPT-AAAA-BBBB") == "CGPT-AAAA-BBBB" {
		t.Error("hash should not equal the key")
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "neo", false},
		{"spaces allowed", "Agent Smith", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length", strings.Repeat("a", 64), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsername(tc.input)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateUsername(%q) err = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
		})
	}
}

func TestUserJSONOmitsKeyHash(t *testing.T) {
	u := &User{ID: "1", Username: "neo", KeyHash: "secret"}
	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(b), "secret") {
		t.Errorf("key hash leaked: %s", b)
	}
}

func TestPrincipalRoles(t *testing.T) {
	p := (&User{ID: "1", Username: "neo"}).principal()
	if p.Role != RoleUser {
		t.Errorf("role = %q, want user", p.Role)
	}
	if adminPrincipal().Role != RoleAdmin {
		t.Error("admin principal should carry admin role")
	}
}
