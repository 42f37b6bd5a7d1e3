package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role represents a principal's authorization level.
type Role string

const (
	// RoleAdmin is the operator console. It is never stored as a user row;
	// it is granted by presenting the configured admin key.
	RoleAdmin Role = "admin"
	// RoleUser is a chat agent created by the admin.
	RoleUser Role = "user"
)

// Persona defaults for new users.
const (
	DefaultAIName  = "CentralGPT"
	DefaultDevName = "XdpzQ"
)

// AccessKeyPrefix starts every generated user access key.
const AccessKeyPrefix = "CGPT-"

// adminSubject is the token subject used for the admin principal.
const adminSubject = "admin"

// User is a chat agent account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	KeyHash   string    `json:"-"` // Never serialized
	AIName    string    `json:"ai_name"`
	DevName   string    `json:"dev_name"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login,omitempty"`
	Disabled  bool      `json:"disabled"`
}

// Principal describes whoever holds a session.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	AIName   string `json:"ai_name"`
	DevName  string `json:"dev_name"`
}

func (u *User) principal() Principal {
	return Principal{
		ID:       u.ID,
		Username: u.Username,
		Role:     RoleUser,
		AIName:   u.AIName,
		DevName:  u.DevName,
	}
}

func adminPrincipal() Principal {
	return Principal{
		ID:       adminSubject,
		Username: adminSubject,
		Role:     RoleAdmin,
		AIName:   DefaultAIName,
		DevName:  DefaultDevName,
	}
}

const keyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateAccessKey returns a fresh key of the form CGPT-XXXX-XXXX drawn
// from uppercase base36.
func GenerateAccessKey() (string, error) {
	var sb strings.Builder
	sb.WriteString(AccessKeyPrefix)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := 0; i < 8; i++ {
		if i == 4 {
			sb.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate access key: %w", err)
		}
		sb.WriteByte(keyAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// HashAccessKey returns the stored form of a user access key.
func HashAccessKey(key string) string {
	return HashToken(strings.TrimSpace(key))
}

// HashPassword creates a bcrypt hash of a secret such as the admin key.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a secret against a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateUsername checks the agent name entered in the admin console.
func ValidateUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("username is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("username must be at most 64 characters")
	}
	return nil
}
