// Package vault encrypts secrets at rest (the Gemini credential pool) with
// AES-256-GCM under a key derived from an operator passphrase.
package vault

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/xdpzq/centralgpt/internal/store"
	"go.uber.org/zap"
)

// sealedPrefix marks a value produced by Seal.
const sealedPrefix = "v1:"

var (
	// ErrWrongPassphrase is returned when the passphrase does not match the
	// one the vault was initialized with.
	ErrWrongPassphrase = errors.New("wrong vault passphrase")
	// ErrPassphraseRequired is returned when a sealed value is opened by a
	// pass-through keyring.
	ErrPassphraseRequired = errors.New("value is sealed; vault.passphrase is required")
)

// Keyring seals and opens string secrets.
type Keyring interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
	// Encrypting reports whether Seal produces ciphertext.
	Encrypting() bool
}

// IsSealed reports whether value was produced by an encrypting Keyring.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// New returns a Keyring for passphrase. The salt and verification blob are
// created on first use and persisted in s; later starts verify the
// passphrase against them. An empty passphrase yields a pass-through keyring.
func New(ctx context.Context, s *store.Store, passphrase string, logger *zap.Logger) (Keyring, error) {
	if passphrase == "" {
		logger.Warn("vault.passphrase is not set; secrets are stored in plain text")
		return plainKeyring{}, nil
	}

	if err := s.Migrate(ctx, "vault", migrations); err != nil {
		return nil, fmt.Errorf("vault migrations: %w", err)
	}

	var salt, blob []byte
	err := s.DB().QueryRowContext(ctx,
		`SELECT salt, verification_blob FROM vault_master WHERE id = 1`,
	).Scan(&salt, &blob)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		salt, err = GenerateSalt()
		if err != nil {
			return nil, err
		}
		key := DeriveKey(passphrase, salt)
		blob, err = newVerificationBlob(key)
		if err != nil {
			zeroBytes(key)
			return nil, err
		}
		if _, err := s.DB().ExecContext(ctx,
			`INSERT INTO vault_master (id, salt, verification_blob) VALUES (1, ?, ?)`,
			salt, blob,
		); err != nil {
			zeroBytes(key)
			return nil, fmt.Errorf("persist vault master: %w", err)
		}
		logger.Info("vault initialized")
		return &aesKeyring{key: key}, nil

	case err != nil:
		return nil, fmt.Errorf("load vault master: %w", err)
	}

	key := DeriveKey(passphrase, salt)
	if !verifyKey(key, blob) {
		zeroBytes(key)
		return nil, ErrWrongPassphrase
	}
	logger.Debug("vault unsealed")
	return &aesKeyring{key: key}, nil
}

// aesKeyring holds the derived key in memory. The key is never mutated
// after construction, so it is safe for concurrent use.
type aesKeyring struct {
	key []byte
}

func (k *aesKeyring) Seal(plaintext string) (string, error) {
	ct, err := encrypt(k.key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts a sealed value. Values without the sealed prefix were
// written by a pass-through keyring and are returned unchanged.
func (k *aesKeyring) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	plain, err := decrypt(k.key, data)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (k *aesKeyring) Encrypting() bool { return true }

// plainKeyring stores values unchanged.
type plainKeyring struct{}

func (plainKeyring) Seal(plaintext string) (string, error) { return plaintext, nil }

func (plainKeyring) Open(value string) (string, error) {
	if IsSealed(value) {
		return "", ErrPassphraseRequired
	}
	return value, nil
}

func (plainKeyring) Encrypting() bool { return false }

var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create vault_master table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE vault_master (
					id                INTEGER PRIMARY KEY CHECK (id = 1),
					salt              BLOB NOT NULL,
					verification_blob BLOB NOT NULL,
					created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}
