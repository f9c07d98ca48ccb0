package chain

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// EncryptedKeyPrefix marks a custodial key stored as an AES-256-GCM hex blob.
const EncryptedKeyPrefix = "enc:"

// Decrypter opens encrypted key material. ports.EncryptionService satisfies it.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// LoadPrivateKey parses the custodial signing key. Accepted forms are a
// base58 string, a JSON-style byte array ("[12,34,...]"), or either of those
// encrypted and prefixed with "enc:". dec may be nil when no encrypted form
// is expected.
func LoadPrivateKey(raw string, dec Decrypter) (solana.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("custodial key is empty")
	}

	if strings.HasPrefix(raw, EncryptedKeyPrefix) {
		if dec == nil {
			return nil, errors.New("custodial key is encrypted but no decryption key is configured")
		}
		plain, err := dec.Decrypt(strings.TrimPrefix(raw, EncryptedKeyPrefix))
		if err != nil {
			return nil, fmt.Errorf("decrypting custodial key: %w", err)
		}
		raw = strings.TrimSpace(plain)
		if strings.HasPrefix(raw, EncryptedKeyPrefix) {
			return nil, errors.New("custodial key is double encrypted")
		}
	}

	var key solana.PrivateKey
	if strings.HasPrefix(raw, "[") || strings.Contains(raw, ",") {
		b, err := parseByteArray(raw)
		if err != nil {
			return nil, err
		}
		key = solana.PrivateKey(b)
	} else {
		k, err := solana.PrivateKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding base58 custodial key: %w", err)
		}
		key = k
	}

	if err := validateKeypair(key); err != nil {
		return nil, err
	}
	return key, nil
}

func parseByteArray(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	parts := strings.Split(raw, ",")
	out := make([]byte, 0, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("custodial key byte %d: %w", i, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// validateKeypair checks that the 64-byte secret is seed||pubkey for a real
// ed25519 keypair.
func validateKeypair(key solana.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return fmt.Errorf("custodial key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived, key) {
		return errors.New("custodial key public half does not match its seed")
	}
	return nil
}
