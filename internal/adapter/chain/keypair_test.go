package chain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDecrypter struct {
	plain string
	err   error
}

func (s stubDecrypter) Decrypt(string) (string, error) { return s.plain, s.err }

func byteArrayString(t *testing.T, key solana.PrivateKey) string {
	t.Helper()
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	out, err := json.Marshal(ints)
	require.NoError(t, err)
	return string(out)
}

func TestLoadPrivateKey_Formats(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	arr := byteArrayString(t, key)

	tests := []struct {
		name string
		raw  string
		dec  Decrypter
	}{
		{"base58", key.String(), nil},
		{"json array", arr, nil},
		{"bare comma list", arr[1 : len(arr)-1], nil},
		{"padded", "  " + key.String() + "\n", nil},
		{"encrypted base58", "enc:deadbeef", stubDecrypter{plain: key.String()}},
		{"encrypted array", "enc:deadbeef", stubDecrypter{plain: arr}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadPrivateKey(tt.raw, tt.dec)
			require.NoError(t, err)
			assert.Equal(t, key.PublicKey(), got.PublicKey())
		})
	}
}

func TestLoadPrivateKey_Rejects(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	tampered := make(solana.PrivateKey, len(key))
	copy(tampered, key)
	tampered[63] ^= 0xff

	tests := []struct {
		name string
		raw  string
		dec  Decrypter
	}{
		{"empty", "", nil},
		{"short array", "[1,2,3]", nil},
		{"byte overflow", "[256" + byteArrayString(t, key)[4:], nil},
		{"garbage base58", "0OIl", nil},
		{"mismatched halves", byteArrayString(t, tampered), nil},
		{"encrypted without key", "enc:abcd", nil},
		{"decrypt failure", "enc:abcd", stubDecrypter{err: errors.New("bad tag")}},
		{"double encrypted", "enc:abcd", stubDecrypter{plain: "enc:ffff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPrivateKey(tt.raw, tt.dec)
			assert.Error(t, err)
		})
	}
}
