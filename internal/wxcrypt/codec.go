package wxcrypt

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// PadBlockSize is the PKCS#7 block size used by the provider. It is twice
// the AES block size, so padding values run from 1 to 32.
const PadBlockSize = 32

// KeyLength is the length of an encoded AES key (base64 without the
// trailing '=').
const KeyLength = 43

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// DecodeKey decodes a 43-character AES key into its 32 raw bytes.
func DecodeKey(aesKey string) ([]byte, error) {
	if len(aesKey) != KeyLength {
		return nil, fmt.Errorf("aes key must be %d characters, got %d", KeyLength, len(aesKey))
	}
	key, err := decodeBase64(aesKey + "=")
	if err != nil {
		return nil, fmt.Errorf("decoding aes key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("aes key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// pkcs7Pad appends 1..blockSize bytes, each holding the pad length. A
// payload that is already block aligned gets a full block of padding.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// pkcs7Unpad strips padding added by pkcs7Pad. It reports false when the
// pad value is outside 1..blockSize or the trailing bytes disagree.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n < 1 || n > blockSize || n > len(data) {
		return nil, false
	}
	var bad byte
	for _, b := range data[len(data)-n:] {
		bad |= b ^ byte(n)
	}
	if bad != 0 {
		return nil, false
	}
	return data[:len(data)-n], true
}
