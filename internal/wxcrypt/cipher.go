package wxcrypt

import (
	"crypto/aes"
	"crypto/cipher"
)

// Cipher is AES-256-CBC with the provider's key and IV convention: the IV
// is the first 16 bytes of the key and is reused for every message. The
// provider mandates this, so it is reproduced as is.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher builds a Cipher from a 43-character encoded AES key.
func NewCipher(aesKey string) (*Cipher, error) {
	key, err := DecodeKey(aesKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	copy(iv, key[:aes.BlockSize])
	return &Cipher{block: block, iv: iv}, nil
}

// Encrypt pads plaintext, encrypts it and returns the base64 ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) string {
	buf := make([]byte, len(plaintext), len(plaintext)+PadBlockSize)
	copy(buf, plaintext)
	buf = pkcs7Pad(buf, PadBlockSize)
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(buf, buf)
	return encodeBase64(buf)
}

// Decrypt reverses Encrypt. Every failure is reported as ErrDecrypt.
func (c *Cipher) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := decodeBase64(ciphertext)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(raw, raw)
	plain, ok := pkcs7Unpad(raw, PadBlockSize)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}
