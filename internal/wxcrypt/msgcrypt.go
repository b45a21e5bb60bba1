// Package wxcrypt implements the WeCom callback crypto: the sorted SHA-1
// signature, AES-256-CBC with the key-derived IV, the plaintext frame and
// the encrypted XML envelope.
package wxcrypt

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// Credentials identify one bot channel.
type Credentials struct {
	Token      string
	AESKey     string
	ReceiverID string
}

// Context holds the parts of a channel that are costly to build: the
// token and the keyed block cipher. It is immutable and safe to share.
type Context struct {
	token  string
	cipher *Cipher
}

// NewContext builds a Context for a token and encoded AES key.
func NewContext(token, aesKey string) (*Context, error) {
	c, err := NewCipher(aesKey)
	if err != nil {
		return nil, err
	}
	return &Context{token: token, cipher: c}, nil
}

// Sign signs payload with the context token.
func (c *Context) Sign(timestamp, nonce, payload string) string {
	return Sign(c.token, timestamp, nonce, payload)
}

// Bind returns a MsgCrypt that checks frames against receiverID.
func (c *Context) Bind(receiverID string) *MsgCrypt {
	return &MsgCrypt{ctx: c, receiverID: receiverID}
}

// MsgCrypt is a Context bound to one receiver id.
type MsgCrypt struct {
	ctx        *Context
	receiverID string
}

// VerifyURL answers the URL verification handshake: it checks the
// signature over echostr and returns the decrypted echo.
func (m *MsgCrypt) VerifyURL(signature, timestamp, nonce, echostr string) ([]byte, error) {
	if signature == "" || timestamp == "" || nonce == "" || echostr == "" {
		return nil, ErrMalformedInput
	}
	if !VerifySignature(signature, m.ctx.token, timestamp, nonce, echostr) {
		return nil, ErrSignatureMismatch
	}
	return m.open(echostr)
}

// DecryptMsg verifies and decrypts a callback body and returns the inner
// message XML.
func (m *MsgCrypt) DecryptMsg(signature, timestamp, nonce string, body []byte) ([]byte, error) {
	if signature == "" || timestamp == "" || nonce == "" {
		return nil, ErrMalformedInput
	}
	env, err := ParseEncryptedBody(body)
	if err != nil {
		return nil, err
	}
	if !VerifySignature(signature, m.ctx.token, timestamp, nonce, env.Encrypt) {
		return nil, ErrSignatureMismatch
	}
	return m.open(env.Encrypt)
}

// Seal frames and encrypts msg, returning the base64 ciphertext.
func (m *MsgCrypt) Seal(msg []byte) (string, error) {
	frame, err := BuildFrame(msg, m.receiverID)
	if err != nil {
		return "", err
	}
	return m.ctx.cipher.Encrypt(frame), nil
}

// EncryptMsg encrypts a reply and wraps it in a signed envelope. An empty
// timestamp is replaced with the current unix time.
func (m *MsgCrypt) EncryptMsg(msg []byte, timestamp, nonce string) ([]byte, error) {
	if nonce == "" {
		return nil, ErrMalformedInput
	}
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	}
	encrypted, err := m.Seal(msg)
	if err != nil {
		return nil, err
	}
	signature := m.ctx.Sign(timestamp, nonce, encrypted)
	out, err := xml.Marshal(newReplyEnvelope(encrypted, signature, timestamp, nonce))
	if err != nil {
		return nil, fmt.Errorf("marshalling reply envelope: %w", err)
	}
	return out, nil
}

func (m *MsgCrypt) open(encrypted string) ([]byte, error) {
	frame, err := m.ctx.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, ErrDecrypt
	}
	msg, receiverID, err := ParseFrame(frame)
	if err != nil {
		return nil, ErrDecrypt
	}
	if !bytes.Equal(receiverID, []byte(m.receiverID)) {
		return nil, ErrDecrypt
	}
	return msg, nil
}
