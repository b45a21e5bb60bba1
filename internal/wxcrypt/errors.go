package wxcrypt

import "errors"

var (
	// ErrMalformedInput is returned when a required field is missing or an
	// envelope cannot be parsed.
	ErrMalformedInput = errors.New("wxcrypt: malformed input")

	// ErrSignatureMismatch is returned when msg_signature does not match the
	// signature computed over the request.
	ErrSignatureMismatch = errors.New("wxcrypt: signature mismatch")

	// ErrDecrypt covers every failure after the signature check: bad base64,
	// bad ciphertext length, bad padding, a truncated frame and a receiver id
	// mismatch. The causes are collapsed on purpose and never wrapped, so a
	// caller cannot tell them apart.
	ErrDecrypt = errors.New("wxcrypt: decrypt failed")
)
