package wxcrypt

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	prefixLen = 16
	lengthLen = 4
	headerLen = prefixLen + lengthLen
)

// BuildFrame lays out random(16) || uint32_be(len(msg)) || msg || receiverID.
func BuildFrame(msg []byte, receiverID string) ([]byte, error) {
	if uint64(len(msg)) > math.MaxUint32 {
		return nil, fmt.Errorf("message of %d bytes does not fit a frame", len(msg))
	}
	frame := make([]byte, headerLen, headerLen+len(msg)+len(receiverID)+PadBlockSize)
	if _, err := rand.Read(frame[:prefixLen]); err != nil {
		return nil, fmt.Errorf("reading random prefix: %w", err)
	}
	binary.BigEndian.PutUint32(frame[prefixLen:headerLen], uint32(len(msg)))
	frame = append(frame, msg...)
	frame = append(frame, receiverID...)
	return frame, nil
}

// ParseFrame splits a decrypted frame into the message and the trailing
// receiver id. The random prefix is discarded.
func ParseFrame(frame []byte) (msg, receiverID []byte, err error) {
	if len(frame) < headerLen {
		return nil, nil, ErrDecrypt
	}
	n := binary.BigEndian.Uint32(frame[prefixLen:headerLen])
	if uint64(n) > uint64(len(frame)-headerLen) {
		return nil, nil, ErrDecrypt
	}
	end := headerLen + int(n)
	return frame[headerLen:end], frame[end:], nil
}
