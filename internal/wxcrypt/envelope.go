package wxcrypt

import (
	"encoding/xml"
)

// EncryptedBody is the XML body the provider POSTs to the callback URL.
type EncryptedBody struct {
	XMLName    xml.Name `xml:"xml"`
	ToUserName string   `xml:"ToUserName"`
	AgentID    string   `xml:"AgentID"`
	Encrypt    string   `xml:"Encrypt"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

// ReplyEnvelope is the encrypted passive reply returned to the provider.
type ReplyEnvelope struct {
	XMLName      xml.Name `xml:"xml"`
	Encrypt      cdata    `xml:"Encrypt"`
	MsgSignature cdata    `xml:"MsgSignature"`
	TimeStamp    string   `xml:"TimeStamp"`
	Nonce        cdata    `xml:"Nonce"`
}

// ParseEncryptedBody extracts the Encrypt field from a callback body.
func ParseEncryptedBody(body []byte) (*EncryptedBody, error) {
	var env EncryptedBody
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, ErrMalformedInput
	}
	if env.Encrypt == "" {
		return nil, ErrMalformedInput
	}
	return &env, nil
}

func newReplyEnvelope(encrypted, signature, timestamp, nonce string) ReplyEnvelope {
	return ReplyEnvelope{
		Encrypt:      cdata{encrypted},
		MsgSignature: cdata{signature},
		TimeStamp:    timestamp,
		Nonce:        cdata{nonce},
	}
}

// Fields returns the values a receiver needs to verify the envelope.
func (r ReplyEnvelope) Fields() (encrypted, signature, timestamp, nonce string) {
	return r.Encrypt.Value, r.MsgSignature.Value, r.TimeStamp, r.Nonce.Value
}
