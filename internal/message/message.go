// Package message maps decrypted callback XML to Go types and builds the
// markdown replies and pushes sent back to a chat.
package message

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
)

// Message types sent by the provider.
const (
	TypeText     = "text"
	TypeMarkdown = "markdown"
)

// From identifies the sender of a message.
type From struct {
	UserID string `xml:"UserId" json:"userid"`
	Name   string `xml:"Name" json:"name"`
	Alias  string `xml:"Alias" json:"alias"`
}

// TextContent is the body of a text message.
type TextContent struct {
	Content string `xml:"Content" json:"content"`
}

// Message is a decrypted callback. Only text messages are fully modeled;
// for other types MsgType is still populated so the caller can log it.
type Message struct {
	XMLName        xml.Name    `xml:"xml" json:"-"`
	WebhookURL     string      `xml:"WebhookUrl" json:"webhook_url"`
	MsgID          string      `xml:"MsgId" json:"msgid"`
	ChatID         string      `xml:"ChatId" json:"chatid"`
	PostID         string      `xml:"PostId" json:"postid,omitempty"`
	ChatType       string      `xml:"ChatType" json:"chattype"`
	From           From        `xml:"From" json:"from_who"`
	GetChatInfoURL string      `xml:"GetChatInfoUrl" json:"get_chat_info_url"`
	MsgType        string      `xml:"MsgType" json:"msgtype"`
	Text           TextContent `xml:"Text" json:"text"`
}

// Parse decodes the inner XML of a callback. The root element must be xml.
func Parse(data []byte) (*Message, error) {
	var m Message
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing message xml: %w", err)
	}
	return &m, nil
}

// IsText reports whether the message is a text message.
func (m *Message) IsText() bool { return m.MsgType == TypeText }

// Metadata returns the message as JSON, for passing to a workflow.
func (m *Message) Metadata() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling message metadata: %w", err)
	}
	return string(b), nil
}
