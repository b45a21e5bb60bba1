package message

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
)

// Action is an interactive button on a markdown reply.
type Action struct {
	Name        string `xml:"Name"`
	Text        string `xml:"Text"`
	Type        string `xml:"Type"`
	Value       string `xml:"Value"`
	ReplaceText string `xml:"ReplaceText"`
	BorderColor string `xml:"BorderColor"`
	TextColor   string `xml:"TextColor"`
}

// Attachment groups actions under a callback id.
type Attachment struct {
	CallbackID string   `xml:"CallbackId"`
	Actions    []Action `xml:"Actions"`
}

// Markdown is the body of a markdown reply.
type Markdown struct {
	Content    string       `xml:"Content"`
	Attachment []Attachment `xml:"Attachment"`
}

// MarkdownReply is a passive reply returned in the callback response.
type MarkdownReply struct {
	XMLName       xml.Name `xml:"xml"`
	MsgType       string   `xml:"MsgType"`
	Markdown      Markdown `xml:"Markdown"`
	VisibleToUser string   `xml:"VisibleToUser"`
}

// NewMarkdownReply creates a reply with the given markdown content.
func NewMarkdownReply(content string) *MarkdownReply {
	return &MarkdownReply{
		MsgType:  TypeMarkdown,
		Markdown: Markdown{Content: content},
	}
}

// XML renders the reply on a single line without an XML declaration.
func (r *MarkdownReply) XML() ([]byte, error) {
	if r.MsgType == "" {
		r.MsgType = TypeMarkdown
	}
	b, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshalling markdown reply: %w", err)
	}
	return b, nil
}

// PushContent is the markdown body of a webhook push.
type PushContent struct {
	Content string `json:"content"`
}

// Push is the JSON body POSTed to a channel's webhook URL.
type Push struct {
	ChatID   string      `json:"chatid"`
	MsgType  string      `json:"msgtype"`
	Markdown PushContent `json:"markdown"`
}

// NewMarkdownPush creates a markdown push for a chat.
func NewMarkdownPush(chatID, content string) Push {
	return Push{
		ChatID:   chatID,
		MsgType:  TypeMarkdown,
		Markdown: PushContent{Content: content},
	}
}

// JSON encodes the push body.
func (p Push) JSON() ([]byte, error) {
	return json.Marshal(p)
}
