package bots

// Platform identifies the messaging platform.
type Platform string

const (
	PlatformWeCom Platform = "wecom"
)

// IncomingMessage represents a decoded message handed to background
// processing. It is passed by value and never mutated after the callback
// handler builds it.
type IncomingMessage struct {
	Platform  Platform
	Channel   string // configured channel name
	EventID   string // callback event id, empty when events are not persisted
	MsgID     string
	ChannelID string // provider chat id
	ChatType  string
	UserID    string
	UserName  string
	Text      string
	ThreadID  string // provider post id, for threaded replies
	Metadata  string // JSON of the full decoded message
}

// OutgoingMessage represents a response to send back.
type OutgoingMessage struct {
	ChannelID string
	Text      string // markdown
	ThreadID  string
}
