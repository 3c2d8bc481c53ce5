package server

// MessageType identifies which variant of a Message is populated.
type MessageType int

const (
	// TextMessage is a UTF-8 text message.
	TextMessage MessageType = iota + 1

	// DataMessage is a binary message.
	DataMessage
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case DataMessage:
		return "data"
	default:
		return "unknown"
	}
}

// Message is a WebSocket message received from or sent to a client.
// Exactly one variant is populated: Text when Type is TextMessage,
// Data when Type is DataMessage.
type Message struct {
	Type MessageType
	Text string
	Data []byte
}

// NewTextMessage creates a text message.
func NewTextMessage(text string) Message {
	return Message{Type: TextMessage, Text: text}
}

// NewDataMessage creates a binary message.
func NewDataMessage(data []byte) Message {
	return Message{Type: DataMessage, Data: data}
}

// IsText reports whether the text variant is populated.
func (m Message) IsText() bool {
	return m.Type == TextMessage
}

// Payload returns the message content as bytes regardless of variant.
func (m Message) Payload() []byte {
	if m.Type == TextMessage {
		return []byte(m.Text)
	}
	return m.Data
}
