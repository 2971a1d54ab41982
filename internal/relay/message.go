// Package relay implements the chat core: the retention buffer, the presence
// registry, topic fan-out and the per-connection session lifecycle.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ServerName is the sender of every message the relay produces itself.
	ServerName = "Server"
	// AnonymousName is used when a connection does not announce a user name.
	AnonymousName = "Anonymous"
	// ChatTopic is the single topic every session subscribes to.
	ChatTopic = "chat"
	// UserNameParam is the query parameter carrying the display name.
	UserNameParam = "userName"

	pingText = "ping"
	pongText = "pong"
)

// ErrMalformedPayload is returned for inbound payloads that look like JSON
// but cannot be turned into a chat text.
var ErrMalformedPayload = errors.New("malformed payload")

// ChatMessage is the wire and storage shape of a chat line.
type ChatMessage struct {
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func serverMessage(text string, ts time.Time) ChatMessage {
	return ChatMessage{UserName: ServerName, Text: text, Timestamp: ts}
}

func welcomeText(userName string, online int) string {
	return fmt.Sprintf("Hello %s! Currently %d users are online", userName, online)
}

func joinText(userName string) string {
	return userName + " logged in!"
}

func leaveText(userName string) string {
	return userName + " logged out!"
}

// ParseInbound turns a raw text frame into chat text. Plain text is returned
// verbatim. A payload starting with '{' must parse as a JSON object; its
// "text" field is used when it is a non-empty string, otherwise the payload
// itself is the text.
func ParseInbound(payload string) (string, error) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return payload, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var text string
	if raw, ok := fields["text"]; ok && json.Unmarshal(raw, &text) == nil && text != "" {
		return text, nil
	}
	return payload, nil
}
