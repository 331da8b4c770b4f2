package relay

import (
	"fmt"
	"strings"
)

// Item is one piece of content to relay: either a reference to an existing
// message (FromChatID, MessageID) or literal Text. References carry no
// caption of their own; copies keep the source caption and its entities.
type Item struct {
	FromChatID int64 `json:"from_chat_id,omitempty"`
	MessageID  int   `json:"message_id,omitempty"`
	// Formatted marks text messages whose copies are sent with HTML parse mode.
	Formatted bool   `json:"formatted,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Ref returns a reference item.
func Ref(fromChatID int64, messageID int) Item {
	return Item{FromChatID: fromChatID, MessageID: messageID}
}

// Literal returns a literal text item.
func Literal(text string) Item {
	return Item{Text: text}
}

// IsLiteral reports whether the item carries its own text instead of
// pointing at a message.
func (i Item) IsLiteral() bool {
	return i.MessageID == 0
}

func (i Item) String() string {
	if i.IsLiteral() {
		return fmt.Sprintf("literal(%d chars)", len(i.Text))
	}
	return fmt.Sprintf("ref(%d/%d)", i.FromChatID, i.MessageID)
}

// Mode selects how reference items reach the destination.
type Mode string

const (
	// ModeCopy duplicates content and caption without attribution.
	ModeCopy Mode = "copy"
	// ModeForward preserves the original source chat and message.
	ModeForward Mode = "forward"
)

// ParseMode validates a configured relay mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCopy:
		return ModeCopy, nil
	case ModeForward:
		return ModeForward, nil
	default:
		return "", fmt.Errorf("unknown relay mode %q", s)
	}
}
