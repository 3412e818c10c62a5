// Package instagram implements the narrow slice of the private mobile API the
// agent needs: login, inbox fetch, text send, typing indicator, and GIF
// reaction. Everything else the platform offers is out of scope.
package instagram

import "encoding/json"

// MessageType tags how a message arrived.
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageMedia       MessageType = "media"
	MessageVisualMedia MessageType = "visual_media"
)

// Message is one inbox item, immutable once fetched.
type Message struct {
	ID       string
	SenderID string
	Text     string
	// ImageURL is the first candidate of the best rendition list, or empty
	// when the item carries no resolvable image.
	ImageURL string
	Type     MessageType
}

// HasContent reports whether the message carries anything answerable.
func (m Message) HasContent() bool {
	return m.Text != "" || m.ImageURL != ""
}

// Thread is one conversation as delivered by a poll. Messages are ordered
// newest first. Threads are refetched every cycle and never persisted.
type Thread struct {
	ID       string
	IsGroup  bool
	Messages []Message
}

// --- wire types ---

type inboxResponse struct {
	LogoutReason json.RawMessage `json:"logout_reason"`
	IsSpam       json.RawMessage `json:"is_spam"`
	Status       string          `json:"status"`
	Inbox        struct {
		Threads []wireThread `json:"threads"`
	} `json:"inbox"`
}

type wireThread struct {
	ThreadID string     `json:"thread_id"`
	IsGroup  bool       `json:"is_group"`
	Items    []wireItem `json:"items"`
}

type wireItem struct {
	ItemID      string          `json:"item_id"`
	UserID      json.Number     `json:"user_id"`
	Text        string          `json:"text"`
	ItemType    string          `json:"item_type"`
	Media       *wireMedia      `json:"media"`
	VisualMedia *wireVisualWrap `json:"visual_media"`
}

type wireVisualWrap struct {
	Media *wireMedia `json:"media"`
}

type wireMedia struct {
	ImageVersions2 struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
}

// normalize converts a wire item into the internal message model, resolving
// the image URL from whichever media envelope the item type uses.
func (w wireItem) normalize() Message {
	msg := Message{
		ID:       w.ItemID,
		SenderID: w.UserID.String(),
		Text:     w.Text,
		Type:     MessageText,
	}

	var media *wireMedia
	switch w.ItemType {
	case "media", "raven_media":
		msg.Type = MessageMedia
		media = w.Media
		if media == nil && w.VisualMedia != nil {
			media = w.VisualMedia.Media
		}
	case "visual_media":
		msg.Type = MessageVisualMedia
		if w.VisualMedia != nil {
			media = w.VisualMedia.Media
		}
	}

	if media != nil && len(media.ImageVersions2.Candidates) > 0 {
		msg.ImageURL = media.ImageVersions2.Candidates[0].URL
	}
	return msg
}

func (w wireThread) normalize() Thread {
	t := Thread{ID: w.ThreadID, IsGroup: w.IsGroup}
	for _, item := range w.Items {
		t.Messages = append(t.Messages, item.normalize())
	}
	return t
}
