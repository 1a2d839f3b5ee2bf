package model

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one entry of the chat timeline. It is not modified after
// construction.
type ChatMessage struct {
	ID          string
	Content     string
	IsUser      bool
	Timestamp   time.Time
	Attachments []Attachment
	IsCode      bool
	Language    string
}

// NewChatMessage creates a message with a fresh UUID. The attachment slice is
// copied so the caller cannot alter the message afterwards.
func NewChatMessage(content string, isUser bool, ts time.Time, attachments ...Attachment) ChatMessage {
	var owned []Attachment
	if len(attachments) > 0 {
		owned = make([]Attachment, len(attachments))
		copy(owned, attachments)
	}
	return ChatMessage{
		ID:          uuid.New().String(),
		Content:     content,
		IsUser:      isUser,
		Timestamp:   ts,
		Attachments: owned,
	}
}

// WithCode returns a copy marked as code in the given language.
func (m ChatMessage) WithCode(language string) ChatMessage {
	m.IsCode = true
	m.Language = language
	return m
}

// Role maps the author flag onto the provider role names.
func (m ChatMessage) Role() string {
	if m.IsUser {
		return "user"
	}
	return "assistant"
}

// Images returns the image attachments in order.
func (m ChatMessage) Images() []ImageAttachment {
	var out []ImageAttachment
	for _, a := range m.Attachments {
		if img, ok := a.(ImageAttachment); ok {
			out = append(out, img)
		}
	}
	return out
}

// AttachmentKind discriminates Attachment variants.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment is either an ImageAttachment or a FileAttachment.
type Attachment interface {
	Kind() AttachmentKind
	SourceRef() string
	isAttachment()
}

// ImageAttachment references an image; Pixels is nil when it could not be
// decoded.
type ImageAttachment struct {
	Source string
	Pixels image.Image
}

func (ImageAttachment) Kind() AttachmentKind { return AttachmentImage }
func (a ImageAttachment) SourceRef() string  { return a.Source }
func (ImageAttachment) isAttachment()        {}

type FileAttachment struct {
	Source    string
	Name      string
	MediaType string
}

func (FileAttachment) Kind() AttachmentKind { return AttachmentFile }
func (a FileAttachment) SourceRef() string  { return a.Source }
func (FileAttachment) isAttachment()        {}
