package models

import "time"

// ImageContentMarker is the placeholder content stored for image messages.
const ImageContentMarker = "📷 Image"

type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MessageView is a Message with sender and receiver identity expanded,
// as delivered to clients.
type MessageView struct {
	Message
	Sender   UserRef `json:"sender"`
	Receiver UserRef `json:"receiver"`
}
