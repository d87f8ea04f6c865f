package models

import "time"

// ItemSummary is the item context shown on a conversation row.
type ItemSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// RequestSummary is the item-request context shown on a conversation row.
type RequestSummary struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Quantity       string `json:"quantity,omitempty"`
	InitialMessage string `json:"initialMessage,omitempty"`
}

// LastMessage is the most recent message of a conversation, trimmed for the
// inbox view.
type LastMessage struct {
	ID                int64     `json:"id"`
	Content           string    `json:"content"`
	Sender            UserRef   `json:"sender"`
	IsFromCurrentUser bool      `json:"isFromCurrentUser"`
	IsRead            bool      `json:"isRead"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ConversationSummary is one row of a user's inbox: the conversation id is
// the item-request id, partner is the other participant, counts are scoped
// to the viewing user.
type ConversationSummary struct {
	ID            string         `json:"id"`
	Partner       UserRef        `json:"partner"`
	Item          ItemSummary    `json:"item"`
	Request       RequestSummary `json:"request"`
	LastMessage   LastMessage    `json:"lastMessage"`
	UnreadCount   int            `json:"unreadCount"`
	TotalMessages int            `json:"totalMessages"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Thread is the full ordered history of one conversation plus its context.
type Thread struct {
	ID        string      `json:"id"`
	Item      ItemSummary `json:"item"`
	Requester UserRef     `json:"requester"`
	Provider  UserRef     `json:"provider"`
	Messages  []Message   `json:"messages"`
}
