package models

import "time"

// Item is the listed good an item-request (and therefore a conversation)
// is about. Managed by the listing subsystem; read-only here.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemRequest links a requester to the provider of an item. Its id doubles
// as the conversation id: every message references exactly one item-request
// and both parties of a message must be its participants.
type ItemRequest struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"itemId"`
	RequesterID    string    `json:"requesterId"`
	ProviderID     string    `json:"providerId"`
	Status         string    `json:"status"`
	Quantity       string    `json:"quantity,omitempty"`
	InitialMessage string    `json:"initialMessage,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *ItemRequest) IsParticipant(userID string) bool {
	return userID == r.RequesterID || userID == r.ProviderID
}

// PartnerOf returns the participant who is not userID. Callers must have
// checked IsParticipant first.
func (r *ItemRequest) PartnerOf(userID string) string {
	if userID == r.RequesterID {
		return r.ProviderID
	}
	return r.RequesterID
}
