package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"exchange-chat/config"
	"exchange-chat/errs"
	"exchange-chat/logger"
	"exchange-chat/models"
	"exchange-chat/repository"
)

// RoomBroadcaster fans a persisted message out to the conversation's room.
// Implemented by ws.Hub; declared here to keep the send protocol
// transport-agnostic and break the import cycle (teacher pattern). Replacing
// the in-process hub with an external pub/sub for horizontal scaling happens
// behind this interface.
type RoomBroadcaster interface {
	BroadcastMessage(conversationID string, msg models.MessageView)
}

type MessageService struct {
	msgs     repository.MessageStore
	users    repository.UserStore
	requests repository.RequestStore
	items    repository.ItemStore
	hub      RoomBroadcaster
	cfg      *config.Config
}

func NewMessageService(
	msgs repository.MessageStore,
	users repository.UserStore,
	requests repository.RequestStore,
	items repository.ItemStore,
	hub RoomBroadcaster,
	cfg *config.Config,
) *MessageService {
	return &MessageService{msgs: msgs, users: users, requests: requests, items: items, hub: hub, cfg: cfg}
}

// SendInput carries one outgoing message. SenderID must already be
// authenticated by the caller.
type SendInput struct {
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	ImageURL       string `json:"-"`
}

// Send runs the text send protocol: validate, persist, broadcast to the
// conversation room, return the created message for the sender's direct
// acknowledgment.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*models.MessageView, error) {
	if strings.TrimSpace(in.Content) == "" || in.ReceiverID == "" {
		return nil, errs.Validation("Content and receiver ID are required")
	}
	if len(in.Content) > s.cfg.MaxMessageLength {
		return nil, errs.Validation("Message too long (max %d characters)", s.cfg.MaxMessageLength)
	}
	return s.deliver(ctx, in)
}

// SendImage runs the image send protocol: the image must already be
// uploaded, and content is forced to the fixed marker.
func (s *MessageService) SendImage(ctx context.Context, in SendInput) (*models.MessageView, error) {
	if in.ImageURL == "" {
		return nil, errs.Validation("Image file is required")
	}
	if in.ReceiverID == "" {
		return nil, errs.Validation("Receiver ID is required")
	}
	in.Content = models.ImageContentMarker
	return s.deliver(ctx, in)
}

func (s *MessageService) deliver(ctx context.Context, in SendInput) (*models.MessageView, error) {
	receiver, err := s.users.FindByID(ctx, in.ReceiverID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("Receiver not found")
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	if receiver.IsSuspended {
		return nil, errs.Forbidden("Cannot send message to suspended user")
	}

	sender, err := s.users.FindByID(ctx, in.SenderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("Sender not found")
	}
	if err != nil {
		return nil, errs.Store(err)
	}

	req, err := s.requests.FindByID(ctx, in.ConversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	// conversation existence is not confirmed to non-participants
	if !req.IsParticipant(in.SenderID) || !req.IsParticipant(in.ReceiverID) {
		return nil, errs.NotFound("Conversation not found")
	}

	msg := &models.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Content:        in.Content,
		ImageURL:       in.ImageURL,
		CreatedAt:      time.Now().UTC(),
	}

	saved, err := s.msgs.Create(ctx, msg)
	if err != nil {
		// no broadcast after a failed persist
		return nil, errs.Store(err)
	}

	view := &models.MessageView{
		Message:  *saved,
		Sender:   sender.Ref(),
		Receiver: receiver.Ref(),
	}

	s.hub.BroadcastMessage(in.ConversationID, *view)

	logger.Log.Debug("message sent",
		zap.Int64("message_id", saved.ID),
		zap.String("conversation_id", in.ConversationID),
		zap.String("sender_id", in.SenderID))
	return view, nil
}

// FetchThread returns the full conversation history ordered ascending by
// creation time and, as a side effect, marks every unread message addressed
// to the fetching user as read. Non-participants get a not-found error.
func (s *MessageService) FetchThread(ctx context.Context, conversationID, userID string) (*models.Thread, error) {
	req, err := s.requests.FindByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("No chat found")
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	if !req.IsParticipant(userID) {
		return nil, errs.NotFound("No chat found")
	}

	msgs, err := s.msgs.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, errs.Store(err)
	}

	if err := s.msgs.MarkConversationRead(ctx, conversationID, userID); err != nil {
		return nil, errs.Store(err)
	}

	item := models.ItemSummary{ID: req.ItemID}
	if it, err := s.items.FindByID(ctx, req.ItemID); err == nil {
		item.Name = it.Name
		item.Image = it.ImageURL
	}

	return &models.Thread{
		ID:        req.ID,
		Item:      item,
		Requester: s.userRef(ctx, req.RequesterID),
		Provider:  s.userRef(ctx, req.ProviderID),
		Messages:  msgs,
	}, nil
}

// MarkRead flips every unread message from senderID to the caller.
// Idempotent.
func (s *MessageService) MarkRead(ctx context.Context, receiverID, senderID string) error {
	if senderID == "" {
		return errs.Validation("Sender ID is required")
	}
	if err := s.msgs.MarkRead(ctx, senderID, receiverID); err != nil {
		return errs.Store(err)
	}
	return nil
}

// UnreadCount counts unread messages addressed to the user across all
// conversations.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.msgs.CountUnreadTotal(ctx, userID)
	if err != nil {
		return 0, errs.Store(err)
	}
	return count, nil
}

// DeleteMessage hard-deletes a message. Only the original sender may delete.
func (s *MessageService) DeleteMessage(ctx context.Context, id int64, userID string) error {
	msg, err := s.msgs.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errs.NotFound("Message not found")
	}
	if err != nil {
		return errs.Store(err)
	}
	if msg.SenderID != userID {
		return errs.Forbidden("Cannot delete other users messages")
	}

	if err := s.msgs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errs.NotFound("Message not found")
		}
		return errs.Store(err)
	}
	return nil
}

// SearchUsers finds message counterparts by name or email substring,
// excluding the caller and suspended accounts, capped to the configured page
// size.
func (s *MessageService) SearchUsers(ctx context.Context, query, selfID string) ([]models.UserSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.Validation("Search query is required")
	}
	results, err := s.users.Search(ctx, query, selfID, s.cfg.SearchPageSize)
	if err != nil {
		return nil, errs.Store(err)
	}
	if results == nil {
		results = []models.UserSummary{}
	}
	return results, nil
}

func (s *MessageService) userRef(ctx context.Context, id string) models.UserRef {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.UserRef{ID: id}
	}
	return u.Ref()
}
