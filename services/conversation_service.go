package services

import (
	"context"

	"go.uber.org/zap"

	"exchange-chat/errs"
	"exchange-chat/logger"
	"exchange-chat/models"
	"exchange-chat/repository"
)

// ConversationService builds a user's inbox from the flat message log. Pure
// read path: it never mutates read state.
type ConversationService struct {
	msgs     repository.MessageStore
	users    repository.UserStore
	requests repository.RequestStore
	items    repository.ItemStore
}

func NewConversationService(
	msgs repository.MessageStore,
	users repository.UserStore,
	requests repository.RequestStore,
	items repository.ItemStore,
) *ConversationService {
	return &ConversationService{msgs: msgs, users: users, requests: requests, items: items}
}

// ListConversations returns one summary per conversation where the user is
// sender or receiver of at least one message, most recent activity first.
// Conversations with zero messages never appear: they are discovered through
// the message log, not through item-request existence.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	heads, err := s.msgs.ListConversationHeads(ctx, userID)
	if err != nil {
		return nil, errs.Store(err)
	}

	summaries := make([]models.ConversationSummary, 0, len(heads))
	for _, head := range heads {
		last := head.Message

		req, err := s.requests.FindByID(ctx, last.ConversationID)
		if err != nil {
			logger.Log.Warn("conversation references unknown item-request",
				zap.String("conversation_id", last.ConversationID),
				zap.Error(err))
			continue
		}

		item := models.ItemSummary{ID: req.ItemID}
		if it, err := s.items.FindByID(ctx, req.ItemID); err == nil {
			item.Name = it.Name
			item.Image = it.ImageURL
		}

		summaries = append(summaries, models.ConversationSummary{
			ID:      req.ID,
			Partner: s.userRef(ctx, req.PartnerOf(userID)),
			Item:    item,
			Request: models.RequestSummary{
				ID:             req.ID,
				Status:         req.Status,
				Quantity:       req.Quantity,
				InitialMessage: req.InitialMessage,
			},
			LastMessage: models.LastMessage{
				ID:                last.ID,
				Content:           last.Content,
				Sender:            s.userRef(ctx, last.SenderID),
				IsFromCurrentUser: last.SenderID == userID,
				IsRead:            last.IsRead,
				CreatedAt:         last.CreatedAt,
			},
			UnreadCount:   head.UnreadCount,
			TotalMessages: head.TotalMessages,
			UpdatedAt:     last.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *ConversationService) userRef(ctx context.Context, id string) models.UserRef {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.UserRef{ID: id}
	}
	return u.Ref()
}
