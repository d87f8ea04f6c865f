package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"exchange-chat/config"
	"exchange-chat/errs"
	"exchange-chat/logger"
	"exchange-chat/services"
	"exchange-chat/utils"
	"exchange-chat/ws"
)

type ChatHandler struct {
	msgSvc  *services.MessageService
	convSvc *services.ConversationService
	hub     *ws.Hub
	cfg     *config.Config
}

func NewChatHandler(m *services.MessageService, c *services.ConversationService, hub *ws.Hub, cfg *config.Config) *ChatHandler {
	return &ChatHandler{msgSvc: m, convSvc: c, hub: hub, cfg: cfg}
}

// Conversations lists the caller's inbox, most recent activity first.
func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.convSvc.ListConversations(r.Context(), UserID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, summaries)
}

// Thread returns one conversation's full history and marks the caller's
// unread messages in it as read.
func (h *ChatHandler) Thread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.msgSvc.FetchThread(r.Context(), r.PathValue("requestId"), UserID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, thread)
}

// SendMessage creates a text message and broadcasts it to the conversation
// room.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in services.SendInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, errs.Validation("Invalid JSON body"))
		return
	}
	in.SenderID = UserID(r)

	view, err := h.msgSvc.Send(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

// SendImage accepts a multipart upload (field "image"), stores the file under
// the upload dir and creates an image message with the fixed content marker.
func (h *ChatHandler) SendImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		h.respondError(w, errs.Validation("Image file is required"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.respondError(w, errs.Validation("Image file is required"))
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadBytes {
		h.respondError(w, errs.Validation("File too large. Maximum %d MB per image.", h.cfg.MaxUploadBytes>>20))
		return
	}

	// sniff the real content type, the declared header is client-controlled;
	// ReadFull so a chunked part cannot shrink the 512-byte sniff window
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		h.respondError(w, errs.Store(err))
		return
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		h.respondError(w, errs.Validation("Only image files are allowed"))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.respondError(w, errs.Store(err))
		return
	}

	name := "chat-" + uuid.New().String() + filepath.Ext(header.Filename)
	path := filepath.Join(h.cfg.UploadDir, name)
	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.respondError(w, errs.Store(err))
		return
	}
	dst, err := os.Create(path)
	if err != nil {
		h.respondError(w, errs.Store(err))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		h.respondError(w, errs.Store(err))
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		h.respondError(w, errs.Store(err))
		return
	}

	in := services.SendInput{
		SenderID:       UserID(r),
		ReceiverID:     r.FormValue("receiverId"),
		ConversationID: r.FormValue("conversationId"),
		ImageURL:       "/uploads/" + name,
	}

	view, err := h.msgSvc.SendImage(r.Context(), in)
	if err != nil {
		os.Remove(path)
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

// MarkRead flips all unread messages from the given sender to the caller.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderID string `json:"senderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errs.Validation("Invalid JSON body"))
		return
	}

	if err := h.msgSvc.MarkRead(r.Context(), UserID(r), req.SenderID); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Messages marked as read"})
}

// UnreadCount returns the caller's total unread count.
func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.msgSvc.UnreadCount(r.Context(), UserID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

// SearchUsers finds chat counterparts by name or email substring.
func (h *ChatHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.msgSvc.SearchUsers(r.Context(), r.URL.Query().Get("query"), UserID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, users)
}

// DeleteMessage removes a message; only its sender may do so.
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("messageId"), 10, 64)
	if err != nil {
		h.respondError(w, errs.Validation("Invalid message ID"))
		return
	}

	if err := h.msgSvc.DeleteMessage(r.Context(), id, UserID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Message deleted successfully"})
}

// WS authenticates the token query parameter and upgrades the connection.
func (h *ChatHandler) WS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Access token required"})
		return
	}

	uid, _, err := utils.ParseJWT(h.cfg.JWTSecret, token)
	if err != nil {
		logger.Log.Debug("websocket token rejected", zap.Error(err))
		h.respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
		return
	}

	h.hub.ServeWS(w, r, uid, h.msgSvc)
}
