package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"food-console/console"
	"food-console/models"
	"food-console/notify"
)

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	chats, err := s.console.Chats(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, chats)
}

func (s *Server) chatMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.console.ChatMessages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, msgs)
}

type messageRequest struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

func (s *Server) sendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.console.SendChatMessage(r.Context(), console.ChatMessageInput{
		ChatID:   chi.URLParam(r, "id"),
		SenderID: req.SenderID,
		Message:  req.Message,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusCreated, res)
}

type notificationView struct {
	models.Notification
	Link string `json:"link"`
	Icon string `json:"icon"`
}

type feedResponse struct {
	Items           []notificationView `json:"items"`
	Unread          int                `json:"unread"`
	UnreadIncreased bool               `json:"unread_increased"`
}

func feedView(snap notify.Snapshot) feedResponse {
	out := feedResponse{
		Items:           make([]notificationView, len(snap.Items)),
		Unread:          snap.Unread,
		UnreadIncreased: snap.UnreadIncreased,
	}
	for i, n := range snap.Items {
		out.Items[i] = notificationView{Notification: n, Link: notify.RouteFor(n).Path(), Icon: notify.Icon(n)}
	}
	return out
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	snap, err := s.feed.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, feedView(snap))
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeError(w, r, badRequest("id is required"))
		return
	}
	snap, err := s.feed.MarkRead(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, feedView(snap))
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	snap, err := s.feed.MarkAllRead(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, feedView(snap))
}
