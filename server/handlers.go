package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/richinex/swasth/agent"
	"github.com/richinex/swasth/auth"
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/storage"
)

type signupRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decode(w, r, &req) {
		return
	}
	tok, err := s.auth.Signup(r.Context(), req.Username, req.FullName, req.Password)
	var ve *auth.ValidationError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusCreated, tok)
	case errors.As(err, &ve):
		s.writeError(w, http.StatusUnprocessableEntity, ve.Error())
	case errors.Is(err, auth.ErrUsernameTaken):
		s.writeError(w, http.StatusBadRequest, "Username already registered")
	default:
		s.logger.Error("signup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to create account")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	tok, err := s.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, tok)
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		s.writeError(w, http.StatusUnauthorized, "Incorrect username or password")
	default:
		s.logger.Error("login failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to log in")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ storage.User) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		s.logger.Error("logout failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Logged out"})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request, user storage.User) {
	s.writeJSON(w, http.StatusOK, user)
}

// validateMessage trims a chat message and checks its length.
func validateMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", errors.New("message must not be empty")
	}
	if utf8.RuneCountInString(msg) > maxMessageChars {
		return "", fmt.Errorf("message must be at most %d characters", maxMessageChars)
	}
	return msg, nil
}

// converse runs one turn for a user: it loads their recent history, asks
// the agent and stores both sides of the exchange.
func (s *Server) converse(ctx context.Context, user storage.User, message string) (string, error) {
	recent, err := s.store.RecentMessages(ctx, user.ID, s.historyLimit)
	if err != nil {
		return "", err
	}
	history := make([]llm.ChatMessage, len(recent))
	for i, m := range recent {
		history[i] = m.ChatMessage()
	}

	reply, err := s.chat.Chat(ctx, message, history)
	if err != nil {
		return "", err
	}

	if err := s.store.AddMessages(ctx, user.ID, llm.UserMessage(message), llm.AssistantMessage(reply)); err != nil {
		return "", err
	}
	return reply, nil
}

// chatFailure maps a converse error to a status and user-facing text.
func chatFailure(err error) (int, string) {
	if errors.Is(err, agent.ErrNotConfigured) {
		return http.StatusServiceUnavailable, "AI service not configured: " + err.Error()
	}
	return http.StatusInternalServerError, "Failed to process chat message"
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	msg, err := validateMessage(req.Message)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	reply, err := s.converse(r.Context(), user, msg)
	if err != nil {
		status, text := chatFailure(err)
		s.logger.Error("chat failed", zap.Int64("user_id", user.ID), zap.Int("status", status), zap.Error(err))
		s.writeError(w, status, text)
		return
	}
	s.writeJSON(w, http.StatusOK, chatResponse{Response: reply, Timestamp: time.Now().UTC()})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, user storage.User) {
	messages, err := s.store.Messages(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("load messages failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to load chat history")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"messages":       messages,
		"total_messages": len(messages),
	})
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request, user storage.User) {
	if err := s.store.ClearMessages(r.Context(), user.ID); err != nil {
		s.logger.Error("clear messages failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to clear chat history")
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Chat history cleared successfully"})
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request, _ storage.User) {
	s.writeJSON(w, http.StatusOK, map[string]string{"greeting": agent.Greeting()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":      "healthy",
		"app":         s.appName,
		"ai_provider": s.provider,
	})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ storage.User) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"users":       users,
		"total_users": len(users),
	})
}

// pathUser resolves the {id} path value, writing 404 for unknown users.
func (s *Server) pathUser(w http.ResponseWriter, r *http.Request) (storage.User, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "User not found")
		return storage.User{}, false
	}
	user, err := s.store.UserByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "User not found")
		return storage.User{}, false
	}
	if err != nil {
		s.logger.Error("load user failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to load user")
		return storage.User{}, false
	}
	return user, true
}

func (s *Server) handleAdminUserMessages(w http.ResponseWriter, r *http.Request, _ storage.User) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	messages, err := s.store.Messages(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("load messages failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":        user.ID,
			"username":  user.Username,
			"full_name": user.FullName,
		},
		"messages":       messages,
		"total_messages": len(messages),
	})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request, admin storage.User) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	if user.ID == admin.ID {
		s.writeError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	if err := s.store.DeleteUser(r.Context(), user.ID); err != nil {
		s.logger.Error("delete user failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	s.logger.Info("user deleted", zap.String("username", user.Username), zap.String("by", admin.Username))
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("User %s deleted successfully", user.Username),
	})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, _ storage.User) {
	st, err := s.store.Stats(r.Context(), time.Now())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}
