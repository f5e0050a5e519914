package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"mukha.dev/mukha-chat/internal/auth"
	"mukha.dev/mukha-chat/internal/core"
	"mukha.dev/mukha-chat/internal/store"
)

const sessionCookieName = "token"

type APIHandler struct {
	accounts *core.AccountService
	chat     *core.ChatService
}

func NewAPIHandler(accounts *core.AccountService, chat *core.ChatService) *APIHandler {
	return &APIHandler{accounts: accounts, chat: chat}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// setSessionCookie attaches a fresh session token as an httpOnly cookie.
// SameSite=None because the original frontend is served cross-site.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// Authenticate extracts the session cookie, validates the token and puts
// the bearer's user ID on the request context. Short-circuits with 401.
func (h *APIHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, err := auth.ValidateJWT(cookie.Value)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), "userID", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin loads the resolved user and rejects non-admins. Must run
// inside Authenticate.
func (h *APIHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value("userID").(int64)

		user, err := h.accounts.GetUser(userID)
		if err != nil {
			log.Printf("Error loading user %d in RequireAdmin: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}
		if user == nil {
			respondError(w, http.StatusUnauthorized, "User not found")
			return
		}
		if !user.IsAdmin {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Auth handlers

type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name,omitempty"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.accounts.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrEmailRestricted):
			respondError(w, http.StatusForbidden, "This email is not allowed to register")
		case errors.Is(err, core.ErrEmailTaken):
			respondError(w, http.StatusConflict, "User already exists")
		default:
			log.Printf("Error registering user %s: %v", req.Email, err)
			respondError(w, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.Email, err)
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, map[string]any{"message": "Registered successfully", "user": user})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.accounts.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("Error logging in user %s: %v", req.Email, err)
		respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.Email, err)
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, map[string]any{"message": "Logged in successfully", "user": user})
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	user, err := h.accounts.GetUser(userID)
	if err != nil {
		log.Printf("Error loading user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

type UpdateProfileRequest struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
}

func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.accounts.UpdateProfile(userID, core.ProfileUpdate{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrEmailTaken):
			respondError(w, http.StatusConflict, "User already exists")
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("Error updating profile for user %d: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Message handlers

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	messages, err := h.chat.ListMessages(userID)
	if err != nil {
		log.Printf("Error listing messages for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

type AppendMessageRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (h *APIHandler) AppendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	msg, err := h.chat.AppendMessage(userID, req.Role, req.Text)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error appending message for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to store message")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (h *APIHandler) ClearMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	if err := h.chat.ClearMessages(userID); err != nil {
		log.Printf("Error clearing messages for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "History cleared"})
}

// Chat handler

type ChatRequest struct {
	Text    string          `json:"text"`
	History []core.ChatTurn `json:"history,omitempty"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "Message text cannot be empty")
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), userID, req.Text, req.History)
	if err != nil {
		log.Printf("Error handling chat turn for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Knowledge handlers

func (h *APIHandler) ListKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.chat.ListKnowledge()
	if err != nil {
		log.Printf("Error listing knowledge: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list knowledge")
		return
	}
	if entries == nil {
		entries = []store.KnowledgeEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

type KnowledgeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *APIHandler) CreateKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	var req KnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.chat.CreateKnowledge(req.Title, req.Content)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error creating knowledge entry: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create knowledge entry")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *APIHandler) UpdateKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req KnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.chat.UpdateKnowledge(id, req.Title, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "Knowledge entry not found")
		default:
			log.Printf("Error updating knowledge entry %s: %v", id, err)
			respondError(w, http.StatusInternalServerError, "Failed to update knowledge entry")
		}
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *APIHandler) DeleteKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.chat.DeleteKnowledge(id); err != nil {
		log.Printf("Error deleting knowledge entry %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete knowledge entry")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Knowledge deleted"})
}
