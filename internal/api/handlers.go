package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"skillhub.io/skill-exchange/internal/auth"
	"skillhub.io/skill-exchange/internal/core"
	"skillhub.io/skill-exchange/internal/store"
)

type APIHandler struct {
	users         *core.UserService
	swaps         *core.SwapService
	conversations *core.ConversationService
	ratings       *core.RatingService
	sync          *core.SyncService
	validate      *validator.Validate
}

func NewAPIHandler(users *core.UserService, swaps *core.SwapService, conversations *core.ConversationService, ratings *core.RatingService, sync *core.SyncService) *APIHandler {
	return &APIHandler{
		users:         users,
		swaps:         swaps,
		conversations: conversations,
		ratings:       ratings,
		sync:          sync,
		validate:      validator.New(),
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.users.GetByID(r.Context(), userID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", userID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError maps the core error kinds to HTTP statuses. Anything outside the
// taxonomy is an internal error and is logged, not leaked.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, core.ErrAccessDenied),
		errors.Is(err, core.ErrNotParticipant),
		errors.Is(err, core.ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, core.ErrIllegalTransition),
		errors.Is(err, core.ErrDuplicateRating):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, core.ErrInvalidParticipants),
		errors.Is(err, core.ErrSkillOwnershipMismatch),
		errors.Is(err, core.ErrEmptyContent),
		errors.Is(err, core.ErrSwapNotCompleted),
		errors.Is(err, core.ErrInvalidRating):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=64"`
	Password    string `json:"password" validate:"required,min=8"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.DisplayName, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.users.Register(r.Context(), req.DisplayName, hashedPassword)
	if err != nil {
		if store.IsUniqueViolation(err) {
			http.Error(w, "Display name already taken", http.StatusConflict)
			return
		}
		log.Printf("Error creating user %s: %v", req.DisplayName, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.users.GetByDisplayName(r.Context(), req.DisplayName)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.DisplayName, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.ID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type CreateSkillRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=128"`
	Category string `json:"category" validate:"required,min=2,max=64"`
}

func (h *APIHandler) CreateSkillHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req CreateSkillRequest
	if !h.decode(w, r, &req) {
		return
	}

	skill, err := h.users.AddSkill(r.Context(), userID, req.Name, req.Category)
	if err != nil {
		log.Printf("Error creating skill for user %s: %v", userID, err)
		http.Error(w, "Failed to create skill", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(skill)
}

func (h *APIHandler) ListMySkillsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	skills, err := h.users.SkillsFor(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(skills)
}

func (h *APIHandler) ListUserSkillsHandler(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	skills, err := h.users.SkillsFor(r.Context(), targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(skills)
}

type CreateSwapRequest struct {
	ToUserID       string  `json:"to_user_id" validate:"required,uuid4"`
	SkillOfferedID string  `json:"skill_offered_id" validate:"required,uuid4"`
	SkillWantedID  string  `json:"skill_wanted_id" validate:"required,uuid4"`
	Message        *string `json:"message,omitempty"`
}

func (h *APIHandler) CreateSwapHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req CreateSwapRequest
	if !h.decode(w, r, &req) {
		return
	}

	swap, err := h.swaps.Create(r.Context(), userID, req.ToUserID, req.SkillOfferedID, req.SkillWantedID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(swap)
}

type SwapStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACCEPTED REJECTED CANCELLED COMPLETED"`
}

func (h *APIHandler) SwapStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	swapID := chi.URLParam(r, "swapID")

	var req SwapStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	swap, err := h.swaps.Transition(r.Context(), swapID, userID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(swap)
}

func (h *APIHandler) ListSwapsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	direction := r.URL.Query().Get("direction")
	if direction == "" {
		direction = "received"
	}
	if direction != "sent" && direction != "received" {
		http.Error(w, `direction must be "sent" or "received"`, http.StatusBadRequest)
		return
	}

	swaps, err := h.swaps.ListFor(r.Context(), userID, direction)
	if err != nil {
		log.Printf("Error listing swaps for user %s: %v", userID, err)
		http.Error(w, "Failed to list swap requests", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(swaps)
}

type FindOrCreateConversationRequest struct {
	OtherUserID   string  `json:"other_user_id" validate:"required,uuid4"`
	SwapRequestID *string `json:"swap_request_id,omitempty" validate:"omitempty,uuid4"`
}

func (h *APIHandler) FindOrCreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req FindOrCreateConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	conv, err := h.conversations.FindOrCreate(r.Context(), userID, req.OtherUserID, req.SwapRequestID)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(conv)
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	summaries, err := h.conversations.ListForUser(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing conversations for user %s: %v", userID, err)
		http.Error(w, "Failed to list conversations", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(summaries)
}

func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	conversationID := chi.URLParam(r, "conversationID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, err := h.conversations.GetMessages(r.Context(), conversationID, userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

type SendMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type" validate:"omitempty,oneof=TEXT IMAGE"`
}

func (h *APIHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	conversationID := chi.URLParam(r, "conversationID")

	var req SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.conversations.Send(r.Context(), conversationID, userID, req.Content, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (h *APIHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.conversations.MarkRead(r.Context(), conversationID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RateSwapRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty"`
}

func (h *APIHandler) RateSwapHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	swapID := chi.URLParam(r, "swapID")

	var req RateSwapRequest
	if !h.decode(w, r, &req) {
		return
	}

	rating, err := h.ratings.Rate(r.Context(), swapID, userID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rating)
}

func (h *APIHandler) UpdateRatingHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	ratingID := chi.URLParam(r, "ratingID")

	var req RateSwapRequest
	if !h.decode(w, r, &req) {
		return
	}

	rating, err := h.ratings.Update(r.Context(), ratingID, userID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(rating)
}

type UserRatingResponse struct {
	UserID  string  `json:"user_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func (h *APIHandler) UserRatingHandler(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	avg, count, err := h.ratings.AverageFor(r.Context(), targetID)
	if err != nil {
		log.Printf("Error computing rating average for user %s: %v", targetID, err)
		http.Error(w, "Failed to compute rating", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(UserRatingResponse{UserID: targetID, Average: avg, Count: count})
}

func (h *APIHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			http.Error(w, "since must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	snapshot, err := h.sync.SnapshotFor(r.Context(), userID, since)
	if err != nil {
		log.Printf("Error building sync snapshot for user %s: %v", userID, err)
		http.Error(w, "Failed to build snapshot", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(snapshot)
}
