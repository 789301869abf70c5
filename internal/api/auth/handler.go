package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Handler handles authentication endpoints.
type Handler struct {
	jwtService *JWTService
	logger     *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{
		jwtService: jwt,
		logger:     logger.Named("auth"),
	}
}

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func (h *Handler) jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

func (h *Handler) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// Login accepts any email and password and returns a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		h.jsonError(w, http.StatusBadRequest, "VALIDATION_FAILED", "email and password are required")
		return
	}

	token, err := h.jwtService.GenerateToken(req.Email)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	h.logger.Info("login", zap.String("email", req.Email))
	h.jsonOK(w, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   h.jwtService.TTLSeconds(),
	})
}
