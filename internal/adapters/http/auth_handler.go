package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler issues tokens for the protected payment routes.
type AuthHandler struct {
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthHandler(logger *slog.Logger, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// HandleLogin exchanges a username for a signed JWT.
// TODO: replace the hard-coded principals with a user store lookup.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, h.logger, "Invalid request body", http.StatusBadRequest)
		return
	}

	var roles []string
	var userID string
	switch req.Username {
	case "admin":
		roles = []string{"admin", "customer"}
		userID = "user-admin-123"
	case "customer":
		roles = []string{"customer"}
		userID = "user-customer-456"
	default:
		writeJSONError(w, h.logger, "Invalid username", http.StatusUnauthorized)
		return
	}

	claims := jwt.MapClaims{
		"sub":   userID,
		"roles": roles,
		"exp":   time.Now().Add(time.Hour * 1).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		writeJSONError(w, h.logger, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, loginResponse{Token: tokenString})
}
