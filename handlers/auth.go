package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/camden-git/labelsysbackend/config"
	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/repository"
)

type AuthHandler struct {
	UserRepo repository.UserRepositoryInterface
	Cfg      config.Config
}

func NewAuthHandler(userRepo repository.UserRepositoryInterface, cfg config.Config) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, Cfg: cfg}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByUsername(payload.Username)
	if err != nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid username or password")
		return
	}

	if !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid username or password")
		return
	}

	expirationTime := time.Now().Add(time.Duration(h.Cfg.JWTExpiryHours) * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "labelsysbackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expirationTime,
	})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UserCreatePayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// CreateUser registers a new annotator or administrator (admin only)
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload UserCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request payload")
		return
	}
	if payload.Username == "" || payload.Password == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}

	if _, err := h.UserRepo.GetByUsername(payload.Username); err == nil {
		WriteAPIError(w, http.StatusConflict, "conflict", "username already taken")
		return
	}

	user := models.User{Username: payload.Username, IsAdmin: payload.IsAdmin}
	if err := user.SetPassword(payload.Password); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to hash password")
		return
	}
	if err := h.UserRepo.Create(&user); err != nil {
		writeRepositoryError(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// ListUsers returns all users (admin only)
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserRepo.ListAll()
	if err != nil {
		writeRepositoryError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
