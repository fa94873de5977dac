package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"workforce/apperror"
	"workforce/models"
	"workforce/sentinel"
)

type UserFinder interface {
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
}

type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

type AuthHandler struct {
	users    UserFinder
	tokens   TokenIssuer
	validate *validator.Validate
	log      *zap.Logger
}

func NewAuthHandler(users UserFinder, tokens TokenIssuer, v *validator.Validate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, validate: v, log: log}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

var errInvalidCredentials = apperror.New(apperror.KindUnauthorized, "invalid credentials")

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, apperror.Validation(err, "invalid login request"))
		return
	}

	user, err := h.users.FindUserByUsername(r.Context(), req.Username)
	if errors.Is(err, sentinel.ErrNotFound) {
		writeError(w, h.log, errInvalidCredentials)
		return
	}
	if err != nil {
		writeError(w, h.log, apperror.Wrap(err, apperror.KindPersistence, "failed to load user"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, h.log, errInvalidCredentials)
		return
	}

	token, err := h.tokens.GenerateToken(&user)
	if err != nil {
		writeError(w, h.log, apperror.Wrap(err, apperror.KindInternal, "failed to generate token"))
		return
	}

	h.log.Info("user logged in", zap.Uint("user_id", user.ID))
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, User: &user})
}
