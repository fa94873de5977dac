package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"workforce/apperror"
	"workforce/models"
	"workforce/sentinel"
)

const lookupRetryAfterSeconds = 5

type contextKey string

const UserContextKey contextKey = "user"

type Claims struct {
	UserID   uint        `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserLookup resolves the user named by a token's claims.
type UserLookup interface {
	FindUserByID(ctx context.Context, id uint) (models.User, error)
}

// Authenticator issues and checks HS256 bearer tokens.
type Authenticator struct {
	secret     []byte
	expiration time.Duration
	users      UserLookup
	log        *zap.Logger
	now        func() time.Time
}

func NewAuthenticator(secret string, expiration time.Duration, users UserLookup, log *zap.Logger) *Authenticator {
	return &Authenticator{
		secret:     []byte(secret),
		expiration: expiration,
		users:      users,
		log:        log,
		now:        time.Now,
	}
}

func (a *Authenticator) GenerateToken(user *models.User) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// Middleware requires a valid bearer token and puts the user it names into
// the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			a.log.Warn("unauthorized access - invalid token",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.Error(err))
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		user, err := a.users.FindUserByID(r.Context(), claims.UserID)
		if errors.Is(err, sentinel.ErrNotFound) {
			a.log.Warn("unauthorized access - unknown user",
				zap.Uint("user_id", claims.UserID),
				zap.Error(err))
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		if err != nil {
			a.log.Error("user lookup failed",
				zap.Uint("user_id", claims.UserID),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.Error(err))
			w.Header().Set("Retry-After", strconv.Itoa(lookupRetryAfterSeconds))
			writeJSONError(w, http.StatusServiceUnavailable, string(apperror.KindPersistence), "authentication is temporarily unavailable")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSONError(w, http.StatusForbidden, "forbidden", "insufficient role")
		})
	}
}

func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// WithUser returns a copy of ctx carrying user, as Middleware would.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
		"kind":    kind,
	})
}
