// internal/httpserver/auth.go
//
// Admin authentication: a single configured account, bcrypt password
// check, HS256 JWTs carried as bearer tokens.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRes struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ctxUserKey is the request-context key for the authenticated admin name.
type ctxUserKey struct{}

// handleLogin checks the admin credentials and issues a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth.PasswordHash == "" {
		http.Error(w, `{"error":"login_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Username) != s.auth.User || !checkPassword(s.auth.PasswordHash, body.Password) {
		log.Warn().Str("user", body.Username).Msg("admin login failed")
		http.Error(w, `{"error":"Invalid username or password"}`, http.StatusUnauthorized)
		return
	}
	tok, exp, err := s.signJWT(s.auth.User)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(loginRes{Token: tok, ExpiresAt: exp})
}

// signJWT issues an HS256 token for username.
func (s *Server) signJWT(username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.auth.Expires)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := token.SignedString(s.auth.Secret)
	return ss, exp, err
}

// requireAuth enforces a valid bearer token for the configured admin.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return s.auth.Secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			username, _ := claims["username"].(string)
			if username == "" || username != s.auth.User {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// adminFrom returns the admin name requireAuth put on the context.
func adminFrom(ctx context.Context) string {
	u, _ := ctx.Value(ctxUserKey{}).(string)
	return u
}

// bearerToken extracts "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
