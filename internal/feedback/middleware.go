// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package feedback

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/logging"
)

type actorKey struct{}

// actorFromContext returns the authenticated caller's identity, or "" if
// the sink is running in AuthMode "none".
func actorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// authClaims are the JWT claims the bearer auth mode expects.
type authClaims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Authenticate builds the auth middleware for the sink's configured mode.
// "none" passes every request through with an empty actor. "bearer"
// validates an HS256 JWT. "basic" checks a single configured username
// against a bcrypt hash — enough for a small editorial desk, not a
// multi-user directory.
func Authenticate(cfg config.FeedbackConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch cfg.AuthMode {
			case "", "none":
				next.ServeHTTP(w, r)
				return
			case "bearer":
				actor, err := authenticateBearer(cfg, r)
				if err != nil {
					logging.Warn().Err(err).Msg("feedback: bearer auth rejected")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
				return
			case "basic":
				actor, err := authenticateBasic(cfg, r)
				if err != nil {
					w.Header().Set("WWW-Authenticate", `Basic realm="radar-feedback"`)
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
				return
			default:
				http.Error(w, "server misconfigured: unknown auth_mode", http.StatusInternalServerError)
			}
		})
	}
}

func authenticateBearer(cfg config.FeedbackConfig, r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", jwt.ErrTokenMalformed
	}
	raw := strings.TrimPrefix(header, prefix)

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

func authenticateBasic(cfg config.FeedbackConfig, r *http.Request) (string, error) {
	username, password, ok := r.BasicAuth()
	if !ok || username != cfg.BasicUsername {
		return "", jwt.ErrTokenMalformed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.BasicPasswordHash), []byte(password)); err != nil {
		return "", err
	}
	return username, nil
}

// RateLimit caps requests per caller IP over the configured window.
func RateLimit(cfg config.FeedbackConfig) func(http.Handler) http.Handler {
	reqs := cfg.RateLimitReqs
	if reqs <= 0 {
		reqs = 60
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(reqs, window, httprate.WithKeyFuncs(httprate.KeyByIP))
}

// CORS builds the sink's CORS policy. An empty origin list means no
// cross-origin access is permitted — the sink is same-origin by default.
func CORS(cfg config.FeedbackConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if len(cfg.CORSOrigins) == 0 {
		// go-chi/cors reads an empty AllowedOrigins as "allow all".
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return false }
	}
	return cors.Handler(opts)
}
