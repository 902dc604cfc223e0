package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type AuthConfig struct {
	Disabled      bool
	Token         string
	BasicUsername string
	BasicPassword string
}

const (
	schemeToken = "token"
	schemeBasic = "basic"
)

// Auth пропускает запрос с заголовком "Token <t>" или "Basic <base64(user:pass)>".
// Нет заголовка или неизвестная схема - 401, неверные данные - 403.
func Auth(cfg AuthConfig, logger *zap.Logger) func(next http.Handler) http.Handler {
	basic := ""
	if cfg.BasicUsername != "" || cfg.BasicPassword != "" {
		basic = base64.StdEncoding.EncodeToString([]byte(cfg.BasicUsername + ":" + cfg.BasicPassword))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Disabled {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "Authorization Required", http.StatusUnauthorized)
				return
			}

			scheme, value, _ := strings.Cut(header, " ")
			value = strings.TrimSpace(value)

			var expected string
			switch strings.ToLower(scheme) {
			case schemeToken:
				expected = cfg.Token
			case schemeBasic:
				expected = basic
			default:
				http.Error(w, "Authorization Required", http.StatusUnauthorized)
				return
			}

			if expected == "" || subtle.ConstantTimeCompare([]byte(value), []byte(expected)) != 1 {
				logger.Info("rejecting request, wrong credentials",
					zap.String("scheme", strings.ToLower(scheme)),
					zap.String("path", r.URL.Path),
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
