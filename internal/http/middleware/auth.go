package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cbbasquete/processos/internal/auth"
)

type contextKey string

const (
	ContextKeyUsuario contextKey = "usuario"
	ContextKeySetor   contextKey = "setor"
)

// Auth valida JWT de acesso e injeta usuário e setor no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			usuarioID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || usuarioID <= 0 {
				writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUsuario, usuarioID)
			if claims.SetorID != nil {
				ctx = context.WithValue(ctx, ContextKeySetor, *claims.SetorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsuarioID recupera o id do usuário autenticado; zero quando ausente.
func GetUsuarioID(ctx context.Context) int64 {
	val, _ := ctx.Value(ContextKeyUsuario).(int64)
	return val
}

// GetSetorID recupera o setor de lotação do usuário; (0, false) quando ausente.
func GetSetorID(ctx context.Context) (int64, bool) {
	val, ok := ctx.Value(ContextKeySetor).(int64)
	return val, ok
}

// WithUsuario injeta identificação no contexto (uso em testes).
func WithUsuario(ctx context.Context, usuarioID int64, setorID *int64) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUsuario, usuarioID)
	if setorID != nil {
		ctx = context.WithValue(ctx, ContextKeySetor, *setorID)
	}
	return ctx
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
