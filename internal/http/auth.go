package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cbbasquete/processos/internal/auth"
	httpmiddleware "github.com/cbbasquete/processos/internal/http/middleware"
	"github.com/cbbasquete/processos/internal/usuario"
)

// Login autentica por email e senha e devolve o par de tokens.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Senha) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.usuarios.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Register cadastra um novo usuário.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome     string  `json:"nome"`
		Email    string  `json:"email"`
		Senha    string  `json:"senha"`
		SetorID  *int64  `json:"setor_id"`
		Cargo    *string `json:"cargo"`
		CPF      *string `json:"cpf"`
		Telefone *string `json:"telefone"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	u, err := h.usuarios.Register(r.Context(), usuario.RegisterInput{
		Nome:     payload.Nome,
		Email:    payload.Email,
		Senha:    payload.Senha,
		SetorID:  payload.SetorID,
		Cargo:    payload.Cargo,
		CPF:      payload.CPF,
		Telefone: payload.Telefone,
	})
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, u)
}

// Refresh rotaciona o refresh token e emite novo par.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := refreshFromRequest(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.usuarios.Refresh(r.Context(), token)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Logout revoga o refresh token atual. Sempre responde sucesso.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := refreshFromRequest(r); ok {
		_ = h.usuarios.Logout(r.Context(), token)
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna o perfil do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	usuarioID := httpmiddleware.GetUsuarioID(r.Context())

	u, err := h.usuarios.Get(r.Context(), usuarioID)
	if err != nil {
		if errors.Is(err, usuario.ErrNaoEncontrado) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "usuário não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar perfil", nil)
		return
	}

	WriteJSON(w, http.StatusOK, u)
}

func refreshFromRequest(r *http.Request) (string, bool) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return "", false
	}
	token := strings.TrimSpace(payload.RefreshToken)
	return token, token != ""
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usuario.ErrCredenciaisInvalidas):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, usuario.ErrContaDesativada):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidRefresh):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, usuario.ErrEmailEmUso):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, usuario.ErrValidacao):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}
