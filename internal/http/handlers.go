package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/cbbasquete/processos/internal/http/middleware"
	"github.com/cbbasquete/processos/internal/setor"
)

// ListSetores lista os setores ativos para montagem de telas de envio.
func (h *Handler) ListSetores(w http.ResponseWriter, r *http.Request) {
	setores, err := h.setores.ListAtivos(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar setores", nil)
		return
	}

	WriteJSON(w, http.StatusOK, setores)
}

// GetSetor retorna um setor pelo id.
func (h *Handler) GetSetor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	s, err := h.setores.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, setor.ErrNaoEncontrado) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "setor não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar setor", nil)
		return
	}

	WriteJSON(w, http.StatusOK, s)
}

// DashboardStats agrega os contadores da tela inicial para o usuário logado.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	usuarioID := httpmiddleware.GetUsuarioID(r.Context())

	var setorID *int64
	if id, ok := httpmiddleware.GetSetorID(r.Context()); ok {
		setorID = &id
	}

	stats, err := h.dashboard.Stats(r.Context(), usuarioID, setorID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível calcular indicadores", nil)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
