package tramitacao

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/cbbasquete/processos/internal/http/middleware"
	"github.com/cbbasquete/processos/internal/processo"
)

// Handler orquestra rotas de tramitação.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/processos/{id}/tramitar", h.handleTramitar)
	r.Get("/processos/{id}/tramitacoes", h.handleHistorico)
	r.Route("/tramitacoes/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/aprovar", h.handleAprovar)
		r.Post("/rejeitar", h.handleRejeitar)
		r.Post("/receber", h.handleReceber)
	})
}

func (h *Handler) handleTramitar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	processoID, ok := idParam(w, r)
	if !ok {
		return
	}

	var payload struct {
		SetorDestinoID int64   `json:"setor_destino_id"`
		TipoTramitacao string  `json:"tipo_tramitacao"`
		Observacao     *string `json:"observacao"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	t, err := h.service.Tramitar(ctx, processoID, TramitarInput{
		SetorDestinoID: payload.SetorDestinoID,
		TipoTramitacao: payload.TipoTramitacao,
		Observacao:     payload.Observacao,
	}, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleHistorico(w http.ResponseWriter, r *http.Request) {
	processoID, ok := idParam(w, r)
	if !ok {
		return
	}

	itens, err := h.service.Historico(r.Context(), processoID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"itens": itens})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleAprovar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)
	setorID := setorDoContexto(ctx)

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	t, err := h.service.Aprovar(ctx, id, usuarioID, setorID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleRejeitar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)
	setorID := setorDoContexto(ctx)

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var payload struct {
		Motivo string `json:"motivo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	t, err := h.service.Rejeitar(ctx, id, payload.Motivo, usuarioID, setorID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleReceber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)
	setorID := setorDoContexto(ctx)

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	t, err := h.service.Receber(ctx, id, usuarioID, setorID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func setorDoContexto(ctx context.Context) *int64 {
	if setor, ok := httpmiddleware.GetSetorID(ctx); ok {
		return &setor
	}
	return nil
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identificador inválido", nil)
		return 0, false
	}
	return id, true
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNaoEncontrada):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "tramitação não encontrada", nil)
	case errors.Is(err, processo.ErrNaoEncontrado):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "processo não encontrado", nil)
	case errors.Is(err, processo.ErrBloqueado):
		writeError(w, http.StatusLocked, "LOCKED", "processo bloqueado", nil)
	case errors.Is(err, ErrMesmoSetor):
		writeError(w, http.StatusConflict, "INVALID_ROUTE", "setor de destino igual ao setor atual", nil)
	case errors.Is(err, ErrJaResolvida):
		writeError(w, http.StatusConflict, "ALREADY_RESOLVED", "tramitação já foi resolvida", nil)
	case errors.Is(err, ErrJaRecebida):
		writeError(w, http.StatusConflict, "ALREADY_RECEIVED", "tramitação já foi recebida", nil)
	case errors.Is(err, ErrConflito):
		writeError(w, http.StatusConflict, "CONFLICT", "processo alterado durante a tramitação", nil)
	case errors.Is(err, ErrSemPermissao):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "usuário não pertence ao setor de destino", nil)
	case errors.Is(err, ErrValidacao):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("tramitacao handler error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

type envelope struct {
	Data  any            `json:"data"`
	Error *errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: payload})
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorResponse{Code: code, Message: message, Details: details}})
}
