package processo

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/cbbasquete/processos/internal/http/middleware"
	"github.com/cbbasquete/processos/internal/protocolo"
)

// Handler orquestra rotas de processos.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tipos-processo", h.handleTipos)
	r.Route("/processos", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/relevantes", h.handleRelevantes)
		r.Get("/protocolo/{numero}", h.handleGetByProtocolo)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Post("/{id}/concluir", h.handleConcluir)
		r.Post("/{id}/reabrir", h.handleReabrir)
		r.Post("/{id}/bloquear", h.handleBloquear)
		r.Post("/{id}/desbloquear", h.handleDesbloquear)
	})
}

type createPayload struct {
	TipoProcessoID       int64   `json:"tipo_processo_id"`
	Assunto              string  `json:"assunto"`
	Interessado          *string `json:"interessado"`
	CpfCnpjInteressado   *string `json:"cpf_cnpj_interessado"`
	Especificacao        *string `json:"especificacao"`
	NivelAcesso          string  `json:"nivel_acesso"`
	Prioridade           string  `json:"prioridade"`
	SetorAtualID         *int64  `json:"setor_atual_id"`
	UsuarioResponsavelID *int64  `json:"usuario_responsavel_id"`
	Observacoes          *string `json:"observacoes"`
	PrazoDias            *int    `json:"prazo_dias"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	p, err := h.service.Create(ctx, CreateInput{
		TipoProcessoID:       payload.TipoProcessoID,
		Assunto:              payload.Assunto,
		Interessado:          payload.Interessado,
		CpfCnpjInteressado:   payload.CpfCnpjInteressado,
		Especificacao:        payload.Especificacao,
		NivelAcesso:          payload.NivelAcesso,
		Prioridade:           payload.Prioridade,
		SetorAtualID:         payload.SetorAtualID,
		UsuarioResponsavelID: payload.UsuarioResponsavelID,
		Observacoes:          payload.Observacoes,
		PrazoDias:            payload.PrazoDias,
	}, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(r, "POST /processos", usuarioID, start)
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetByProtocolo(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	if strings.TrimSpace(numero) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "número de protocolo obrigatório", nil)
		return
	}

	p, err := h.service.GetByProtocolo(r.Context(), numero)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filtros := Filtros{
		NumeroProtocolo: strings.TrimSpace(q.Get("numero_protocolo")),
		Assunto:         strings.TrimSpace(q.Get("assunto")),
		Interessado:     strings.TrimSpace(q.Get("interessado")),
		Status:          strings.TrimSpace(q.Get("status")),
		Prioridade:      strings.TrimSpace(q.Get("prioridade")),
	}
	v, err := int64Query(q.Get("tipo_processo_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "tipo_processo_id inválido", nil)
		return
	}
	filtros.TipoProcessoID = v

	v, err = int64Query(q.Get("setor_atual_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "setor_atual_id inválido", nil)
		return
	}
	filtros.SetorAtualID = v

	v, err = int64Query(q.Get("criado_por"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "criado_por inválido", nil)
		return
	}
	filtros.CriadoPor = v
	if raw := q.Get("data_inicio"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data_inicio inválida", nil)
			return
		}
		filtros.DataInicio = &t
	}
	if raw := q.Get("data_fim"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data_fim inválida", nil)
			return
		}
		filtros.DataFim = &t
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	itens, total, err := h.service.List(ctx, filtros, limit, offset)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"itens": itens, "total": total})
}

func (h *Handler) handleRelevantes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	var setorID *int64
	if setor, ok := httpmiddleware.GetSetorID(ctx); ok {
		setorID = &setor
	}

	itens, err := h.service.Relevantes(ctx, usuarioID, setorID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"itens": itens})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var payload struct {
		Assunto              *string `json:"assunto"`
		Interessado          *string `json:"interessado"`
		CpfCnpjInteressado   *string `json:"cpf_cnpj_interessado"`
		Especificacao        *string `json:"especificacao"`
		Status               *string `json:"status"`
		NivelAcesso          *string `json:"nivel_acesso"`
		Prioridade           *string `json:"prioridade"`
		SetorAtualID         *int64  `json:"setor_atual_id"`
		UsuarioResponsavelID *int64  `json:"usuario_responsavel_id"`
		Observacoes          *string `json:"observacoes"`
		PrazoDias            *int    `json:"prazo_dias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	p, err := h.service.Update(ctx, id, UpdateInput{
		Assunto:              payload.Assunto,
		Interessado:          payload.Interessado,
		CpfCnpjInteressado:   payload.CpfCnpjInteressado,
		Especificacao:        payload.Especificacao,
		Status:               payload.Status,
		NivelAcesso:          payload.NivelAcesso,
		Prioridade:           payload.Prioridade,
		SetorAtualID:         payload.SetorAtualID,
		UsuarioResponsavelID: payload.UsuarioResponsavelID,
		Observacoes:          payload.Observacoes,
		PrazoDias:            payload.PrazoDias,
	}, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(r, "PUT /processos", usuarioID, start)
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleConcluir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.Concluir(ctx, id, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleReabrir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.Reabrir(ctx, id, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleBloquear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

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

	p, err := h.service.Bloquear(ctx, id, payload.Motivo, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDesbloquear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.Desbloquear(ctx, id, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleTipos(w http.ResponseWriter, r *http.Request) {
	tipos, err := h.service.Tipos(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"itens": tipos})
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "processo inválido", nil)
		return 0, false
	}
	return id, true
}

func int64Query(raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNaoEncontrado):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "processo não encontrado", nil)
	case errors.Is(err, ErrBloqueado):
		writeError(w, http.StatusLocked, "LOCKED", "processo bloqueado", nil)
	case errors.Is(err, ErrJaConcluido):
		writeError(w, http.StatusConflict, "ALREADY_CONCLUDED", "processo já está concluído", nil)
	case errors.Is(err, ErrNaoConcluido):
		writeError(w, http.StatusConflict, "NOT_CONCLUDED", "processo não está concluído", nil)
	case errors.Is(err, ErrSemAlteracao):
		writeError(w, http.StatusBadRequest, "NO_OP", "nenhum campo para atualizar", nil)
	case errors.Is(err, ErrValidacao):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, protocolo.ErrAlocacao):
		writeError(w, http.StatusServiceUnavailable, "ALLOCATION", "não foi possível gerar número de protocolo", nil)
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("processo handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

func logRequest(r *http.Request, label string, usuarioID int64, start time.Time) {
	log.Info().Str("label", label).Int64("usuario_id", usuarioID).
		Dur("duration", time.Since(start)).Msg("processo_request")
}

// Helpers de resposta JSON compatíveis com o resto do projeto.
type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
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
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: payload, Error: nil})
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Data: nil, Error: &errorResponse{Code: code, Message: message, Details: details}})
}
