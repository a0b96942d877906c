package documento

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/cbbasquete/processos/internal/http/middleware"
	"github.com/cbbasquete/processos/internal/processo"
	"github.com/cbbasquete/processos/internal/storage"
)

// Limite de upload de arquivos de documento.
const maxUploadBytes = 25 << 20

// Handler orquestra rotas de documentos.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/processos/{processoID}/documentos", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Post("/upload", h.handleUpload)
		r.Put("/reordenar", h.handleReordenar)
	})
	r.Route("/documentos/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Post("/cancelar", h.handleCancelar)
		r.Post("/assinar", h.handleAssinar)
		r.Get("/assinaturas", h.handleAssinaturas)
	})
}

type createPayload struct {
	TipoDocumento    string  `json:"tipo_documento"`
	Nome             string  `json:"nome"`
	Descricao        *string `json:"descricao"`
	NumeroDocumento  *string `json:"numero_documento"`
	DataDocumento    *string `json:"data_documento"`
	NumeroExterno    *string `json:"numero_externo"`
	Remetente        *string `json:"remetente"`
	NivelAcesso      string  `json:"nivel_acesso"`
	RequerAssinatura bool    `json:"requer_assinatura"`
	Ordem            int     `json:"ordem"`
	ConteudoHTML     *string `json:"conteudo_html"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	processoID, ok := int64Param(w, r, "processoID")
	if !ok {
		return
	}

	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	var dataDocumento *time.Time
	if payload.DataDocumento != nil && *payload.DataDocumento != "" {
		t, err := time.Parse("2006-01-02", *payload.DataDocumento)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data_documento inválida", nil)
			return
		}
		dataDocumento = &t
	}

	d, err := h.service.Create(ctx, CreateInput{
		ProcessoID:       processoID,
		TipoDocumento:    payload.TipoDocumento,
		Nome:             payload.Nome,
		Descricao:        payload.Descricao,
		NumeroDocumento:  payload.NumeroDocumento,
		DataDocumento:    dataDocumento,
		NumeroExterno:    payload.NumeroExterno,
		Remetente:        payload.Remetente,
		NivelAcesso:      payload.NivelAcesso,
		RequerAssinatura: payload.RequerAssinatura,
		Ordem:            payload.Ordem,
		ConteudoHTML:     payload.ConteudoHTML,
	}, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	processoID, ok := int64Param(w, r, "processoID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "formulário multipart inválido", nil)
		return
	}

	arquivo, header, err := r.FormFile("arquivo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "arquivo obrigatório", nil)
		return
	}
	defer arquivo.Close()

	conteudo, err := io.ReadAll(io.LimitReader(arquivo, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "falha ao ler arquivo", nil)
		return
	}
	if len(conteudo) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "VALIDATION", "arquivo excede o limite de 25MB", nil)
		return
	}

	var descricao *string
	if v := r.FormValue("descricao"); v != "" {
		descricao = &v
	}

	d, err := h.service.Upload(ctx, UploadInput{
		ProcessoID:    processoID,
		TipoDocumento: r.FormValue("tipo_documento"),
		Nome:          r.FormValue("nome"),
		Descricao:     descricao,
		NomeOriginal:  header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Conteudo:      conteudo,
	}, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	processoID, ok := int64Param(w, r, "processoID")
	if !ok {
		return
	}

	itens, err := h.service.List(r.Context(), processoID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"itens": itens})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var payload struct {
		Nome         *string `json:"nome"`
		Descricao    *string `json:"descricao"`
		ConteudoHTML *string `json:"conteudo_html"`
		NivelAcesso  *string `json:"nivel_acesso"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	d, err := h.service.Update(ctx, id, UpdateInput{
		Nome:         payload.Nome,
		Descricao:    payload.Descricao,
		ConteudoHTML: payload.ConteudoHTML,
		NivelAcesso:  payload.NivelAcesso,
	}, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleCancelar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	id, ok := int64Param(w, r, "id")
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

	d, err := h.service.Cancelar(ctx, id, payload.Motivo, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleReordenar(w http.ResponseWriter, r *http.Request) {
	processoID, ok := int64Param(w, r, "processoID")
	if !ok {
		return
	}

	var payload struct {
		Ordem []int64 `json:"ordem"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if err := h.service.Reordenar(r.Context(), processoID, payload.Ordem); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reordenado": true})
}

func (h *Handler) handleAssinar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarioID := httpmiddleware.GetUsuarioID(ctx)

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var payload struct {
		Senha       string  `json:"senha"`
		CargoFuncao *string `json:"cargo_funcao"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	a, err := h.service.Assinar(ctx, id, payload.Senha, payload.CargoFuncao, usuarioID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleAssinaturas(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	itens, err := h.service.Assinaturas(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"itens": itens})
}

func int64Param(w http.ResponseWriter, r *http.Request, nome string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, nome), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identificador inválido", nil)
		return 0, false
	}
	return id, true
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNaoEncontrado):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "documento não encontrado", nil)
	case errors.Is(err, processo.ErrNaoEncontrado):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "processo não encontrado", nil)
	case errors.Is(err, ErrCancelado):
		writeError(w, http.StatusConflict, "CANCELLED", "documento está cancelado", nil)
	case errors.Is(err, ErrJaAssinado):
		writeError(w, http.StatusConflict, "ALREADY_SIGNED", "documento já foi assinado pelo usuário", nil)
	case errors.Is(err, ErrSemConteudo):
		writeError(w, http.StatusConflict, "NO_CONTENT", "documento não possui conteúdo para assinar", nil)
	case errors.Is(err, ErrSemAlteracao):
		writeError(w, http.StatusBadRequest, "NO_OP", "nenhum campo para atualizar", nil)
	case errors.Is(err, ErrSenhaIncorreta):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "senha incorreta", nil)
	case errors.Is(err, ErrValidacao):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, storage.ErrEnvio), errors.Is(err, storage.ErrNaoConfigurado):
		writeError(w, http.StatusBadGateway, "STORAGE", "falha no armazenamento de arquivos", nil)
	default:
		log.Error().Err(err).Msg("documento handler error")
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
