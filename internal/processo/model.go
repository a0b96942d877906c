package processo

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNaoEncontrado = errors.New("processo não encontrado")
	ErrBloqueado     = errors.New("processo bloqueado")
	ErrJaConcluido   = errors.New("processo já está concluído")
	ErrNaoConcluido  = errors.New("processo não está concluído")
	ErrSemAlteracao  = errors.New("nenhum campo para atualizar")
	ErrValidacao     = errors.New("dados inválidos")
)

const (
	StatusAberto    = "aberto"
	StatusEmTramite = "em_tramite"
	StatusConcluido = "concluido"
	StatusArquivado = "arquivado"

	NivelPublico  = "publico"
	NivelRestrito = "restrito"
	NivelSigiloso = "sigiloso"

	PrioridadeBaixa   = "baixa"
	PrioridadeNormal  = "normal"
	PrioridadeAlta    = "alta"
	PrioridadeUrgente = "urgente"
)

var (
	validStatuses = map[string]struct{}{
		StatusAberto:    {},
		StatusEmTramite: {},
		StatusConcluido: {},
		StatusArquivado: {},
	}
	validNiveis = map[string]struct{}{
		NivelPublico:  {},
		NivelRestrito: {},
		NivelSigiloso: {},
	}
	validPrioridades = map[string]struct{}{
		PrioridadeBaixa:   {},
		PrioridadeNormal:  {},
		PrioridadeAlta:    {},
		PrioridadeUrgente: {},
	}
)

// Processo representa um processo administrativo autuado com número de
// protocolo único.
type Processo struct {
	ID                   int64      `json:"id"`
	NumeroProtocolo      string     `json:"numero_protocolo"`
	Ano                  int        `json:"ano"`
	TipoProcessoID       int64      `json:"tipo_processo_id"`
	Assunto              string     `json:"assunto"`
	Interessado          *string    `json:"interessado,omitempty"`
	CpfCnpjInteressado   *string    `json:"cpf_cnpj_interessado,omitempty"`
	Especificacao        *string    `json:"especificacao,omitempty"`
	Status               string     `json:"status"`
	NivelAcesso          string     `json:"nivel_acesso"`
	Prioridade           string     `json:"prioridade"`
	SetorAtualID         *int64     `json:"setor_atual_id,omitempty"`
	UsuarioResponsavelID *int64     `json:"usuario_responsavel_id,omitempty"`
	Observacoes          *string    `json:"observacoes,omitempty"`
	PrazoDias            *int       `json:"prazo_dias,omitempty"`
	DataPrazo            *time.Time `json:"data_prazo,omitempty"`
	DataAutuacao         time.Time  `json:"data_autuacao"`
	DataConclusao        *time.Time `json:"data_conclusao,omitempty"`
	Bloqueado            bool       `json:"bloqueado"`
	MotivoBloqueio       *string    `json:"motivo_bloqueio,omitempty"`
	BloqueadoPor         *int64     `json:"bloqueado_por,omitempty"`
	BloqueadoEm          *time.Time `json:"bloqueado_em,omitempty"`
	CriadoPor            int64      `json:"criado_por"`
	CriadoEm             time.Time  `json:"criado_em"`
	AtualizadoEm         time.Time  `json:"atualizado_em"`
}

// CreateInput encapsula campos para autuação de um novo processo.
type CreateInput struct {
	TipoProcessoID       int64
	Assunto              string
	Interessado          *string
	CpfCnpjInteressado   *string
	Especificacao        *string
	NivelAcesso          string
	Prioridade           string
	SetorAtualID         *int64
	UsuarioResponsavelID *int64
	Observacoes          *string
	PrazoDias            *int
}

// UpdateInput permite atualização parcial; campos nil não são tocados.
type UpdateInput struct {
	Assunto              *string
	Interessado          *string
	CpfCnpjInteressado   *string
	Especificacao        *string
	Status               *string
	NivelAcesso          *string
	Prioridade           *string
	SetorAtualID         *int64
	UsuarioResponsavelID *int64
	Observacoes          *string
	PrazoDias            *int
	DataPrazo            *time.Time
}

// Empty indica se nenhum campo foi informado.
func (u UpdateInput) Empty() bool {
	return u.Assunto == nil && u.Interessado == nil && u.CpfCnpjInteressado == nil &&
		u.Especificacao == nil && u.Status == nil && u.NivelAcesso == nil &&
		u.Prioridade == nil && u.SetorAtualID == nil && u.UsuarioResponsavelID == nil &&
		u.Observacoes == nil && u.PrazoDias == nil
}

// Filtros aplica conjunção de condições na listagem.
type Filtros struct {
	NumeroProtocolo string
	Assunto         string
	Interessado     string
	TipoProcessoID  *int64
	Status          string
	SetorAtualID    *int64
	CriadoPor       *int64
	Prioridade      string
	DataInicio      *time.Time
	DataFim         *time.Time
}

// TipoProcesso classifica o processo na autuação.
type TipoProcesso struct {
	ID        int64     `json:"id"`
	Nome      string    `json:"nome"`
	Descricao *string   `json:"descricao,omitempty"`
	Cor       string    `json:"cor"`
	Ativo     bool      `json:"ativo"`
	CriadoEm  time.Time `json:"criado_em"`
}

// NormalizeStatus garante padrão em letras minúsculas.
func NormalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return StatusAberto
	}
	return status
}

// NormalizeNivelAcesso padroniza nível de acesso.
func NormalizeNivelAcesso(nivel string) string {
	nivel = strings.ToLower(strings.TrimSpace(nivel))
	if nivel == "" {
		return NivelPublico
	}
	return nivel
}

// NormalizePrioridade padroniza prioridade.
func NormalizePrioridade(prioridade string) string {
	prioridade = strings.ToLower(strings.TrimSpace(prioridade))
	if prioridade == "" {
		return PrioridadeNormal
	}
	return prioridade
}

// IsValidStatus indica se o status é aceito.
func IsValidStatus(status string) bool {
	_, ok := validStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// IsValidNivelAcesso indica se o nível de acesso é aceito.
func IsValidNivelAcesso(nivel string) bool {
	_, ok := validNiveis[strings.ToLower(strings.TrimSpace(nivel))]
	return ok
}

// IsValidPrioridade indica se prioridade é válida.
func IsValidPrioridade(prioridade string) bool {
	_, ok := validPrioridades[strings.ToLower(strings.TrimSpace(prioridade))]
	return ok
}
