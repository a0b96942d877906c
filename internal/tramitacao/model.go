package tramitacao

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNaoEncontrada = errors.New("tramitação não encontrada")
	ErrMesmoSetor    = errors.New("setor de destino igual ao setor atual")
	ErrJaResolvida   = errors.New("tramitação já foi resolvida")
	ErrJaRecebida    = errors.New("tramitação já foi recebida")
	ErrSemPermissao  = errors.New("usuário não pertence ao setor de destino")
	ErrValidacao     = errors.New("dados inválidos")

	// ErrConflito indica que o processo mudou de setor entre a leitura
	// e a gravação da tramitação.
	ErrConflito = errors.New("processo alterado durante a tramitação")
)

const (
	TipoDespacho  = "despacho"
	TipoParecer   = "parecer"
	TipoAprovacao = "aprovacao"

	AprovacaoPendente  = "pendente"
	AprovacaoAprovado  = "aprovado"
	AprovacaoRejeitado = "rejeitado"
)

var validTipos = map[string]struct{}{
	TipoDespacho:  {},
	TipoParecer:   {},
	TipoAprovacao: {},
}

// Tramitacao registra a transferência de um processo entre setores.
// O histórico é imutável: registros nunca são apagados, apenas
// resolvidos (aprovado/rejeitado) ou recebidos.
type Tramitacao struct {
	ID              int64      `json:"id"`
	ProcessoID      int64      `json:"processo_id"`
	SetorOrigemID   *int64     `json:"setor_origem_id,omitempty"`
	SetorDestinoID  int64      `json:"setor_destino_id"`
	TipoTramitacao  string     `json:"tipo_tramitacao"`
	Observacao      *string    `json:"observacao,omitempty"`
	DataEnvio       time.Time  `json:"data_envio"`
	DataRecebimento *time.Time `json:"data_recebimento,omitempty"`
	EnviadoPor      int64      `json:"enviado_por"`
	RecebidoPor     *int64     `json:"recebido_por,omitempty"`
	StatusAprovacao string     `json:"status_aprovacao"`
	AprovadoPor     *int64     `json:"aprovado_por,omitempty"`
	DataAprovacao   *time.Time `json:"data_aprovacao,omitempty"`
	MotivoRejeicao  *string    `json:"motivo_rejeicao,omitempty"`
	CriadoEm        time.Time  `json:"criado_em"`
}

// TramitarInput carrega os dados de um novo envio.
type TramitarInput struct {
	SetorDestinoID int64
	TipoTramitacao string
	Observacao     *string
}

// NormalizeTipo padroniza o tipo, com despacho como padrão.
func NormalizeTipo(tipo string) string {
	tipo = strings.ToLower(strings.TrimSpace(tipo))
	if tipo == "" {
		return TipoDespacho
	}
	return tipo
}

// IsValidTipo indica se o tipo de tramitação é aceito.
func IsValidTipo(tipo string) bool {
	_, ok := validTipos[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}
