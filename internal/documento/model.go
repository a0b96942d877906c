package documento

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

var (
	ErrNaoEncontrado  = errors.New("documento não encontrado")
	ErrSemAlteracao   = errors.New("nenhum campo para atualizar")
	ErrCancelado      = errors.New("documento está cancelado")
	ErrJaAssinado     = errors.New("documento já foi assinado pelo usuário")
	ErrSemConteudo    = errors.New("documento não possui conteúdo para assinar")
	ErrSenhaIncorreta = errors.New("senha incorreta")
	ErrValidacao      = errors.New("dados inválidos")
)

const (
	TipoGerado  = "gerado"
	TipoExterno = "externo"
	TipoAnexo   = "anexo"

	StatusAtivo       = "ativo"
	StatusCancelado   = "cancelado"
	StatusSubstituido = "substituido"

	AssinaturaEletronica = "eletronica"
)

var (
	validTipos = map[string]struct{}{
		TipoGerado:  {},
		TipoExterno: {},
		TipoAnexo:   {},
	}
	validStatuses = map[string]struct{}{
		StatusAtivo:       {},
		StatusCancelado:   {},
		StatusSubstituido: {},
	}
)

// Documento pertence a um processo. Documentos gerados carregam
// conteúdo HTML inline; externos e anexos apontam para um arquivo no
// armazenamento de blobs.
type Documento struct {
	ID               int64      `json:"id"`
	ProcessoID       int64      `json:"processo_id"`
	TipoDocumento    string     `json:"tipo_documento"`
	Nome             string     `json:"nome"`
	Descricao        *string    `json:"descricao,omitempty"`
	NumeroDocumento  *string    `json:"numero_documento,omitempty"`
	DataDocumento    *time.Time `json:"data_documento,omitempty"`
	NumeroExterno    *string    `json:"numero_externo,omitempty"`
	Remetente        *string    `json:"remetente,omitempty"`
	NivelAcesso      string     `json:"nivel_acesso"`
	RequerAssinatura bool       `json:"requer_assinatura"`
	Ordem            int        `json:"ordem"`
	ConteudoHTML     *string    `json:"conteudo_html,omitempty"`
	ArquivoURL       *string    `json:"arquivo_url,omitempty"`
	ArquivoNome      *string    `json:"arquivo_nome,omitempty"`
	ArquivoTamanho   *int64     `json:"arquivo_tamanho,omitempty"`
	ArquivoTipo      *string    `json:"arquivo_tipo,omitempty"`
	ArquivoHash      *string    `json:"arquivo_hash,omitempty"`
	Status             string     `json:"status"`
	Assinado           bool       `json:"assinado"`
	MotivoCancelamento *string    `json:"motivo_cancelamento,omitempty"`
	CanceladoPor       *int64     `json:"cancelado_por,omitempty"`
	CanceladoEm        *time.Time `json:"cancelado_em,omitempty"`
	CriadoPor          int64      `json:"criado_por"`
	CriadoEm           time.Time  `json:"criado_em"`
	AtualizadoEm       time.Time  `json:"atualizado_em"`
}

// Assinatura registra a assinatura eletrônica de um documento,
// vinculada ao hash do conteúdo no momento em que foi feita.
type Assinatura struct {
	ID             int64     `json:"id"`
	DocumentoID    int64     `json:"documento_id"`
	UsuarioID      int64     `json:"usuario_id"`
	NomeAssinante  string    `json:"nome_assinante"`
	CpfAssinante   *string   `json:"cpf_assinante,omitempty"`
	CargoFuncao    *string   `json:"cargo_funcao,omitempty"`
	TipoAssinatura string    `json:"tipo_assinatura"`
	HashDocumento  string    `json:"hash_documento"`
	AssinadoEm     time.Time `json:"assinado_em"`
	Valido         bool      `json:"valido"`
}

// CreateInput reúne campos para criação de um documento gerado ou
// registrado manualmente.
type CreateInput struct {
	ProcessoID       int64
	TipoDocumento    string
	Nome             string
	Descricao        *string
	NumeroDocumento  *string
	DataDocumento    *time.Time
	NumeroExterno    *string
	Remetente        *string
	NivelAcesso      string
	RequerAssinatura bool
	Ordem            int
	ConteudoHTML     *string
}

// UploadInput reúne metadados do arquivo enviado.
type UploadInput struct {
	ProcessoID    int64
	TipoDocumento string
	Nome          string
	Descricao     *string
	NomeOriginal  string
	ContentType   string
	Conteudo      []byte
}

// UpdateInput permite atualização parcial; campos nil não são tocados.
type UpdateInput struct {
	Nome         *string
	Descricao    *string
	ConteudoHTML *string
	NivelAcesso  *string
}

// Empty indica se nenhum campo foi informado.
func (u UpdateInput) Empty() bool {
	return u.Nome == nil && u.Descricao == nil && u.ConteudoHTML == nil && u.NivelAcesso == nil
}

// Fingerprint calcula o hash SHA-256 do conteúdo em hexadecimal. É o
// valor gravado em arquivo_hash e referenciado pelas assinaturas.
func Fingerprint(conteudo []byte) string {
	sum := sha256.Sum256(conteudo)
	return hex.EncodeToString(sum[:])
}

// NormalizeTipo padroniza o tipo de documento.
func NormalizeTipo(tipo string) string {
	tipo = strings.ToLower(strings.TrimSpace(tipo))
	if tipo == "" {
		return TipoAnexo
	}
	return tipo
}

// IsValidTipo indica se o tipo de documento é aceito.
func IsValidTipo(tipo string) bool {
	_, ok := validTipos[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}

// IsValidStatus indica se o status de documento é aceito.
func IsValidStatus(status string) bool {
	_, ok := validStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}
