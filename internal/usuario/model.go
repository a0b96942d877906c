package usuario

import (
	"errors"
	"time"
)

var (
	ErrNaoEncontrado        = errors.New("usuário não encontrado")
	ErrCredenciaisInvalidas = errors.New("credenciais inválidas")
	ErrContaDesativada      = errors.New("conta desativada")
	ErrEmailEmUso           = errors.New("e-mail já cadastrado")
	ErrValidacao            = errors.New("dados inválidos")
)

// Usuario é um servidor autenticável, opcionalmente lotado em um setor.
type Usuario struct {
	ID           int64      `json:"id"`
	Nome         string     `json:"nome"`
	Email        string     `json:"email"`
	SenhaHash    string     `json:"-"`
	SetorID      *int64     `json:"setor_id,omitempty"`
	Cargo        *string    `json:"cargo,omitempty"`
	CPF          *string    `json:"cpf,omitempty"`
	Telefone     *string    `json:"telefone,omitempty"`
	FotoURL      *string    `json:"foto_url,omitempty"`
	Ativo        bool       `json:"ativo"`
	UltimoAcesso *time.Time `json:"ultimo_acesso,omitempty"`
	CriadoEm     time.Time  `json:"criado_em"`
}

// RegisterInput reúne os campos de cadastro.
type RegisterInput struct {
	Nome     string
	Email    string
	Senha    string
	SetorID  *int64
	Cargo    *string
	CPF      *string
	Telefone *string
}

// LoginResult devolve tokens e o perfil autenticado.
type LoginResult struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	Usuario      *Usuario `json:"usuario"`
}
