package setor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNaoEncontrado = errors.New("setor não encontrado")

// Setor é a unidade organizacional que detém e recebe processos.
type Setor struct {
	ID          int64     `json:"id"`
	Nome        string    `json:"nome"`
	Sigla       string    `json:"sigla"`
	Descricao   *string   `json:"descricao,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Responsavel *string   `json:"responsavel,omitempty"`
	Ativo       bool      `json:"ativo"`
	CriadoEm    time.Time `json:"criado_em"`
}

const setorColumns = `id, nome, sigla, descricao, email, responsavel, ativo, criado_em`

// PgRepository provê acesso de leitura à tabela de setores.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// ListAtivos lista os setores ativos em ordem alfabética.
func (r *PgRepository) ListAtivos(ctx context.Context) ([]Setor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+setorColumns+` FROM setores WHERE ativo ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("listar setores: %w", err)
	}
	defer rows.Close()

	setores := []Setor{}
	for rows.Next() {
		var s Setor
		if err := rows.Scan(&s.ID, &s.Nome, &s.Sigla, &s.Descricao, &s.Email, &s.Responsavel, &s.Ativo, &s.CriadoEm); err != nil {
			return nil, fmt.Errorf("ler setor: %w", err)
		}
		setores = append(setores, s)
	}
	return setores, rows.Err()
}

// Get busca um setor pelo id, ativo ou não.
func (r *PgRepository) Get(ctx context.Context, id int64) (*Setor, error) {
	var s Setor
	err := r.pool.QueryRow(ctx,
		`SELECT `+setorColumns+` FROM setores WHERE id = $1`, id).
		Scan(&s.ID, &s.Nome, &s.Sigla, &s.Descricao, &s.Email, &s.Responsavel, &s.Ativo, &s.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNaoEncontrado
		}
		return nil, fmt.Errorf("buscar setor: %w", err)
	}
	return &s, nil
}
