package usuario

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usuarioColumns = `id, nome, email, senha_hash, setor_id, cargo, cpf, telefone,
	foto_url, ativo, ultimo_acesso, criado_em`

// PgRepository provê acesso à tabela de usuários.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, u *Usuario) (*Usuario, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO usuarios (nome, email, senha_hash, setor_id, cargo, cpf, telefone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+usuarioColumns,
		u.Nome, u.Email, u.SenhaHash, u.SetorID, u.Cargo, u.CPF, u.Telefone,
	)
	criado, err := scanUsuario(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailEmUso
		}
		return nil, fmt.Errorf("inserir usuário: %w", err)
	}
	return criado, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Usuario, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+usuarioColumns+` FROM usuarios WHERE id = $1`, id)
	return scanUsuario(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*Usuario, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+usuarioColumns+` FROM usuarios WHERE lower(email) = lower($1)`, email)
	return scanUsuario(row)
}

func (r *PgRepository) TouchUltimoAcesso(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE usuarios SET ultimo_acesso = now() WHERE id = $1`, id)
	return err
}

func scanUsuario(row pgx.Row) (*Usuario, error) {
	var u Usuario
	err := row.Scan(
		&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &u.SetorID, &u.Cargo, &u.CPF,
		&u.Telefone, &u.FotoURL, &u.Ativo, &u.UltimoAcesso, &u.CriadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNaoEncontrado
		}
		return nil, fmt.Errorf("ler usuário: %w", err)
	}
	return &u, nil
}
