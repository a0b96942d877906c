package protocolo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSequencer implementa Sequencer sobre a tabela protocolo_sequencias.
// O upsert em um único comando serializa os incrementos por ano no
// próprio Postgres: o row lock do UPDATE garante que cada chamada veja o
// valor anterior já confirmado.
type PgSequencer struct {
	pool *pgxpool.Pool
}

// NewPgSequencer cria a sequência persistente.
func NewPgSequencer(pool *pgxpool.Pool) *PgSequencer {
	return &PgSequencer{pool: pool}
}

// Proximo incrementa e devolve a sequência do ano.
func (s *PgSequencer) Proximo(ctx context.Context, ano int) (int64, error) {
	const query = `
        INSERT INTO protocolo_sequencias (ano, ultimo_numero)
        VALUES ($1, 1)
        ON CONFLICT (ano)
        DO UPDATE SET ultimo_numero = protocolo_sequencias.ultimo_numero + 1
        RETURNING ultimo_numero
    `

	var seq int64
	if err := s.pool.QueryRow(ctx, query, ano).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}
