package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository monta os agregados em consultas diretas sobre o pool.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Stats(ctx context.Context, usuarioID int64, setorID *int64) (*Stats, error) {
	var stats Stats

	// Agregados de processos em uma passada só com COUNT ... FILTER.
	row := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'aberto'),
			COUNT(*) FILTER (WHERE status = 'em_tramite'),
			COUNT(*) FILTER (WHERE status = 'concluido'),
			COUNT(*) FILTER (WHERE criado_por = $1),
			COUNT(*) FILTER (WHERE $2::BIGINT IS NOT NULL AND setor_atual_id = $2)
		FROM processos`,
		usuarioID, setorID,
	)
	err := row.Scan(
		&stats.TotalProcessos,
		&stats.ProcessosAbertos,
		&stats.ProcessosEmTramite,
		&stats.ProcessosConcluidos,
		&stats.MeusProcessos,
		&stats.ProcessosMeuSetor,
	)
	if err != nil {
		return nil, fmt.Errorf("agregar processos: %w", err)
	}

	row = r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tramitacoes
		WHERE status_aprovacao = 'pendente'
		  AND $1::BIGINT IS NOT NULL
		  AND setor_destino_id = $1`,
		setorID,
	)
	if err := row.Scan(&stats.PendentesAprovacao); err != nil {
		return nil, fmt.Errorf("agregar tramitações pendentes: %w", err)
	}

	row = r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM documentos
		WHERE requer_assinatura
		  AND NOT assinado
		  AND status = 'ativo'`,
	)
	if err := row.Scan(&stats.PendentesAssinatura); err != nil {
		return nil, fmt.Errorf("agregar assinaturas pendentes: %w", err)
	}

	return &stats, nil
}
