package tramitacao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cbbasquete/processos/internal/db"
	"github.com/cbbasquete/processos/internal/processo"
)

const tramitacaoColumns = `id, processo_id, setor_origem_id, setor_destino_id, tipo_tramitacao,
	observacao, data_envio, data_recebimento, enviado_por, recebido_por,
	status_aprovacao, aprovado_por, data_aprovacao, motivo_rejeicao, criado_em`

// PgRepository persiste tramitações no Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Criar insere a tramitação e move o processo para o setor de destino
// em uma única transação. O UPDATE do processo é condicionado ao setor
// de origem lido pelo serviço: se outro envio chegou antes, nenhuma
// linha é afetada e a transação aborta com ErrConflito.
func (r *PgRepository) Criar(ctx context.Context, t *Tramitacao) (*Tramitacao, error) {
	var criada *Tramitacao

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO tramitacoes (processo_id, setor_origem_id, setor_destino_id,
				tipo_tramitacao, observacao, data_envio, enviado_por, status_aprovacao)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+tramitacaoColumns,
			t.ProcessoID, t.SetorOrigemID, t.SetorDestinoID, t.TipoTramitacao,
			t.Observacao, t.DataEnvio, t.EnviadoPor, t.StatusAprovacao,
		)
		nova, err := scanTramitacao(row)
		if err != nil {
			return fmt.Errorf("inserir tramitação: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE processos
			SET setor_atual_id = $1, status = $2, atualizado_em = now()
			WHERE id = $3
			  AND setor_atual_id IS NOT DISTINCT FROM $4
			  AND NOT bloqueado`,
			t.SetorDestinoID, processo.StatusEmTramite, t.ProcessoID, t.SetorOrigemID,
		)
		if err != nil {
			return fmt.Errorf("atualizar setor do processo: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrConflito
		}

		criada = nova
		return nil
	})
	if err != nil {
		return nil, err
	}
	return criada, nil
}

func (r *PgRepository) Get(ctx context.Context, id int64) (*Tramitacao, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tramitacaoColumns+` FROM tramitacoes WHERE id = $1`, id)
	return scanTramitacao(row)
}

// ListByProcesso devolve o histórico do processo, mais recentes
// primeiro. O id desempata envios com o mesmo timestamp.
func (r *PgRepository) ListByProcesso(ctx context.Context, processoID int64) ([]Tramitacao, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tramitacaoColumns+`
		FROM tramitacoes
		WHERE processo_id = $1
		ORDER BY data_envio DESC, id DESC`, processoID)
	if err != nil {
		return nil, fmt.Errorf("listar tramitações: %w", err)
	}
	defer rows.Close()

	itens := []Tramitacao{}
	for rows.Next() {
		t, err := scanTramitacao(rows)
		if err != nil {
			return nil, err
		}
		itens = append(itens, *t)
	}
	return itens, rows.Err()
}

// Resolver grava o desfecho da aprovação. A condição de pendência no
// WHERE garante resolução única mesmo com dois aprovadores simultâneos.
func (r *PgRepository) Resolver(ctx context.Context, id int64, status string, por int64, em time.Time, motivo *string) (*Tramitacao, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tramitacoes
		SET status_aprovacao = $2, aprovado_por = $3, data_aprovacao = $4, motivo_rejeicao = $5
		WHERE id = $1 AND status_aprovacao = $6
		RETURNING `+tramitacaoColumns,
		id, status, por, em, motivo, AprovacaoPendente)

	t, err := scanTramitacao(row)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrada) {
			return nil, r.classificaResolucao(ctx, id)
		}
		return nil, err
	}
	return t, nil
}

// RejeitarComDevolucao marca a tramitação como rejeitada e cria o
// despacho de devolução na mesma transação. Sem setor de origem não há
// para onde devolver; apenas a rejeição é gravada.
func (r *PgRepository) RejeitarComDevolucao(ctx context.Context, original *Tramitacao, motivo string, por int64, em time.Time) (*Tramitacao, error) {
	var rejeitada *Tramitacao

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE tramitacoes
			SET status_aprovacao = $2, aprovado_por = $3, data_aprovacao = $4, motivo_rejeicao = $5
			WHERE id = $1 AND status_aprovacao = $6
			RETURNING `+tramitacaoColumns,
			original.ID, AprovacaoRejeitado, por, em, motivo, AprovacaoPendente)

		t, err := scanTramitacao(row)
		if err != nil {
			if errors.Is(err, ErrNaoEncontrada) {
				return r.classificaResolucao(ctx, original.ID)
			}
			return err
		}

		if original.SetorOrigemID != nil {
			observacao := "REJEITADO: " + motivo
			_, err = tx.Exec(ctx, `
				INSERT INTO tramitacoes (processo_id, setor_origem_id, setor_destino_id,
					tipo_tramitacao, observacao, data_envio, enviado_por, status_aprovacao)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				original.ProcessoID, original.SetorDestinoID, *original.SetorOrigemID,
				TipoDespacho, observacao, em, por, AprovacaoPendente,
			)
			if err != nil {
				return fmt.Errorf("criar devolução: %w", err)
			}
		}

		rejeitada = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejeitada, nil
}

// Receber carimba o recebimento uma única vez.
func (r *PgRepository) Receber(ctx context.Context, id int64, por int64, em time.Time) (*Tramitacao, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tramitacoes
		SET data_recebimento = $2, recebido_por = $3
		WHERE id = $1 AND data_recebimento IS NULL
		RETURNING `+tramitacaoColumns,
		id, em, por)

	t, err := scanTramitacao(row)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrada) {
			if _, getErr := r.Get(ctx, id); getErr == nil {
				return nil, ErrJaRecebida
			}
			return nil, ErrNaoEncontrada
		}
		return nil, err
	}
	return t, nil
}

// classificaResolucao distingue tramitação inexistente de tramitação já
// resolvida quando o UPDATE condicional não afeta linhas.
func (r *PgRepository) classificaResolucao(ctx context.Context, id int64) error {
	if _, err := r.Get(ctx, id); err != nil {
		return ErrNaoEncontrada
	}
	return ErrJaResolvida
}

func scanTramitacao(row pgx.Row) (*Tramitacao, error) {
	var t Tramitacao
	err := row.Scan(
		&t.ID, &t.ProcessoID, &t.SetorOrigemID, &t.SetorDestinoID, &t.TipoTramitacao,
		&t.Observacao, &t.DataEnvio, &t.DataRecebimento, &t.EnviadoPor, &t.RecebidoPor,
		&t.StatusAprovacao, &t.AprovadoPor, &t.DataAprovacao, &t.MotivoRejeicao, &t.CriadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNaoEncontrada
		}
		return nil, fmt.Errorf("ler tramitação: %w", err)
	}
	return &t, nil
}
