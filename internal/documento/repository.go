package documento

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cbbasquete/processos/internal/db"
)

const documentoColumns = `id, processo_id, tipo_documento, nome, descricao, numero_documento,
	data_documento, numero_externo, remetente, nivel_acesso, requer_assinatura, ordem,
	conteudo_html, arquivo_url, arquivo_nome, arquivo_tamanho, arquivo_tipo, arquivo_hash,
	status, assinado, motivo_cancelamento, cancelado_por, cancelado_em,
	criado_por, criado_em, atualizado_em`

const assinaturaColumns = `id, documento_id, usuario_id, nome_assinante, cpf_assinante,
	cargo_funcao, tipo_assinatura, hash_documento, assinado_em, valido`

// PgRepository persiste documentos e assinaturas no Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, d *Documento) (*Documento, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO documentos (processo_id, tipo_documento, nome, descricao, numero_documento,
			data_documento, numero_externo, remetente, nivel_acesso, requer_assinatura, ordem,
			conteudo_html, arquivo_url, arquivo_nome, arquivo_tamanho, arquivo_tipo, arquivo_hash,
			status, criado_por)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+documentoColumns,
		d.ProcessoID, d.TipoDocumento, d.Nome, d.Descricao, d.NumeroDocumento,
		d.DataDocumento, d.NumeroExterno, d.Remetente, d.NivelAcesso, d.RequerAssinatura, d.Ordem,
		d.ConteudoHTML, d.ArquivoURL, d.ArquivoNome, d.ArquivoTamanho, d.ArquivoTipo, d.ArquivoHash,
		d.Status, d.CriadoPor,
	)
	criado, err := scanDocumento(row)
	if err != nil {
		return nil, fmt.Errorf("inserir documento: %w", err)
	}
	return criado, nil
}

func (r *PgRepository) Get(ctx context.Context, id int64) (*Documento, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+documentoColumns+` FROM documentos WHERE id = $1`, id)
	return scanDocumento(row)
}

// ListAtivos filtra documentos cancelados e ordena pela posição
// definida na peça processual, com criação como desempate.
func (r *PgRepository) ListAtivos(ctx context.Context, processoID int64) ([]Documento, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentoColumns+`
		FROM documentos
		WHERE processo_id = $1 AND status = $2
		ORDER BY ordem, criado_em`, processoID, StatusAtivo)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	defer rows.Close()

	itens := []Documento{}
	for rows.Next() {
		d, err := scanDocumento(rows)
		if err != nil {
			return nil, err
		}
		itens = append(itens, *d)
	}
	return itens, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, id int64, input UpdateInput, novoHash *string) (*Documento, error) {
	set := []string{}
	args := []any{}
	add := func(coluna string, valor any) {
		args = append(args, valor)
		set = append(set, coluna+" = $"+strconv.Itoa(len(args)))
	}

	if input.Nome != nil {
		add("nome", *input.Nome)
	}
	if input.Descricao != nil {
		add("descricao", *input.Descricao)
	}
	if input.ConteudoHTML != nil {
		add("conteudo_html", *input.ConteudoHTML)
		add("arquivo_hash", novoHash)
	}
	if input.NivelAcesso != nil {
		add("nivel_acesso", *input.NivelAcesso)
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}
	set = append(set, "atualizado_em = now()")

	args = append(args, id)
	query := "UPDATE documentos SET " + strings.Join(set, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + documentoColumns

	return scanDocumento(r.pool.QueryRow(ctx, query, args...))
}

func (r *PgRepository) Cancelar(ctx context.Context, id int64, motivo string, por int64, em time.Time) (*Documento, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE documentos
		SET status = $2, motivo_cancelamento = $3, cancelado_por = $4, cancelado_em = $5,
			atualizado_em = now()
		WHERE id = $1
		RETURNING `+documentoColumns,
		id, StatusCancelado, motivo, por, em)
	return scanDocumento(row)
}

// Reordenar grava posição por índice na lista. O filtro por processo
// faz ids alheios não afetarem linha alguma.
func (r *PgRepository) Reordenar(ctx context.Context, processoID int64, ordem []int64) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		for idx, documentoID := range ordem {
			_, err := tx.Exec(ctx, `
				UPDATE documentos SET ordem = $1, atualizado_em = now()
				WHERE id = $2 AND processo_id = $3`,
				idx, documentoID, processoID)
			if err != nil {
				return fmt.Errorf("reordenar documento %d: %w", documentoID, err)
			}
		}
		return nil
	})
}

// CriarAssinatura insere a assinatura e marca o documento como
// assinado na mesma transação.
func (r *PgRepository) CriarAssinatura(ctx context.Context, a *Assinatura) (*Assinatura, error) {
	var criada *Assinatura

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO assinaturas (documento_id, usuario_id, nome_assinante, cpf_assinante,
				cargo_funcao, tipo_assinatura, hash_documento, assinado_em, valido)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+assinaturaColumns,
			a.DocumentoID, a.UsuarioID, a.NomeAssinante, a.CpfAssinante,
			a.CargoFuncao, a.TipoAssinatura, a.HashDocumento, a.AssinadoEm, a.Valido,
		)
		nova, err := scanAssinatura(row)
		if err != nil {
			return fmt.Errorf("inserir assinatura: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE documentos SET assinado = TRUE, atualizado_em = now()
			WHERE id = $1`, a.DocumentoID); err != nil {
			return fmt.Errorf("marcar documento assinado: %w", err)
		}

		criada = nova
		return nil
	})
	if err != nil {
		return nil, err
	}
	return criada, nil
}

func (r *PgRepository) ListAssinaturas(ctx context.Context, documentoID int64) ([]Assinatura, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assinaturaColumns+`
		FROM assinaturas
		WHERE documento_id = $1
		ORDER BY assinado_em`, documentoID)
	if err != nil {
		return nil, fmt.Errorf("listar assinaturas: %w", err)
	}
	defer rows.Close()

	itens := []Assinatura{}
	for rows.Next() {
		a, err := scanAssinatura(rows)
		if err != nil {
			return nil, err
		}
		itens = append(itens, *a)
	}
	return itens, rows.Err()
}

func (r *PgRepository) TemAssinatura(ctx context.Context, documentoID, usuarioID int64) (bool, error) {
	var existe bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM assinaturas WHERE documento_id = $1 AND usuario_id = $2 AND valido
		)`, documentoID, usuarioID).Scan(&existe)
	if err != nil {
		return false, fmt.Errorf("consultar assinatura: %w", err)
	}
	return existe, nil
}

func scanDocumento(row pgx.Row) (*Documento, error) {
	var d Documento
	err := row.Scan(
		&d.ID, &d.ProcessoID, &d.TipoDocumento, &d.Nome, &d.Descricao, &d.NumeroDocumento,
		&d.DataDocumento, &d.NumeroExterno, &d.Remetente, &d.NivelAcesso, &d.RequerAssinatura, &d.Ordem,
		&d.ConteudoHTML, &d.ArquivoURL, &d.ArquivoNome, &d.ArquivoTamanho, &d.ArquivoTipo, &d.ArquivoHash,
		&d.Status, &d.Assinado, &d.MotivoCancelamento, &d.CanceladoPor, &d.CanceladoEm,
		&d.CriadoPor, &d.CriadoEm, &d.AtualizadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNaoEncontrado
		}
		return nil, fmt.Errorf("ler documento: %w", err)
	}
	return &d, nil
}

func scanAssinatura(row pgx.Row) (*Assinatura, error) {
	var a Assinatura
	err := row.Scan(
		&a.ID, &a.DocumentoID, &a.UsuarioID, &a.NomeAssinante, &a.CpfAssinante,
		&a.CargoFuncao, &a.TipoAssinatura, &a.HashDocumento, &a.AssinadoEm, &a.Valido,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("assinatura não encontrada")
		}
		return nil, fmt.Errorf("ler assinatura: %w", err)
	}
	return &a, nil
}
