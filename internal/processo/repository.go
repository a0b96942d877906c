package processo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const processoColumns = `
        id, numero_protocolo, ano, tipo_processo_id, assunto, interessado,
        cpf_cnpj_interessado, especificacao, status, nivel_acesso, prioridade,
        setor_atual_id, usuario_responsavel_id, observacoes, prazo_dias,
        data_prazo, data_autuacao, data_conclusao, bloqueado, motivo_bloqueio,
        bloqueado_por, bloqueado_em, criado_por, criado_em, atualizado_em`

// PgRepository provê acesso à tabela de processos.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository cria instância do repositório.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Create insere o processo com o número de protocolo já emitido.
func (r *PgRepository) Create(ctx context.Context, input CreateInput, numeroProtocolo string, ano int, dataPrazo *time.Time, criadoPor int64) (*Processo, error) {
	query := fmt.Sprintf(`
        INSERT INTO processos (
            numero_protocolo, ano, tipo_processo_id, assunto, interessado,
            cpf_cnpj_interessado, especificacao, status, nivel_acesso,
            prioridade, setor_atual_id, usuario_responsavel_id, observacoes,
            prazo_dias, data_prazo, criado_por
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING %s
    `, processoColumns)

	row := r.pool.QueryRow(ctx, query,
		numeroProtocolo,
		ano,
		input.TipoProcessoID,
		strings.TrimSpace(input.Assunto),
		input.Interessado,
		input.CpfCnpjInteressado,
		input.Especificacao,
		StatusAberto,
		input.NivelAcesso,
		input.Prioridade,
		input.SetorAtualID,
		input.UsuarioResponsavelID,
		input.Observacoes,
		input.PrazoDias,
		dataPrazo,
		criadoPor,
	)

	p, err := scanProcesso(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "numero_protocolo") {
			return nil, ErrProtocoloDuplicado
		}
		return nil, err
	}
	return p, nil
}

// Get busca um processo específico.
func (r *PgRepository) Get(ctx context.Context, id int64) (*Processo, error) {
	query := fmt.Sprintf(`SELECT %s FROM processos WHERE id = $1`, processoColumns)
	return scanProcesso(r.pool.QueryRow(ctx, query, id))
}

// GetByProtocolo busca pelo número de protocolo.
func (r *PgRepository) GetByProtocolo(ctx context.Context, numero string) (*Processo, error) {
	query := fmt.Sprintf(`SELECT %s FROM processos WHERE numero_protocolo = $1`, processoColumns)
	return scanProcesso(r.pool.QueryRow(ctx, query, numero))
}

// List aplica filtros em conjunção e devolve itens paginados mais o
// total de registros que casam com os filtros.
func (r *PgRepository) List(ctx context.Context, filtros Filtros, limit, offset int) ([]Processo, int64, error) {
	var (
		clauses []string
		args    []any
		idx     = 1
	)

	addClause := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}

	if filtros.NumeroProtocolo != "" {
		addClause("numero_protocolo ILIKE $%d", "%"+filtros.NumeroProtocolo+"%")
	}
	if filtros.Assunto != "" {
		addClause("assunto ILIKE $%d", "%"+filtros.Assunto+"%")
	}
	if filtros.Interessado != "" {
		addClause("interessado ILIKE $%d", "%"+filtros.Interessado+"%")
	}
	if filtros.TipoProcessoID != nil {
		addClause("tipo_processo_id = $%d", *filtros.TipoProcessoID)
	}
	if filtros.Status != "" {
		addClause("status = $%d", filtros.Status)
	}
	if filtros.SetorAtualID != nil {
		addClause("setor_atual_id = $%d", *filtros.SetorAtualID)
	}
	if filtros.CriadoPor != nil {
		addClause("criado_por = $%d", *filtros.CriadoPor)
	}
	if filtros.Prioridade != "" {
		addClause("prioridade = $%d", filtros.Prioridade)
	}
	if filtros.DataInicio != nil {
		addClause("data_autuacao >= $%d", *filtros.DataInicio)
	}
	if filtros.DataFim != nil {
		addClause("data_autuacao <= $%d", *filtros.DataFim)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM processos" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s FROM processos%s ORDER BY data_autuacao DESC LIMIT $%d OFFSET $%d",
		processoColumns, where, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var processos []Processo
	for rows.Next() {
		p, err := scanProcesso(rows)
		if err != nil {
			return nil, 0, err
		}
		processos = append(processos, *p)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return processos, total, nil
}

// Update monta o SET dinamicamente com os campos informados.
func (r *PgRepository) Update(ctx context.Context, id int64, input UpdateInput) (*Processo, error) {
	var (
		setParts []string
		args     []any
		idx      = 1
	)

	set := func(column string, value any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if input.Assunto != nil {
		set("assunto", strings.TrimSpace(*input.Assunto))
	}
	if input.Interessado != nil {
		set("interessado", *input.Interessado)
	}
	if input.CpfCnpjInteressado != nil {
		set("cpf_cnpj_interessado", *input.CpfCnpjInteressado)
	}
	if input.Especificacao != nil {
		set("especificacao", *input.Especificacao)
	}
	if input.Status != nil {
		set("status", *input.Status)
	}
	if input.NivelAcesso != nil {
		set("nivel_acesso", *input.NivelAcesso)
	}
	if input.Prioridade != nil {
		set("prioridade", *input.Prioridade)
	}
	if input.SetorAtualID != nil {
		set("setor_atual_id", *input.SetorAtualID)
	}
	if input.UsuarioResponsavelID != nil {
		set("usuario_responsavel_id", *input.UsuarioResponsavelID)
	}
	if input.Observacoes != nil {
		set("observacoes", *input.Observacoes)
	}
	if input.PrazoDias != nil {
		set("prazo_dias", *input.PrazoDias)
		set("data_prazo", input.DataPrazo)
	}

	if len(setParts) == 0 {
		return r.Get(ctx, id)
	}

	setParts = append(setParts, "atualizado_em = now()")
	args = append(args, id)

	query := fmt.Sprintf(`
        UPDATE processos
        SET %s
        WHERE id = $%d
        RETURNING %s
    `, strings.Join(setParts, ", "), idx, processoColumns)

	return scanProcesso(r.pool.QueryRow(ctx, query, args...))
}

// SetConclusao grava status e data de conclusão em conjunto, mantendo o
// invariante de que concluído implica data preenchida e vice-versa.
func (r *PgRepository) SetConclusao(ctx context.Context, id int64, status string, dataConclusao *time.Time) (*Processo, error) {
	query := fmt.Sprintf(`
        UPDATE processos
        SET status = $1, data_conclusao = $2, atualizado_em = now()
        WHERE id = $3
        RETURNING %s
    `, processoColumns)

	return scanProcesso(r.pool.QueryRow(ctx, query, status, dataConclusao, id))
}

// SetBloqueio grava a tríade de bloqueio de uma vez.
func (r *PgRepository) SetBloqueio(ctx context.Context, id int64, bloqueado bool, motivo *string, por *int64, em *time.Time) (*Processo, error) {
	query := fmt.Sprintf(`
        UPDATE processos
        SET bloqueado = $1, motivo_bloqueio = $2, bloqueado_por = $3,
            bloqueado_em = $4, atualizado_em = now()
        WHERE id = $5
        RETURNING %s
    `, processoColumns)

	return scanProcesso(r.pool.QueryRow(ctx, query, bloqueado, motivo, por, em, id))
}

// ListRelevantes une processos criados pelo usuário com os tramitados
// para o setor dele em uma única consulta.
func (r *PgRepository) ListRelevantes(ctx context.Context, usuarioID int64, setorID *int64) ([]Processo, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM processos
        WHERE criado_por = $1
           OR ($2::bigint IS NOT NULL AND id IN (
                SELECT processo_id FROM tramitacoes WHERE setor_destino_id = $2
           ))
        ORDER BY criado_em DESC
    `, processoColumns)

	rows, err := r.pool.Query(ctx, query, usuarioID, setorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var processos []Processo
	for rows.Next() {
		p, err := scanProcesso(rows)
		if err != nil {
			return nil, err
		}
		processos = append(processos, *p)
	}
	return processos, rows.Err()
}

// ListTiposAtivos lista os tipos de processo disponíveis para autuação.
func (r *PgRepository) ListTiposAtivos(ctx context.Context) ([]TipoProcesso, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, nome, descricao, cor, ativo, criado_em
		FROM tipos_processo
		WHERE ativo
		ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("listar tipos de processo: %w", err)
	}
	defer rows.Close()

	tipos := []TipoProcesso{}
	for rows.Next() {
		var t TipoProcesso
		if err := rows.Scan(&t.ID, &t.Nome, &t.Descricao, &t.Cor, &t.Ativo, &t.CriadoEm); err != nil {
			return nil, fmt.Errorf("ler tipo de processo: %w", err)
		}
		tipos = append(tipos, t)
	}
	return tipos, rows.Err()
}

func scanProcesso(row pgx.Row) (*Processo, error) {
	var p Processo
	err := row.Scan(
		&p.ID, &p.NumeroProtocolo, &p.Ano, &p.TipoProcessoID, &p.Assunto,
		&p.Interessado, &p.CpfCnpjInteressado, &p.Especificacao, &p.Status,
		&p.NivelAcesso, &p.Prioridade, &p.SetorAtualID, &p.UsuarioResponsavelID,
		&p.Observacoes, &p.PrazoDias, &p.DataPrazo, &p.DataAutuacao,
		&p.DataConclusao, &p.Bloqueado, &p.MotivoBloqueio, &p.BloqueadoPor,
		&p.BloqueadoEm, &p.CriadoPor, &p.CriadoEm, &p.AtualizadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNaoEncontrado
		}
		return nil, err
	}
	return &p, nil
}
