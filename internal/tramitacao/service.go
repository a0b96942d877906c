package tramitacao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cbbasquete/processos/internal/processo"
)

// Repository provê persistência de tramitações. Criar grava o registro
// e atualiza o setor atual e o status do processo na mesma transação;
// devolve ErrConflito quando o processo mudou de setor ou foi bloqueado
// entre a leitura e a gravação.
type Repository interface {
	Criar(ctx context.Context, t *Tramitacao) (*Tramitacao, error)
	Get(ctx context.Context, id int64) (*Tramitacao, error)
	ListByProcesso(ctx context.Context, processoID int64) ([]Tramitacao, error)
	Resolver(ctx context.Context, id int64, status string, por int64, em time.Time, motivo *string) (*Tramitacao, error)
	RejeitarComDevolucao(ctx context.Context, original *Tramitacao, motivo string, por int64, em time.Time) (*Tramitacao, error)
	Receber(ctx context.Context, id int64, por int64, em time.Time) (*Tramitacao, error)
}

// ProcessoStore é a fatia do serviço de processos que a tramitação
// precisa enxergar.
type ProcessoStore interface {
	Get(ctx context.Context, id int64) (*processo.Processo, error)
}

// Service reúne as regras de envio, aprovação e devolução.
type Service struct {
	repo      Repository
	processos ProcessoStore
	now       func() time.Time
}

func NewService(repo Repository, processos ProcessoStore) *Service {
	return &Service{repo: repo, processos: processos, now: time.Now}
}

// Tramitar envia o processo para outro setor. A origem é sempre o
// setor atual do processo no momento do envio; processos bloqueados
// não tramitam.
func (s *Service) Tramitar(ctx context.Context, processoID int64, input TramitarInput, enviadoPor int64) (*Tramitacao, error) {
	if input.SetorDestinoID <= 0 {
		return nil, fmt.Errorf("%w: setor de destino obrigatório", ErrValidacao)
	}
	input.TipoTramitacao = NormalizeTipo(input.TipoTramitacao)
	if !IsValidTipo(input.TipoTramitacao) {
		return nil, fmt.Errorf("%w: tipo de tramitação inválido", ErrValidacao)
	}

	p, err := s.processos.Get(ctx, processoID)
	if err != nil {
		return nil, err
	}
	if p.Bloqueado {
		return nil, processo.ErrBloqueado
	}
	if p.SetorAtualID != nil && *p.SetorAtualID == input.SetorDestinoID {
		return nil, ErrMesmoSetor
	}

	t := &Tramitacao{
		ProcessoID:      processoID,
		SetorOrigemID:   p.SetorAtualID,
		SetorDestinoID:  input.SetorDestinoID,
		TipoTramitacao:  input.TipoTramitacao,
		Observacao:      input.Observacao,
		DataEnvio:       s.now().UTC(),
		EnviadoPor:      enviadoPor,
		StatusAprovacao: AprovacaoPendente,
	}
	return s.repo.Criar(ctx, t)
}

// Get busca uma tramitação pelo id.
func (s *Service) Get(ctx context.Context, id int64) (*Tramitacao, error) {
	return s.repo.Get(ctx, id)
}

// Historico lista as tramitações do processo, mais recentes primeiro.
func (s *Service) Historico(ctx context.Context, processoID int64) ([]Tramitacao, error) {
	if _, err := s.processos.Get(ctx, processoID); err != nil {
		return nil, err
	}
	return s.repo.ListByProcesso(ctx, processoID)
}

// Aprovar resolve a tramitação. Somente quem está no setor de destino
// pode aprovar, e apenas uma vez.
func (s *Service) Aprovar(ctx context.Context, id int64, usuarioID int64, setorID *int64) (*Tramitacao, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if setorID == nil || *setorID != t.SetorDestinoID {
		return nil, ErrSemPermissao
	}
	if t.StatusAprovacao != AprovacaoPendente {
		return nil, ErrJaResolvida
	}

	return s.repo.Resolver(ctx, id, AprovacaoAprovado, usuarioID, s.now().UTC(), nil)
}

// Rejeitar resolve a tramitação como rejeitada e, na mesma transação,
// devolve o processo ao setor de origem com um novo despacho pendente
// anotado com o motivo.
func (s *Service) Rejeitar(ctx context.Context, id int64, motivo string, usuarioID int64, setorID *int64) (*Tramitacao, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, fmt.Errorf("%w: motivo obrigatório", ErrValidacao)
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if setorID == nil || *setorID != t.SetorDestinoID {
		return nil, ErrSemPermissao
	}
	if t.StatusAprovacao != AprovacaoPendente {
		return nil, ErrJaResolvida
	}

	return s.repo.RejeitarComDevolucao(ctx, t, motivo, usuarioID, s.now().UTC())
}

// Receber carimba o recebimento pelo setor de destino.
func (s *Service) Receber(ctx context.Context, id int64, usuarioID int64, setorID *int64) (*Tramitacao, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if setorID == nil || *setorID != t.SetorDestinoID {
		return nil, ErrSemPermissao
	}
	if t.DataRecebimento != nil {
		return nil, ErrJaRecebida
	}

	return s.repo.Receber(ctx, id, usuarioID, s.now().UTC())
}
