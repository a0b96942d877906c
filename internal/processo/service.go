package processo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cbbasquete/processos/internal/protocolo"
)

// Repository provê persistência de processos. Create devolve
// ErrProtocoloDuplicado quando o número gerado colidir com um já
// emitido, permitindo nova tentativa de alocação.
type Repository interface {
	Create(ctx context.Context, input CreateInput, numeroProtocolo string, ano int, dataPrazo *time.Time, criadoPor int64) (*Processo, error)
	Get(ctx context.Context, id int64) (*Processo, error)
	GetByProtocolo(ctx context.Context, numero string) (*Processo, error)
	List(ctx context.Context, filtros Filtros, limit, offset int) ([]Processo, int64, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*Processo, error)
	SetConclusao(ctx context.Context, id int64, status string, dataConclusao *time.Time) (*Processo, error)
	SetBloqueio(ctx context.Context, id int64, bloqueado bool, motivo *string, por *int64, em *time.Time) (*Processo, error)
	ListRelevantes(ctx context.Context, usuarioID int64, setorID *int64) ([]Processo, error)
	ListTiposAtivos(ctx context.Context) ([]TipoProcesso, error)
}

// ErrProtocoloDuplicado sinaliza colisão de numero_protocolo no insert.
var ErrProtocoloDuplicado = errors.New("número de protocolo duplicado")

// Service reúne as regras de negócio de processos.
type Service struct {
	repo      Repository
	allocator *protocolo.Allocator
	now       func() time.Time
}

// NewService cria o serviço com o alocador de protocolos.
func NewService(repo Repository, allocator *protocolo.Allocator) *Service {
	return &Service{repo: repo, allocator: allocator, now: time.Now}
}

// Create autua um novo processo, emitindo número de protocolo do ano
// corrente. Em colisão de número a alocação é repetida dentro do limite
// do alocador antes de desistir.
func (s *Service) Create(ctx context.Context, input CreateInput, criadoPor int64) (*Processo, error) {
	input.Assunto = strings.TrimSpace(input.Assunto)
	if input.Assunto == "" {
		return nil, fmt.Errorf("%w: assunto obrigatório", ErrValidacao)
	}
	if input.TipoProcessoID <= 0 {
		return nil, fmt.Errorf("%w: tipo de processo obrigatório", ErrValidacao)
	}

	input.NivelAcesso = NormalizeNivelAcesso(input.NivelAcesso)
	if !IsValidNivelAcesso(input.NivelAcesso) {
		return nil, fmt.Errorf("%w: nível de acesso inválido", ErrValidacao)
	}
	input.Prioridade = NormalizePrioridade(input.Prioridade)
	if !IsValidPrioridade(input.Prioridade) {
		return nil, fmt.Errorf("%w: prioridade inválida", ErrValidacao)
	}
	if input.PrazoDias != nil && *input.PrazoDias <= 0 {
		return nil, fmt.Errorf("%w: prazo em dias deve ser positivo", ErrValidacao)
	}

	now := s.now().UTC()
	ano := now.Year()

	var dataPrazo *time.Time
	if input.PrazoDias != nil {
		prazo := now.AddDate(0, 0, *input.PrazoDias)
		dataPrazo = &prazo
	}

	for tentativa := 0; tentativa < s.allocator.MaxRetries(); tentativa++ {
		numero, err := s.allocator.Allocate(ctx, ano)
		if err != nil {
			return nil, fmt.Errorf("alocação de protocolo: %w", err)
		}

		p, err := s.repo.Create(ctx, input, numero, ano, dataPrazo, criadoPor)
		if err != nil {
			if errors.Is(err, ErrProtocoloDuplicado) {
				continue
			}
			return nil, err
		}
		return p, nil
	}

	return nil, protocolo.ErrAlocacao
}

// Get busca um processo pelo id.
func (s *Service) Get(ctx context.Context, id int64) (*Processo, error) {
	return s.repo.Get(ctx, id)
}

// GetByProtocolo busca um processo pelo número de protocolo.
func (s *Service) GetByProtocolo(ctx context.Context, numero string) (*Processo, error) {
	return s.repo.GetByProtocolo(ctx, strings.TrimSpace(numero))
}

// List aplica filtros em conjunção e devolve também o total antes da
// paginação.
func (s *Service) List(ctx context.Context, filtros Filtros, limit, offset int) ([]Processo, int64, error) {
	if filtros.Status != "" {
		filtros.Status = NormalizeStatus(filtros.Status)
		if !IsValidStatus(filtros.Status) {
			return nil, 0, fmt.Errorf("%w: status inválido", ErrValidacao)
		}
	}
	if filtros.Prioridade != "" {
		filtros.Prioridade = NormalizePrioridade(filtros.Prioridade)
		if !IsValidPrioridade(filtros.Prioridade) {
			return nil, 0, fmt.Errorf("%w: prioridade inválida", ErrValidacao)
		}
	}
	return s.repo.List(ctx, filtros, limit, offset)
}

// Update aplica atualização parcial, respeitando o bloqueio.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, usuarioID int64) (*Processo, error) {
	atual, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if atual.Bloqueado {
		return nil, ErrBloqueado
	}
	if input.Empty() {
		return nil, ErrSemAlteracao
	}

	if input.Status != nil {
		normalized := NormalizeStatus(*input.Status)
		if !IsValidStatus(normalized) {
			return nil, fmt.Errorf("%w: status inválido", ErrValidacao)
		}
		// Conclusão entra e sai apenas por Concluir/Reabrir, que mantêm
		// data_conclusao coerente com o status.
		if normalized == StatusConcluido || atual.Status == StatusConcluido {
			return nil, fmt.Errorf("%w: use concluir ou reabrir para alterar a conclusão", ErrValidacao)
		}
		input.Status = &normalized
	}
	if input.NivelAcesso != nil {
		normalized := NormalizeNivelAcesso(*input.NivelAcesso)
		if !IsValidNivelAcesso(normalized) {
			return nil, fmt.Errorf("%w: nível de acesso inválido", ErrValidacao)
		}
		input.NivelAcesso = &normalized
	}
	if input.Prioridade != nil {
		normalized := NormalizePrioridade(*input.Prioridade)
		if !IsValidPrioridade(normalized) {
			return nil, fmt.Errorf("%w: prioridade inválida", ErrValidacao)
		}
		input.Prioridade = &normalized
	}
	if input.PrazoDias != nil {
		if *input.PrazoDias <= 0 {
			return nil, fmt.Errorf("%w: prazo em dias deve ser positivo", ErrValidacao)
		}
		prazo := s.now().UTC().AddDate(0, 0, *input.PrazoDias)
		input.DataPrazo = &prazo
	}

	return s.repo.Update(ctx, id, input)
}

// Concluir encerra o processo, carimbando a data de conclusão.
func (s *Service) Concluir(ctx context.Context, id int64, usuarioID int64) (*Processo, error) {
	atual, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if atual.Bloqueado {
		return nil, ErrBloqueado
	}
	if atual.Status == StatusConcluido {
		return nil, ErrJaConcluido
	}

	now := s.now().UTC()
	return s.repo.SetConclusao(ctx, id, StatusConcluido, &now)
}

// Reabrir retorna um processo concluído para o status aberto e limpa a
// data de conclusão.
func (s *Service) Reabrir(ctx context.Context, id int64, usuarioID int64) (*Processo, error) {
	atual, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if atual.Bloqueado {
		return nil, ErrBloqueado
	}
	if atual.Status != StatusConcluido {
		return nil, ErrNaoConcluido
	}

	return s.repo.SetConclusao(ctx, id, StatusAberto, nil)
}

// Bloquear marca o processo como bloqueado. Bloquear novamente um
// processo já bloqueado sobrescreve motivo, autor e data.
func (s *Service) Bloquear(ctx context.Context, id int64, motivo string, usuarioID int64) (*Processo, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, fmt.Errorf("%w: motivo obrigatório", ErrValidacao)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return s.repo.SetBloqueio(ctx, id, true, &motivo, &usuarioID, &now)
}

// Desbloquear limpa o bloqueio e seus campos de auditoria.
func (s *Service) Desbloquear(ctx context.Context, id int64, usuarioID int64) (*Processo, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.SetBloqueio(ctx, id, false, nil, nil, nil)
}

// Relevantes reúne em uma única consulta os processos criados pelo
// usuário e os tramitados para o seu setor.
func (s *Service) Relevantes(ctx context.Context, usuarioID int64, setorID *int64) ([]Processo, error) {
	return s.repo.ListRelevantes(ctx, usuarioID, setorID)
}

// Tipos lista os tipos de processo ativos para autuação.
func (s *Service) Tipos(ctx context.Context) ([]TipoProcesso, error) {
	return s.repo.ListTiposAtivos(ctx)
}
