package processo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbbasquete/processos/internal/protocolo"
)

type stubSequencer struct {
	seq map[int]int64
}

func (s *stubSequencer) Proximo(_ context.Context, ano int) (int64, error) {
	if s.seq == nil {
		s.seq = map[int]int64{}
	}
	s.seq[ano]++
	return s.seq[ano], nil
}

type stubRepo struct {
	porID        map[int64]*Processo
	porProtocolo map[string]*Processo
	nextID       int64
	duplicados   int
	createCalls  int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		porID:        map[int64]*Processo{},
		porProtocolo: map[string]*Processo{},
	}
}

func (r *stubRepo) Create(_ context.Context, input CreateInput, numeroProtocolo string, ano int, dataPrazo *time.Time, criadoPor int64) (*Processo, error) {
	r.createCalls++
	if r.duplicados > 0 {
		r.duplicados--
		return nil, ErrProtocoloDuplicado
	}
	if _, existe := r.porProtocolo[numeroProtocolo]; existe {
		return nil, ErrProtocoloDuplicado
	}

	r.nextID++
	now := time.Now().UTC()
	p := &Processo{
		ID:              r.nextID,
		NumeroProtocolo: numeroProtocolo,
		Ano:             ano,
		TipoProcessoID:  input.TipoProcessoID,
		Assunto:         input.Assunto,
		Status:          StatusAberto,
		NivelAcesso:     input.NivelAcesso,
		Prioridade:      input.Prioridade,
		SetorAtualID:    input.SetorAtualID,
		PrazoDias:       input.PrazoDias,
		DataPrazo:       dataPrazo,
		DataAutuacao:    now,
		CriadoPor:       criadoPor,
		CriadoEm:        now,
		AtualizadoEm:    now,
	}
	r.porID[p.ID] = p
	r.porProtocolo[numeroProtocolo] = p
	return p, nil
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Processo, error) {
	p, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrado
	}
	copia := *p
	return &copia, nil
}

func (r *stubRepo) GetByProtocolo(_ context.Context, numero string) (*Processo, error) {
	p, ok := r.porProtocolo[numero]
	if !ok {
		return nil, ErrNaoEncontrado
	}
	copia := *p
	return &copia, nil
}

func (r *stubRepo) List(_ context.Context, _ Filtros, _, _ int) ([]Processo, int64, error) {
	itens := make([]Processo, 0, len(r.porID))
	for _, p := range r.porID {
		itens = append(itens, *p)
	}
	return itens, int64(len(itens)), nil
}

func (r *stubRepo) Update(_ context.Context, id int64, input UpdateInput) (*Processo, error) {
	p, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrado
	}
	if input.Assunto != nil {
		p.Assunto = *input.Assunto
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	if input.Prioridade != nil {
		p.Prioridade = *input.Prioridade
	}
	if input.SetorAtualID != nil {
		p.SetorAtualID = input.SetorAtualID
	}
	if input.PrazoDias != nil {
		p.PrazoDias = input.PrazoDias
		p.DataPrazo = input.DataPrazo
	}
	p.AtualizadoEm = time.Now().UTC()
	copia := *p
	return &copia, nil
}

func (r *stubRepo) SetConclusao(_ context.Context, id int64, status string, dataConclusao *time.Time) (*Processo, error) {
	p, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrado
	}
	p.Status = status
	p.DataConclusao = dataConclusao
	copia := *p
	return &copia, nil
}

func (r *stubRepo) SetBloqueio(_ context.Context, id int64, bloqueado bool, motivo *string, por *int64, em *time.Time) (*Processo, error) {
	p, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrado
	}
	p.Bloqueado = bloqueado
	p.MotivoBloqueio = motivo
	p.BloqueadoPor = por
	p.BloqueadoEm = em
	copia := *p
	return &copia, nil
}

func (r *stubRepo) ListTiposAtivos(_ context.Context) ([]TipoProcesso, error) {
	return []TipoProcesso{{ID: 1, Nome: "Administrativo", Cor: "#3B82F6", Ativo: true}}, nil
}

func (r *stubRepo) ListRelevantes(_ context.Context, usuarioID int64, _ *int64) ([]Processo, error) {
	itens := []Processo{}
	for _, p := range r.porID {
		if p.CriadoPor == usuarioID {
			itens = append(itens, *p)
		}
	}
	return itens, nil
}

func newTestService(repo *stubRepo) *Service {
	svc := NewService(repo, protocolo.NewAllocator(&stubSequencer{}))
	svc.now = func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestCreateGeraProtocoloSequencial(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	primeiro, err := svc.Create(context.Background(), CreateInput{
		TipoProcessoID: 1,
		Assunto:        "Aquisição de material esportivo",
	}, 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if primeiro.NumeroProtocolo != "2025.CBB.000001-1" {
		t.Fatalf("numero = %q, esperado 2025.CBB.000001-1", primeiro.NumeroProtocolo)
	}
	if primeiro.Status != StatusAberto {
		t.Fatalf("status = %q, esperado aberto", primeiro.Status)
	}
	if primeiro.NivelAcesso != NivelPublico || primeiro.Prioridade != PrioridadeNormal {
		t.Fatalf("defaults não aplicados: nivel=%q prioridade=%q", primeiro.NivelAcesso, primeiro.Prioridade)
	}

	segundo, err := svc.Create(context.Background(), CreateInput{
		TipoProcessoID: 1,
		Assunto:        "Contratação de arbitragem",
	}, 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if segundo.NumeroProtocolo != "2025.CBB.000002-1" {
		t.Fatalf("numero = %q, esperado 2025.CBB.000002-1", segundo.NumeroProtocolo)
	}
}

func TestCreateValidacao(t *testing.T) {
	svc := newTestService(newStubRepo())

	casos := []struct {
		nome  string
		input CreateInput
	}{
		{"assunto vazio", CreateInput{TipoProcessoID: 1, Assunto: "   "}},
		{"tipo ausente", CreateInput{Assunto: "Teste"}},
		{"nivel invalido", CreateInput{TipoProcessoID: 1, Assunto: "Teste", NivelAcesso: "secreto"}},
		{"prioridade invalida", CreateInput{TipoProcessoID: 1, Assunto: "Teste", Prioridade: "critica"}},
	}
	for _, tc := range casos {
		t.Run(tc.nome, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.input, 1); !errors.Is(err, ErrValidacao) {
				t.Fatalf("err = %v, esperado ErrValidacao", err)
			}
		})
	}
}

func TestCreateCalculaPrazo(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	prazo := 30
	p, err := svc.Create(context.Background(), CreateInput{
		TipoProcessoID: 1,
		Assunto:        "Prestação de contas",
		PrazoDias:      &prazo,
	}, 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.DataPrazo == nil {
		t.Fatal("data_prazo não calculada")
	}
	esperado := time.Date(2025, time.April, 9, 12, 0, 0, 0, time.UTC)
	if !p.DataPrazo.Equal(esperado) {
		t.Fatalf("data_prazo = %v, esperado %v", p.DataPrazo, esperado)
	}
}

func TestCreateRetentaEmColisao(t *testing.T) {
	repo := newStubRepo()
	repo.duplicados = 2
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), CreateInput{TipoProcessoID: 1, Assunto: "Teste"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if repo.createCalls != 3 {
		t.Fatalf("createCalls = %d, esperado 3", repo.createCalls)
	}
	// As duas primeiras sequências foram queimadas na colisão.
	if p.NumeroProtocolo != "2025.CBB.000003-1" {
		t.Fatalf("numero = %q", p.NumeroProtocolo)
	}
}

func TestCreateDesisteAposTentativas(t *testing.T) {
	repo := newStubRepo()
	repo.duplicados = 10
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{TipoProcessoID: 1, Assunto: "Teste"}, 1)
	if !errors.Is(err, protocolo.ErrAlocacao) {
		t.Fatalf("err = %v, esperado ErrAlocacao", err)
	}
	if repo.createCalls != 3 {
		t.Fatalf("createCalls = %d, esperado 3", repo.createCalls)
	}
}

func TestUpdateRespeitaBloqueio(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), CreateInput{TipoProcessoID: 1, Assunto: "Teste"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Bloquear(context.Background(), p.ID, "auditoria em curso", 2); err != nil {
		t.Fatalf("bloquear: %v", err)
	}

	novo := "Assunto alterado"
	if _, err := svc.Update(context.Background(), p.ID, UpdateInput{Assunto: &novo}, 1); !errors.Is(err, ErrBloqueado) {
		t.Fatalf("err = %v, esperado ErrBloqueado", err)
	}
	if _, err := svc.Concluir(context.Background(), p.ID, 1); !errors.Is(err, ErrBloqueado) {
		t.Fatalf("concluir: err = %v, esperado ErrBloqueado", err)
	}

	if _, err := svc.Desbloquear(context.Background(), p.ID, 2); err != nil {
		t.Fatalf("desbloquear: %v", err)
	}
	atualizado, err := svc.Update(context.Background(), p.ID, UpdateInput{Assunto: &novo}, 1)
	if err != nil {
		t.Fatalf("update após desbloqueio: %v", err)
	}
	if atualizado.Assunto != novo {
		t.Fatalf("assunto = %q", atualizado.Assunto)
	}
}

func TestUpdateSemCampos(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), CreateInput{TipoProcessoID: 1, Assunto: "Teste"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(context.Background(), p.ID, UpdateInput{}, 1); !errors.Is(err, ErrSemAlteracao) {
		t.Fatalf("err = %v, esperado ErrSemAlteracao", err)
	}
}

func TestConcluirEReabrir(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), CreateInput{TipoProcessoID: 1, Assunto: "Teste"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Reabrir(context.Background(), p.ID, 1); !errors.Is(err, ErrNaoConcluido) {
		t.Fatalf("reabrir aberto: err = %v, esperado ErrNaoConcluido", err)
	}

	concluido, err := svc.Concluir(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("concluir: %v", err)
	}
	if concluido.Status != StatusConcluido || concluido.DataConclusao == nil {
		t.Fatalf("conclusão não carimbada: status=%q data=%v", concluido.Status, concluido.DataConclusao)
	}

	if _, err := svc.Concluir(context.Background(), p.ID, 1); !errors.Is(err, ErrJaConcluido) {
		t.Fatalf("concluir de novo: err = %v, esperado ErrJaConcluido", err)
	}

	reaberto, err := svc.Reabrir(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("reabrir: %v", err)
	}
	if reaberto.Status != StatusAberto || reaberto.DataConclusao != nil {
		t.Fatalf("reabertura incompleta: status=%q data=%v", reaberto.Status, reaberto.DataConclusao)
	}
}

func TestUpdateNaoMexeNaConclusao(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), CreateInput{TipoProcessoID: 1, Assunto: "Teste"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	concluido := StatusConcluido
	if _, err := svc.Update(context.Background(), p.ID, UpdateInput{Status: &concluido}, 1); !errors.Is(err, ErrValidacao) {
		t.Fatalf("update para concluido: err = %v, esperado ErrValidacao", err)
	}
	depois, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if depois.Status == StatusConcluido && depois.DataConclusao == nil {
		t.Fatal("processo concluído sem data de conclusão")
	}
	if depois.Status != StatusAberto {
		t.Fatalf("status = %q, esperado aberto", depois.Status)
	}

	// Trocar entre os demais status continua permitido pelo update.
	arquivado := StatusArquivado
	atualizado, err := svc.Update(context.Background(), p.ID, UpdateInput{Status: &arquivado}, 1)
	if err != nil {
		t.Fatalf("update para arquivado: %v", err)
	}
	if atualizado.Status != StatusArquivado {
		t.Fatalf("status = %q, esperado arquivado", atualizado.Status)
	}

	aberto := StatusAberto
	if _, err := svc.Update(context.Background(), p.ID, UpdateInput{Status: &aberto}, 1); err != nil {
		t.Fatalf("update para aberto: %v", err)
	}
	if _, err := svc.Concluir(context.Background(), p.ID, 1); err != nil {
		t.Fatalf("concluir: %v", err)
	}

	// Sair de concluido só pelo reabrir, que limpa o carimbo.
	if _, err := svc.Update(context.Background(), p.ID, UpdateInput{Status: &aberto}, 1); !errors.Is(err, ErrValidacao) {
		t.Fatalf("update saindo de concluido: err = %v, esperado ErrValidacao", err)
	}
	reaberto, err := svc.Reabrir(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("reabrir: %v", err)
	}
	if reaberto.Status != StatusAberto || reaberto.DataConclusao != nil {
		t.Fatalf("reabertura incompleta: status=%q data=%v", reaberto.Status, reaberto.DataConclusao)
	}
}

func TestBloquearExigeMotivo(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), CreateInput{TipoProcessoID: 1, Assunto: "Teste"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Bloquear(context.Background(), p.ID, "  ", 2); !errors.Is(err, ErrValidacao) {
		t.Fatalf("err = %v, esperado ErrValidacao", err)
	}
}

func TestListValidaFiltros(t *testing.T) {
	svc := newTestService(newStubRepo())

	if _, _, err := svc.List(context.Background(), Filtros{Status: "pendente"}, 0, 0); !errors.Is(err, ErrValidacao) {
		t.Fatalf("err = %v, esperado ErrValidacao", err)
	}
	if _, _, err := svc.List(context.Background(), Filtros{Prioridade: "critica"}, 0, 0); !errors.Is(err, ErrValidacao) {
		t.Fatalf("err = %v, esperado ErrValidacao", err)
	}
}
