package tramitacao

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbbasquete/processos/internal/processo"
)

type stubProcessos struct {
	porID map[int64]*processo.Processo
}

func (s *stubProcessos) Get(_ context.Context, id int64) (*processo.Processo, error) {
	p, ok := s.porID[id]
	if !ok {
		return nil, processo.ErrNaoEncontrado
	}
	copia := *p
	return &copia, nil
}

type stubRepo struct {
	porID  map[int64]*Tramitacao
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{porID: map[int64]*Tramitacao{}}
}

func (r *stubRepo) Criar(_ context.Context, t *Tramitacao) (*Tramitacao, error) {
	r.nextID++
	novo := *t
	novo.ID = r.nextID
	novo.CriadoEm = time.Now().UTC()
	r.porID[novo.ID] = &novo
	copia := novo
	return &copia, nil
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Tramitacao, error) {
	t, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrada
	}
	copia := *t
	return &copia, nil
}

func (r *stubRepo) ListByProcesso(_ context.Context, processoID int64) ([]Tramitacao, error) {
	itens := []Tramitacao{}
	// Ids crescem com o tempo; iterar do maior para o menor reproduz a
	// ordenação mais recente primeiro.
	for id := r.nextID; id >= 1; id-- {
		t, ok := r.porID[id]
		if ok && t.ProcessoID == processoID {
			itens = append(itens, *t)
		}
	}
	return itens, nil
}

func (r *stubRepo) Resolver(_ context.Context, id int64, status string, por int64, em time.Time, motivo *string) (*Tramitacao, error) {
	t, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrada
	}
	if t.StatusAprovacao != AprovacaoPendente {
		return nil, ErrJaResolvida
	}
	t.StatusAprovacao = status
	t.AprovadoPor = &por
	t.DataAprovacao = &em
	t.MotivoRejeicao = motivo
	copia := *t
	return &copia, nil
}

func (r *stubRepo) RejeitarComDevolucao(ctx context.Context, original *Tramitacao, motivo string, por int64, em time.Time) (*Tramitacao, error) {
	rejeitada, err := r.Resolver(ctx, original.ID, AprovacaoRejeitado, por, em, &motivo)
	if err != nil {
		return nil, err
	}
	if original.SetorOrigemID != nil {
		observacao := "REJEITADO: " + motivo
		if _, err := r.Criar(ctx, &Tramitacao{
			ProcessoID:      original.ProcessoID,
			SetorOrigemID:   &original.SetorDestinoID,
			SetorDestinoID:  *original.SetorOrigemID,
			TipoTramitacao:  TipoDespacho,
			Observacao:      &observacao,
			DataEnvio:       em,
			EnviadoPor:      por,
			StatusAprovacao: AprovacaoPendente,
		}); err != nil {
			return nil, err
		}
	}
	return rejeitada, nil
}

func (r *stubRepo) Receber(_ context.Context, id int64, por int64, em time.Time) (*Tramitacao, error) {
	t, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrada
	}
	if t.DataRecebimento != nil {
		return nil, ErrJaRecebida
	}
	t.DataRecebimento = &em
	t.RecebidoPor = &por
	copia := *t
	return &copia, nil
}

func ptr[T any](v T) *T { return &v }

func newTestService(repo *stubRepo, processos *stubProcessos) *Service {
	svc := NewService(repo, processos)
	svc.now = func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func processoNoSetor(id int64, setorID *int64) *processo.Processo {
	return &processo.Processo{
		ID:           id,
		Status:       processo.StatusAberto,
		SetorAtualID: setorID,
	}
}

func TestTramitarDefineOrigemEDestino(t *testing.T) {
	repo := newStubRepo()
	processos := &stubProcessos{porID: map[int64]*processo.Processo{
		1: processoNoSetor(1, ptr[int64](10)),
	}}
	svc := newTestService(repo, processos)

	tram, err := svc.Tramitar(context.Background(), 1, TramitarInput{
		SetorDestinoID: 20,
		TipoTramitacao: "aprovacao",
	}, 7)
	if err != nil {
		t.Fatalf("tramitar: %v", err)
	}
	if tram.SetorOrigemID == nil || *tram.SetorOrigemID != 10 {
		t.Fatalf("origem = %v, esperado 10", tram.SetorOrigemID)
	}
	if tram.SetorDestinoID != 20 {
		t.Fatalf("destino = %d, esperado 20", tram.SetorDestinoID)
	}
	if tram.StatusAprovacao != AprovacaoPendente {
		t.Fatalf("status = %q, esperado pendente", tram.StatusAprovacao)
	}
	if tram.EnviadoPor != 7 {
		t.Fatalf("enviado_por = %d", tram.EnviadoPor)
	}
}

func TestTramitarGuardas(t *testing.T) {
	repo := newStubRepo()
	processos := &stubProcessos{porID: map[int64]*processo.Processo{
		1: processoNoSetor(1, ptr[int64](10)),
		2: {ID: 2, Status: processo.StatusAberto, SetorAtualID: ptr[int64](10), Bloqueado: true},
	}}
	svc := newTestService(repo, processos)
	ctx := context.Background()

	if _, err := svc.Tramitar(ctx, 99, TramitarInput{SetorDestinoID: 20}, 1); !errors.Is(err, processo.ErrNaoEncontrado) {
		t.Fatalf("processo ausente: err = %v", err)
	}
	if _, err := svc.Tramitar(ctx, 2, TramitarInput{SetorDestinoID: 20}, 1); !errors.Is(err, processo.ErrBloqueado) {
		t.Fatalf("processo bloqueado: err = %v", err)
	}
	if _, err := svc.Tramitar(ctx, 1, TramitarInput{SetorDestinoID: 10}, 1); !errors.Is(err, ErrMesmoSetor) {
		t.Fatalf("mesmo setor: err = %v", err)
	}
	if _, err := svc.Tramitar(ctx, 1, TramitarInput{SetorDestinoID: 0}, 1); !errors.Is(err, ErrValidacao) {
		t.Fatalf("destino ausente: err = %v", err)
	}
	if _, err := svc.Tramitar(ctx, 1, TramitarInput{SetorDestinoID: 20, TipoTramitacao: "memorando"}, 1); !errors.Is(err, ErrValidacao) {
		t.Fatalf("tipo inválido: err = %v", err)
	}
}

func TestTramitarSemSetorAtual(t *testing.T) {
	repo := newStubRepo()
	processos := &stubProcessos{porID: map[int64]*processo.Processo{
		1: processoNoSetor(1, nil),
	}}
	svc := newTestService(repo, processos)

	tram, err := svc.Tramitar(context.Background(), 1, TramitarInput{SetorDestinoID: 20}, 1)
	if err != nil {
		t.Fatalf("tramitar: %v", err)
	}
	if tram.SetorOrigemID != nil {
		t.Fatalf("origem = %v, esperado nil", tram.SetorOrigemID)
	}
	if tram.TipoTramitacao != TipoDespacho {
		t.Fatalf("tipo = %q, esperado despacho por padrão", tram.TipoTramitacao)
	}
}

func TestAprovarExigeSetorDestino(t *testing.T) {
	repo := newStubRepo()
	processos := &stubProcessos{porID: map[int64]*processo.Processo{
		1: processoNoSetor(1, ptr[int64](10)),
	}}
	svc := newTestService(repo, processos)
	ctx := context.Background()

	tram, err := svc.Tramitar(ctx, 1, TramitarInput{SetorDestinoID: 20, TipoTramitacao: "aprovacao"}, 1)
	if err != nil {
		t.Fatalf("tramitar: %v", err)
	}

	if _, err := svc.Aprovar(ctx, tram.ID, 5, nil); !errors.Is(err, ErrSemPermissao) {
		t.Fatalf("sem setor: err = %v", err)
	}
	if _, err := svc.Aprovar(ctx, tram.ID, 5, ptr[int64](99)); !errors.Is(err, ErrSemPermissao) {
		t.Fatalf("setor errado: err = %v", err)
	}

	aprovada, err := svc.Aprovar(ctx, tram.ID, 5, ptr[int64](20))
	if err != nil {
		t.Fatalf("aprovar: %v", err)
	}
	if aprovada.StatusAprovacao != AprovacaoAprovado {
		t.Fatalf("status = %q", aprovada.StatusAprovacao)
	}
	if aprovada.AprovadoPor == nil || *aprovada.AprovadoPor != 5 {
		t.Fatalf("aprovado_por = %v", aprovada.AprovadoPor)
	}
	if aprovada.DataAprovacao == nil {
		t.Fatal("data_aprovacao não carimbada")
	}

	// Resolução é única.
	if _, err := svc.Aprovar(ctx, tram.ID, 5, ptr[int64](20)); !errors.Is(err, ErrJaResolvida) {
		t.Fatalf("segunda aprovação: err = %v", err)
	}
	if _, err := svc.Rejeitar(ctx, tram.ID, "tarde demais", 5, ptr[int64](20)); !errors.Is(err, ErrJaResolvida) {
		t.Fatalf("rejeitar resolvida: err = %v", err)
	}
}

func TestRejeitarCriaDevolucao(t *testing.T) {
	repo := newStubRepo()
	processos := &stubProcessos{porID: map[int64]*processo.Processo{
		1: processoNoSetor(1, ptr[int64](10)),
	}}
	svc := newTestService(repo, processos)
	ctx := context.Background()

	tram, err := svc.Tramitar(ctx, 1, TramitarInput{SetorDestinoID: 20, TipoTramitacao: "aprovacao"}, 1)
	if err != nil {
		t.Fatalf("tramitar: %v", err)
	}

	if _, err := svc.Rejeitar(ctx, tram.ID, "  ", 5, ptr[int64](20)); !errors.Is(err, ErrValidacao) {
		t.Fatalf("motivo vazio: err = %v", err)
	}

	rejeitada, err := svc.Rejeitar(ctx, tram.ID, "sem dotação orçamentária", 5, ptr[int64](20))
	if err != nil {
		t.Fatalf("rejeitar: %v", err)
	}
	if rejeitada.StatusAprovacao != AprovacaoRejeitado {
		t.Fatalf("status = %q", rejeitada.StatusAprovacao)
	}
	if rejeitada.MotivoRejeicao == nil || *rejeitada.MotivoRejeicao != "sem dotação orçamentária" {
		t.Fatalf("motivo = %v", rejeitada.MotivoRejeicao)
	}

	historico, err := svc.Historico(ctx, 1)
	if err != nil {
		t.Fatalf("historico: %v", err)
	}
	if len(historico) != 2 {
		t.Fatalf("historico = %d registros, esperado 2", len(historico))
	}

	devolucao := historico[0]
	if devolucao.SetorOrigemID == nil || *devolucao.SetorOrigemID != 20 {
		t.Fatalf("devolução origem = %v, esperado 20", devolucao.SetorOrigemID)
	}
	if devolucao.SetorDestinoID != 10 {
		t.Fatalf("devolução destino = %d, esperado 10", devolucao.SetorDestinoID)
	}
	if devolucao.StatusAprovacao != AprovacaoPendente {
		t.Fatalf("devolução status = %q", devolucao.StatusAprovacao)
	}
	if devolucao.Observacao == nil || *devolucao.Observacao != "REJEITADO: sem dotação orçamentária" {
		t.Fatalf("devolução observação = %v", devolucao.Observacao)
	}
}

func TestReceber(t *testing.T) {
	repo := newStubRepo()
	processos := &stubProcessos{porID: map[int64]*processo.Processo{
		1: processoNoSetor(1, ptr[int64](10)),
	}}
	svc := newTestService(repo, processos)
	ctx := context.Background()

	tram, err := svc.Tramitar(ctx, 1, TramitarInput{SetorDestinoID: 20}, 1)
	if err != nil {
		t.Fatalf("tramitar: %v", err)
	}

	if _, err := svc.Receber(ctx, tram.ID, 5, ptr[int64](99)); !errors.Is(err, ErrSemPermissao) {
		t.Fatalf("setor errado: err = %v", err)
	}

	recebida, err := svc.Receber(ctx, tram.ID, 5, ptr[int64](20))
	if err != nil {
		t.Fatalf("receber: %v", err)
	}
	if recebida.DataRecebimento == nil || recebida.RecebidoPor == nil || *recebida.RecebidoPor != 5 {
		t.Fatalf("recebimento não carimbado: %+v", recebida)
	}

	if _, err := svc.Receber(ctx, tram.ID, 5, ptr[int64](20)); !errors.Is(err, ErrJaRecebida) {
		t.Fatalf("segundo recebimento: err = %v", err)
	}
}

func TestHistoricoProcessoInexistente(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubProcessos{porID: map[int64]*processo.Processo{}})
	if _, err := svc.Historico(context.Background(), 42); !errors.Is(err, processo.ErrNaoEncontrado) {
		t.Fatalf("err = %v, esperado ErrNaoEncontrado", err)
	}
}
