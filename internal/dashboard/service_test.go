package dashboard

import (
	"context"
	"testing"
)

type stubRepo struct {
	stats    Stats
	chamadas int
}

func (r *stubRepo) Stats(_ context.Context, _ int64, _ *int64) (*Stats, error) {
	r.chamadas++
	s := r.stats
	return &s, nil
}

func TestStatsSemCache(t *testing.T) {
	repo := &stubRepo{stats: Stats{TotalProcessos: 12, MeusProcessos: 3}}
	svc := NewService(repo, nil)

	got, err := svc.Stats(context.Background(), 7, nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.TotalProcessos != 12 || got.MeusProcessos != 3 {
		t.Fatalf("stats = %+v", got)
	}
	// Sem redis o serviço consulta o repositório a cada chamada.
	if _, err := svc.Stats(context.Background(), 7, nil); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if repo.chamadas != 2 {
		t.Fatalf("chamadas = %d", repo.chamadas)
	}
}

func TestCacheKeyPorUsuarioESetor(t *testing.T) {
	setor := int64(9)
	casos := []struct {
		nome    string
		usuario int64
		setor   *int64
		want    string
	}{
		{"com setor", 7, &setor, "dash:stats:7:9"},
		{"sem setor", 7, nil, "dash:stats:7:-"},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			if got := cacheKey(c.usuario, c.setor); got != c.want {
				t.Fatalf("cacheKey = %q, esperava %q", got, c.want)
			}
		})
	}
}
