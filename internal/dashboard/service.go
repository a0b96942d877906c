package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stats agrega os contadores exibidos na tela inicial.
type Stats struct {
	TotalProcessos      int64 `json:"total_processos"`
	ProcessosAbertos    int64 `json:"processos_abertos"`
	ProcessosEmTramite  int64 `json:"processos_em_tramite"`
	ProcessosConcluidos int64 `json:"processos_concluidos"`
	MeusProcessos       int64 `json:"meus_processos"`
	ProcessosMeuSetor   int64 `json:"processos_meu_setor"`
	PendentesAprovacao  int64 `json:"pendentes_aprovacao"`
	PendentesAssinatura int64 `json:"pendentes_assinatura"`
}

// Repository calcula os agregados direto no banco.
type Repository interface {
	Stats(ctx context.Context, usuarioID int64, setorID *int64) (*Stats, error)
}

// Service serve os agregados com uma camada curta de cache.
type Service struct {
	repo  Repository
	cache *redis.Client
}

func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

func cacheKey(usuarioID int64, setorID *int64) string {
	if setorID == nil {
		return fmt.Sprintf("dash:stats:%d:-", usuarioID)
	}
	return fmt.Sprintf("dash:stats:%d:%d", usuarioID, *setorID)
}

// Stats retorna os contadores do usuário, com cache de 60 segundos.
// Os números são informativos, então uma leve defasagem é aceitável.
func (s *Service) Stats(ctx context.Context, usuarioID int64, setorID *int64) (*Stats, error) {
	key := cacheKey(usuarioID, setorID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached Stats
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.repo.Stats(ctx, usuarioID, setorID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(ctx, key, payload, 60*time.Second).Err()
		}
	}

	return stats, nil
}
