package usuario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/cbbasquete/processos/internal/auth"
	"github.com/cbbasquete/processos/internal/documento"
)

// Repository define o acesso a usuários usado pelo serviço.
type Repository interface {
	Create(ctx context.Context, u *Usuario) (*Usuario, error)
	GetByID(ctx context.Context, id int64) (*Usuario, error)
	GetByEmail(ctx context.Context, email string) (*Usuario, error)
	TouchUltimoAcesso(ctx context.Context, id int64) error
}

// TokenStore guarda o estado dos refresh tokens (hash -> id do usuário).
type TokenStore interface {
	Salvar(ctx context.Context, hash string, usuarioID int64, ttl time.Duration) error
	Consultar(ctx context.Context, hash string) (int64, error)
	Revogar(ctx context.Context, hash string) error
}

// RedisTokenStore implementa TokenStore sobre redis.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Salvar(ctx context.Context, hash string, usuarioID int64, ttl time.Duration) error {
	return s.client.Set(ctx, auth.RefreshRedisKey(hash), strconv.FormatInt(usuarioID, 10), ttl).Err()
}

func (s *RedisTokenStore) Consultar(ctx context.Context, hash string) (int64, error) {
	val, err := s.client.Get(ctx, auth.RefreshRedisKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, auth.ErrInvalidRefresh
		}
		return 0, fmt.Errorf("consultar refresh: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, auth.ErrInvalidRefresh
	}
	return id, nil
}

func (s *RedisTokenStore) Revogar(ctx context.Context, hash string) error {
	return s.client.Del(ctx, auth.RefreshRedisKey(hash)).Err()
}

// Service concentra autenticação e cadastro de usuários.
type Service struct {
	repo       Repository
	tokens     TokenStore
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

func NewService(repo Repository, tokens TokenStore, jwt *auth.JWTManager, refreshTTL time.Duration) *Service {
	return &Service{repo: repo, tokens: tokens, jwt: jwt, refreshTTL: refreshTTL}
}

// Login valida credenciais e emite o par de tokens.
func (s *Service) Login(ctx context.Context, email, senha string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || senha == "" {
		return nil, ErrCredenciaisInvalidas
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrado) {
			return nil, ErrCredenciaisInvalidas
		}
		return nil, err
	}

	ok, err := auth.Verify(senha, u.SenhaHash)
	if err != nil {
		return nil, fmt.Errorf("verificar senha: %w", err)
	}
	if !ok {
		return nil, ErrCredenciaisInvalidas
	}
	if !u.Ativo {
		return nil, ErrContaDesativada
	}

	result, err := s.emitirTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchUltimoAcesso(ctx, u.ID); err != nil {
		log.Warn().Err(err).Int64("usuario_id", u.ID).Msg("falha ao registrar último acesso")
	}

	return result, nil
}

// Refresh troca um refresh token válido por um novo par (rotação).
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	if rawRefresh == "" {
		return nil, auth.ErrInvalidRefresh
	}

	hash := auth.HashRefreshToken(rawRefresh)
	usuarioID, err := s.tokens.Consultar(ctx, hash)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrado) {
			return nil, auth.ErrInvalidRefresh
		}
		return nil, err
	}
	if !u.Ativo {
		return nil, ErrContaDesativada
	}

	// Rotação: o token usado deixa de valer imediatamente.
	if err := s.tokens.Revogar(ctx, hash); err != nil {
		return nil, fmt.Errorf("revogar refresh: %w", err)
	}

	return s.emitirTokens(ctx, u)
}

// Logout revoga o refresh token informado. Idempotente.
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	return s.tokens.Revogar(ctx, auth.HashRefreshToken(rawRefresh))
}

// Register cria um novo usuário com senha hasheada.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Usuario, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.Nome == "" {
		return nil, fmt.Errorf("%w: nome é obrigatório", ErrValidacao)
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("%w: email inválido", ErrValidacao)
	}
	if len(input.Senha) < 8 {
		return nil, fmt.Errorf("%w: senha deve ter ao menos 8 caracteres", ErrValidacao)
	}

	hash, err := auth.Hash(input.Senha)
	if err != nil {
		return nil, fmt.Errorf("hashear senha: %w", err)
	}

	return s.repo.Create(ctx, &Usuario{
		Nome:      input.Nome,
		Email:     input.Email,
		SenhaHash: hash,
		SetorID:   input.SetorID,
		Cargo:     input.Cargo,
		CPF:       input.CPF,
		Telefone:  input.Telefone,
	})
}

// Get retorna o usuário pelo id.
func (s *Service) Get(ctx context.Context, id int64) (*Usuario, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAssinante adapta o usuário para o fluxo de assinatura de documentos.
func (s *Service) GetAssinante(ctx context.Context, id int64) (*documento.Assinante, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &documento.Assinante{
		ID:        u.ID,
		Nome:      u.Nome,
		CPF:       u.CPF,
		Cargo:     u.Cargo,
		SenhaHash: u.SenhaHash,
	}, nil
}

func (s *Service) emitirTokens(ctx context.Context, u *Usuario) (*LoginResult, error) {
	access, _, err := s.jwt.GenerateAccessToken(strconv.FormatInt(u.ID, 10), u.SetorID)
	if err != nil {
		return nil, fmt.Errorf("emitir access token: %w", err)
	}

	rawRefresh, hashed, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("emitir refresh token: %w", err)
	}
	if err := s.tokens.Salvar(ctx, hashed, u.ID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("persistir refresh token: %w", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		TokenType:    "bearer",
		Usuario:      u,
	}, nil
}
