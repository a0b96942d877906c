package usuario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbbasquete/processos/internal/auth"
)

type stubRepo struct {
	porID       map[int64]*Usuario
	porEmail    map[string]*Usuario
	nextID      int64
	ultimoTocou int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{porID: map[int64]*Usuario{}, porEmail: map[string]*Usuario{}, nextID: 1}
}

func (r *stubRepo) adiciona(u *Usuario) *Usuario {
	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	}
	r.porID[u.ID] = u
	r.porEmail[u.Email] = u
	return u
}

func (r *stubRepo) Create(_ context.Context, u *Usuario) (*Usuario, error) {
	if _, existe := r.porEmail[u.Email]; existe {
		return nil, ErrEmailEmUso
	}
	criado := *u
	criado.Ativo = true
	criado.CriadoEm = time.Now()
	return r.adiciona(&criado), nil
}

func (r *stubRepo) GetByID(_ context.Context, id int64) (*Usuario, error) {
	u, ok := r.porID[id]
	if !ok {
		return nil, ErrNaoEncontrado
	}
	return u, nil
}

func (r *stubRepo) GetByEmail(_ context.Context, email string) (*Usuario, error) {
	u, ok := r.porEmail[email]
	if !ok {
		return nil, ErrNaoEncontrado
	}
	return u, nil
}

func (r *stubRepo) TouchUltimoAcesso(_ context.Context, id int64) error {
	r.ultimoTocou = id
	return nil
}

type stubTokens struct {
	guardados map[string]int64
}

func newStubTokens() *stubTokens {
	return &stubTokens{guardados: map[string]int64{}}
}

func (s *stubTokens) Salvar(_ context.Context, hash string, usuarioID int64, _ time.Duration) error {
	s.guardados[hash] = usuarioID
	return nil
}

func (s *stubTokens) Consultar(_ context.Context, hash string) (int64, error) {
	id, ok := s.guardados[hash]
	if !ok {
		return 0, auth.ErrInvalidRefresh
	}
	return id, nil
}

func (s *stubTokens) Revogar(_ context.Context, hash string) error {
	delete(s.guardados, hash)
	return nil
}

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T) (*Service, *stubRepo, *stubTokens) {
	t.Helper()
	repo := newStubRepo()
	tokens := newStubTokens()
	jwtm := auth.NewJWTManager("segredo-de-teste", time.Minute)
	return NewService(repo, tokens, jwtm, time.Hour), repo, tokens
}

func cadastraUsuario(t *testing.T, repo *stubRepo, email, senha string, ativo bool) *Usuario {
	t.Helper()
	hash, err := auth.Hash(senha)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return repo.adiciona(&Usuario{
		Nome:      "Maria Souza",
		Email:     email,
		SenhaHash: hash,
		SetorID:   ptr(int64(3)),
		Cargo:     ptr("Analista"),
		CPF:       ptr("12345678901"),
		Ativo:     ativo,
	})
}

func TestLoginEmiteTokens(t *testing.T) {
	svc, repo, tokens := newTestService(t)
	u := cadastraUsuario(t, repo, "maria@cbb.gov.br", "senha-forte", true)

	res, err := svc.Login(context.Background(), "  MARIA@cbb.gov.br ", "senha-forte")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("esperava access e refresh tokens")
	}
	if res.TokenType != "bearer" {
		t.Fatalf("token_type = %q", res.TokenType)
	}
	if res.Usuario.ID != u.ID {
		t.Fatalf("usuario.id = %d", res.Usuario.ID)
	}

	hash := auth.HashRefreshToken(res.RefreshToken)
	if tokens.guardados[hash] != u.ID {
		t.Fatal("refresh não persistido para o usuário")
	}
	if repo.ultimoTocou != u.ID {
		t.Fatal("último acesso não atualizado")
	}
}

func TestLoginCredenciaisInvalidas(t *testing.T) {
	svc, repo, _ := newTestService(t)
	cadastraUsuario(t, repo, "maria@cbb.gov.br", "senha-forte", true)

	casos := []struct {
		nome  string
		email string
		senha string
	}{
		{"senha errada", "maria@cbb.gov.br", "outra-senha"},
		{"email desconhecido", "ninguem@cbb.gov.br", "senha-forte"},
		{"campos vazios", "", ""},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), c.email, c.senha); !errors.Is(err, ErrCredenciaisInvalidas) {
				t.Fatalf("err = %v, esperava ErrCredenciaisInvalidas", err)
			}
		})
	}
}

func TestLoginContaDesativada(t *testing.T) {
	svc, repo, _ := newTestService(t)
	cadastraUsuario(t, repo, "maria@cbb.gov.br", "senha-forte", false)

	if _, err := svc.Login(context.Background(), "maria@cbb.gov.br", "senha-forte"); !errors.Is(err, ErrContaDesativada) {
		t.Fatalf("err = %v, esperava ErrContaDesativada", err)
	}
}

func TestRefreshRotacionaToken(t *testing.T) {
	svc, repo, tokens := newTestService(t)
	cadastraUsuario(t, repo, "maria@cbb.gov.br", "senha-forte", true)

	login, err := svc.Login(context.Background(), "maria@cbb.gov.br", "senha-forte")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.RefreshToken == login.RefreshToken {
		t.Fatal("refresh deveria emitir um token novo")
	}

	// O token antigo foi consumido na rotação.
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, auth.ErrInvalidRefresh) {
		t.Fatalf("reuso do token antigo: err = %v", err)
	}
	if _, ok := tokens.guardados[auth.HashRefreshToken(res.RefreshToken)]; !ok {
		t.Fatal("token novo não persistido")
	}
}

func TestRefreshTokenDesconhecido(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Refresh(context.Background(), "token-que-nao-existe"); !errors.Is(err, auth.ErrInvalidRefresh) {
		t.Fatalf("err = %v", err)
	}
}

func TestLogoutRevogaRefresh(t *testing.T) {
	svc, repo, _ := newTestService(t)
	cadastraUsuario(t, repo, "maria@cbb.gov.br", "senha-forte", true)

	login, err := svc.Login(context.Background(), "maria@cbb.gov.br", "senha-forte")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, auth.ErrInvalidRefresh) {
		t.Fatalf("refresh após logout: err = %v", err)
	}
}

func TestRegisterValidaEHasheia(t *testing.T) {
	svc, _, _ := newTestService(t)

	casos := []struct {
		nome  string
		input RegisterInput
	}{
		{"sem nome", RegisterInput{Email: "a@b.gov.br", Senha: "12345678"}},
		{"email inválido", RegisterInput{Nome: "Ana", Email: "sem-arroba", Senha: "12345678"}},
		{"senha curta", RegisterInput{Nome: "Ana", Email: "a@b.gov.br", Senha: "1234"}},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), c.input); !errors.Is(err, ErrValidacao) {
				t.Fatalf("err = %v, esperava ErrValidacao", err)
			}
		})
	}

	u, err := svc.Register(context.Background(), RegisterInput{
		Nome:  " Ana Lima ",
		Email: "ANA@cbb.gov.br",
		Senha: "senha-segura",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ana@cbb.gov.br" {
		t.Fatalf("email = %q, esperava minúsculo", u.Email)
	}
	if u.Nome != "Ana Lima" {
		t.Fatalf("nome = %q", u.Nome)
	}
	ok, err := auth.Verify("senha-segura", u.SenhaHash)
	if err != nil || !ok {
		t.Fatalf("senha não confere com o hash (ok=%v err=%v)", ok, err)
	}
}

func TestGetAssinante(t *testing.T) {
	svc, repo, _ := newTestService(t)
	u := cadastraUsuario(t, repo, "maria@cbb.gov.br", "senha-forte", true)

	a, err := svc.GetAssinante(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("get assinante: %v", err)
	}
	if a.Nome != u.Nome || a.SenhaHash != u.SenhaHash {
		t.Fatal("assinante não espelha o usuário")
	}
	if a.CPF == nil || *a.CPF != "12345678901" {
		t.Fatalf("cpf = %v", a.CPF)
	}
	if a.Cargo == nil || *a.Cargo != "Analista" {
		t.Fatalf("cargo = %v", a.Cargo)
	}
}
