package documento

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cbbasquete/processos/internal/auth"
	"github.com/cbbasquete/processos/internal/processo"
	"github.com/cbbasquete/processos/internal/storage"
)

// Repository provê persistência de documentos e assinaturas.
type Repository interface {
	Create(ctx context.Context, d *Documento) (*Documento, error)
	Get(ctx context.Context, id int64) (*Documento, error)
	ListAtivos(ctx context.Context, processoID int64) ([]Documento, error)
	Update(ctx context.Context, id int64, input UpdateInput, novoHash *string) (*Documento, error)
	Cancelar(ctx context.Context, id int64, motivo string, por int64, em time.Time) (*Documento, error)
	Reordenar(ctx context.Context, processoID int64, ordem []int64) error
	CriarAssinatura(ctx context.Context, a *Assinatura) (*Assinatura, error)
	ListAssinaturas(ctx context.Context, documentoID int64) ([]Assinatura, error)
	TemAssinatura(ctx context.Context, documentoID, usuarioID int64) (bool, error)
}

// ProcessoStore é a fatia do serviço de processos necessária aqui.
type ProcessoStore interface {
	Get(ctx context.Context, id int64) (*processo.Processo, error)
}

// Assinante carrega os dados do usuário necessários para assinar.
type Assinante struct {
	ID        int64
	Nome      string
	CPF       *string
	Cargo     *string
	SenhaHash string
}

// AssinanteStore resolve o usuário que assina o documento.
type AssinanteStore interface {
	GetAssinante(ctx context.Context, usuarioID int64) (*Assinante, error)
}

// Service reúne as regras do ciclo de vida de documentos.
type Service struct {
	repo       Repository
	uploader   storage.Uploader
	processos  ProcessoStore
	assinantes AssinanteStore
	now        func() time.Time
}

func NewService(repo Repository, uploader storage.Uploader, processos ProcessoStore, assinantes AssinanteStore) *Service {
	return &Service{
		repo:       repo,
		uploader:   uploader,
		processos:  processos,
		assinantes: assinantes,
		now:        time.Now,
	}
}

// Create registra um documento. Quando há conteúdo HTML inline, o hash
// do conteúdo é calculado e gravado junto.
func (s *Service) Create(ctx context.Context, input CreateInput, criadoPor int64) (*Documento, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	if input.Nome == "" {
		return nil, fmt.Errorf("%w: nome obrigatório", ErrValidacao)
	}
	input.TipoDocumento = NormalizeTipo(input.TipoDocumento)
	if !IsValidTipo(input.TipoDocumento) {
		return nil, fmt.Errorf("%w: tipo de documento inválido", ErrValidacao)
	}
	input.NivelAcesso = processo.NormalizeNivelAcesso(input.NivelAcesso)
	if !processo.IsValidNivelAcesso(input.NivelAcesso) {
		return nil, fmt.Errorf("%w: nível de acesso inválido", ErrValidacao)
	}

	if _, err := s.processos.Get(ctx, input.ProcessoID); err != nil {
		return nil, err
	}

	d := &Documento{
		ProcessoID:       input.ProcessoID,
		TipoDocumento:    input.TipoDocumento,
		Nome:             input.Nome,
		Descricao:        input.Descricao,
		NumeroDocumento:  input.NumeroDocumento,
		DataDocumento:    input.DataDocumento,
		NumeroExterno:    input.NumeroExterno,
		Remetente:        input.Remetente,
		NivelAcesso:      input.NivelAcesso,
		RequerAssinatura: input.RequerAssinatura,
		Ordem:            input.Ordem,
		ConteudoHTML:     input.ConteudoHTML,
		Status:           StatusAtivo,
		CriadoPor:        criadoPor,
	}
	if input.ConteudoHTML != nil {
		hash := Fingerprint([]byte(*input.ConteudoHTML))
		d.ArquivoHash = &hash
	}

	return s.repo.Create(ctx, d)
}

// Upload envia o arquivo ao armazenamento de blobs e registra o
// documento. Se a gravação do blob falhar, nenhum registro é criado.
// Se o insert falhar depois do blob gravado, o blob órfão é apenas
// logado e a operação reporta falha.
func (s *Service) Upload(ctx context.Context, input UploadInput, criadoPor int64) (*Documento, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	if input.Nome == "" {
		input.Nome = input.NomeOriginal
	}
	if strings.TrimSpace(input.Nome) == "" {
		return nil, fmt.Errorf("%w: nome obrigatório", ErrValidacao)
	}
	if len(input.Conteudo) == 0 {
		return nil, fmt.Errorf("%w: arquivo vazio", ErrValidacao)
	}
	input.TipoDocumento = NormalizeTipo(input.TipoDocumento)
	if !IsValidTipo(input.TipoDocumento) {
		return nil, fmt.Errorf("%w: tipo de documento inválido", ErrValidacao)
	}

	if _, err := s.processos.Get(ctx, input.ProcessoID); err != nil {
		return nil, err
	}

	key := storage.ChaveDocumento(input.ProcessoID, input.NomeOriginal)
	res, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         key,
		Body:        input.Conteudo,
		ContentType: input.ContentType,
	})
	if err != nil {
		return nil, err
	}

	hash := Fingerprint(input.Conteudo)
	tamanho := int64(len(input.Conteudo))
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	d := &Documento{
		ProcessoID:     input.ProcessoID,
		TipoDocumento:  input.TipoDocumento,
		Nome:           input.Nome,
		Descricao:      input.Descricao,
		NivelAcesso:    processo.NivelPublico,
		ArquivoURL:     &res.URL,
		ArquivoNome:    &input.NomeOriginal,
		ArquivoTamanho: &tamanho,
		ArquivoTipo:    &contentType,
		ArquivoHash:    &hash,
		Status:         StatusAtivo,
		CriadoPor:      criadoPor,
	}

	criado, err := s.repo.Create(ctx, d)
	if err != nil {
		log.Warn().Str("key", key).Int64("processo_id", input.ProcessoID).
			Err(err).Msg("blob órfão após falha no registro do documento")
		return nil, err
	}
	return criado, nil
}

// Get busca o documento pelo id, inclusive cancelados.
func (s *Service) Get(ctx context.Context, id int64) (*Documento, error) {
	return s.repo.Get(ctx, id)
}

// List devolve os documentos ativos do processo, na ordem definida e
// depois por criação.
func (s *Service) List(ctx context.Context, processoID int64) ([]Documento, error) {
	if _, err := s.processos.Get(ctx, processoID); err != nil {
		return nil, err
	}
	return s.repo.ListAtivos(ctx, processoID)
}

// Update aplica atualização parcial. Alterar o conteúdo HTML recalcula
// o hash; assinaturas feitas sobre o hash anterior permanecem válidas,
// vinculadas ao conteúdo que assinaram.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, usuarioID int64) (*Documento, error) {
	atual, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if atual.Status == StatusCancelado {
		return nil, ErrCancelado
	}
	if input.Empty() {
		return nil, ErrSemAlteracao
	}

	if input.Nome != nil {
		nome := strings.TrimSpace(*input.Nome)
		if nome == "" {
			return nil, fmt.Errorf("%w: nome não pode ser vazio", ErrValidacao)
		}
		input.Nome = &nome
	}
	if input.NivelAcesso != nil {
		nivel := processo.NormalizeNivelAcesso(*input.NivelAcesso)
		if !processo.IsValidNivelAcesso(nivel) {
			return nil, fmt.Errorf("%w: nível de acesso inválido", ErrValidacao)
		}
		input.NivelAcesso = &nivel
	}

	var novoHash *string
	if input.ConteudoHTML != nil {
		hash := Fingerprint([]byte(*input.ConteudoHTML))
		novoHash = &hash
	}

	return s.repo.Update(ctx, id, input, novoHash)
}

// Cancelar marca o documento como cancelado. A operação é irreversível
// e o documento some das listagens, mas continua recuperável pelo id.
func (s *Service) Cancelar(ctx context.Context, id int64, motivo string, usuarioID int64) (*Documento, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, fmt.Errorf("%w: motivo obrigatório", ErrValidacao)
	}

	atual, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if atual.Status == StatusCancelado {
		return nil, ErrCancelado
	}

	return s.repo.Cancelar(ctx, id, motivo, usuarioID, s.now().UTC())
}

// Reordenar grava a posição de cada documento conforme a lista
// recebida. Ids que não pertencem ao processo são ignorados.
func (s *Service) Reordenar(ctx context.Context, processoID int64, ordem []int64) error {
	if len(ordem) == 0 {
		return fmt.Errorf("%w: lista de ordem vazia", ErrValidacao)
	}
	if _, err := s.processos.Get(ctx, processoID); err != nil {
		return err
	}
	return s.repo.Reordenar(ctx, processoID, ordem)
}

// Assinar registra a assinatura eletrônica do usuário sobre o hash
// atual do documento, exigindo a senha da conta como confirmação.
func (s *Service) Assinar(ctx context.Context, documentoID int64, senha string, cargoFuncao *string, usuarioID int64) (*Assinatura, error) {
	if senha == "" {
		return nil, fmt.Errorf("%w: senha obrigatória", ErrValidacao)
	}

	d, err := s.repo.Get(ctx, documentoID)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusCancelado {
		return nil, ErrCancelado
	}
	if d.ArquivoHash == nil {
		return nil, ErrSemConteudo
	}

	ja, err := s.repo.TemAssinatura(ctx, documentoID, usuarioID)
	if err != nil {
		return nil, err
	}
	if ja {
		return nil, ErrJaAssinado
	}

	assinante, err := s.assinantes.GetAssinante(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	ok, err := auth.Verify(senha, assinante.SenhaHash)
	if err != nil {
		return nil, fmt.Errorf("verificar senha: %w", err)
	}
	if !ok {
		return nil, ErrSenhaIncorreta
	}

	if cargoFuncao == nil {
		cargoFuncao = assinante.Cargo
	}

	return s.repo.CriarAssinatura(ctx, &Assinatura{
		DocumentoID:    documentoID,
		UsuarioID:      usuarioID,
		NomeAssinante:  assinante.Nome,
		CpfAssinante:   assinante.CPF,
		CargoFuncao:    cargoFuncao,
		TipoAssinatura: AssinaturaEletronica,
		HashDocumento:  *d.ArquivoHash,
		AssinadoEm:     s.now().UTC(),
		Valido:         true,
	})
}

// Assinaturas lista as assinaturas do documento.
func (s *Service) Assinaturas(ctx context.Context, documentoID int64) ([]Assinatura, error) {
	if _, err := s.repo.Get(ctx, documentoID); err != nil {
		return nil, err
	}
	return s.repo.ListAssinaturas(ctx, documentoID)
}
