package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrEnvio indica falha ao gravar o blob no backend.
	ErrEnvio = errors.New("falha ao enviar arquivo ao armazenamento")

	// ErrNaoConfigurado indica ausência de backend de armazenamento.
	ErrNaoConfigurado = errors.New("armazenamento de arquivos não configurado")
)

// UploadInput descreve um blob a persistir.
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader define o comportamento mínimo para armazenar arquivos de
// documentos.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// ChaveDocumento monta a chave do objeto para um arquivo de documento,
// agrupando por processo e evitando colisão de nomes.
func ChaveDocumento(processoID int64, nomeOriginal string) string {
	ext := ""
	if idx := strings.LastIndex(nomeOriginal, "."); idx >= 0 && idx < len(nomeOriginal)-1 {
		ext = strings.ToLower(nomeOriginal[idx:])
	}
	return fmt.Sprintf("processos/%d/%s%s", processoID, uuid.NewString(), ext)
}

// NoopUploader é usado quando nenhum backend foi configurado.
type NoopUploader struct{}

func (NoopUploader) Upload(context.Context, UploadInput) (*UploadResult, error) {
	return nil, ErrNaoConfigurado
}
