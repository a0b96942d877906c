package protocolo

import (
	"context"
	"errors"
)

var (
	// ErrAlocacao indica que nenhum número pôde ser emitido após as
	// tentativas permitidas.
	ErrAlocacao = errors.New("não foi possível gerar número de protocolo")
)

// Sequencer fornece o próximo valor da sequência anual de protocolos.
// A implementação precisa ser atômica por ano: dois chamadores
// concorrentes nunca recebem o mesmo valor.
type Sequencer interface {
	Proximo(ctx context.Context, ano int) (int64, error)
}

// Allocator emite números de protocolo únicos por ano.
type Allocator struct {
	seq        Sequencer
	maxRetries int
}

// NewAllocator cria o alocador sobre a sequência informada.
func NewAllocator(seq Sequencer) *Allocator {
	return &Allocator{seq: seq, maxRetries: 3}
}

// MaxRetries informa quantas tentativas o chamador pode fazer ao
// detectar violação de unicidade antes de desistir.
func (a *Allocator) MaxRetries() int {
	return a.maxRetries
}

// Allocate obtém a próxima sequência do ano e formata o número.
// Lacunas são aceitáveis quando a criação do processo aborta depois da
// emissão; duplicidade nunca.
func (a *Allocator) Allocate(ctx context.Context, ano int) (string, error) {
	seq, err := a.seq.Proximo(ctx, ano)
	if err != nil {
		return "", err
	}
	return Format(ano, seq), nil
}
