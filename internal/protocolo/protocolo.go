package protocolo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Sigla do órgão embutida em todos os números de protocolo.
const Sigla = "CBB"

// Dígito verificador fixo. Os números já emitidos usam o literal 1 e o
// formato precisa permanecer byte a byte compatível com eles.
const digitoVerificador = 1

var (
	// ErrFormatoInvalido indica número fora do padrão AAAA.CBB.NNNNNN-D.
	ErrFormatoInvalido = errors.New("número de protocolo inválido")

	padraoNumero = regexp.MustCompile(`^(\d{4})\.` + Sigla + `\.(\d{6})-(\d)$`)
)

// Format monta o número de protocolo no padrão AAAA.CBB.NNNNNN-D.
func Format(ano int, sequencia int64) string {
	return fmt.Sprintf("%04d.%s.%06d-%d", ano, Sigla, sequencia, digitoVerificador)
}

// Parse extrai ano e sequência de um número de protocolo.
func Parse(numero string) (ano int, sequencia int64, err error) {
	m := padraoNumero.FindStringSubmatch(numero)
	if m == nil {
		return 0, 0, ErrFormatoInvalido
	}

	ano, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, ErrFormatoInvalido
	}
	sequencia, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, 0, ErrFormatoInvalido
	}
	return ano, sequencia, nil
}
