package auth

import (
	"github.com/alexedwards/argon2id"
)

// Parâmetros Argon2id usados para senhas de usuários e para a
// confirmação de senha na assinatura eletrônica de documentos.
var hashParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera o hash Argon2id da senha em texto claro.
func Hash(senha string) (string, error) {
	return argon2id.CreateHash(senha, hashParams)
}

// Verify confere a senha contra o hash armazenado. Os parâmetros de
// derivação são lidos do próprio hash.
func Verify(senha, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(senha, hash)
}
