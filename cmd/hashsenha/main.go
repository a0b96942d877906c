package main

import (
	"fmt"
	"os"

	"github.com/cbbasquete/processos/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: hashsenha <senha>")
		os.Exit(1)
	}

	hash, err := auth.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro ao gerar hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
