package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestUploader(t *testing.T, handler http.HandlerFunc) *S3Uploader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := NewS3Uploader(S3Config{
		Endpoint:     srv.URL,
		Region:       "auto",
		Bucket:       "documentos",
		AccessKey:    "chave",
		SecretKey:    "segredo",
		PublicDomain: "https://arquivos.cbb.com.br",
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("uploader: %v", err)
	}
	return u
}

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	})

	res, err := u.Upload(context.Background(), UploadInput{
		Key:         "processos/1/arquivo.pdf",
		Body:        []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotPath != "/documentos/processos/1/arquivo.pdf" {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=chave/") {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotContentType != "application/pdf" {
		t.Errorf("content-type = %q", gotContentType)
	}
	if res.URL != "https://arquivos.cbb.com.br/processos/1/arquivo.pdf" {
		t.Errorf("url = %q", res.URL)
	}
	if res.ETag != "abc123" {
		t.Errorf("etag = %q", res.ETag)
	}
}

func TestUploadFalhaBackend(t *testing.T) {
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "acesso negado", http.StatusForbidden)
	})

	_, err := u.Upload(context.Background(), UploadInput{
		Key:  "processos/1/arquivo.pdf",
		Body: []byte("dados"),
	})
	if !errors.Is(err, ErrEnvio) {
		t.Fatalf("err = %v, esperado ErrEnvio", err)
	}
}

func TestUploadValidaEntrada(t *testing.T) {
	u := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("não deveria chegar ao backend")
	})

	if _, err := u.Upload(context.Background(), UploadInput{Key: "", Body: []byte("x")}); !errors.Is(err, ErrEnvio) {
		t.Fatalf("chave vazia: err = %v", err)
	}
	if _, err := u.Upload(context.Background(), UploadInput{Key: "a", Body: nil}); !errors.Is(err, ErrEnvio) {
		t.Fatalf("corpo vazio: err = %v", err)
	}
}

func TestChaveDocumento(t *testing.T) {
	chave := ChaveDocumento(42, "Parecer Final.PDF")
	if !strings.HasPrefix(chave, "processos/42/") {
		t.Errorf("chave = %q", chave)
	}
	if !strings.HasSuffix(chave, ".pdf") {
		t.Errorf("extensão não preservada: %q", chave)
	}

	semExt := ChaveDocumento(42, "arquivo")
	if strings.Contains(strings.TrimPrefix(semExt, "processos/42/"), ".") {
		t.Errorf("chave sem extensão = %q", semExt)
	}

	if ChaveDocumento(42, "a.pdf") == ChaveDocumento(42, "a.pdf") {
		t.Error("chaves deveriam ser únicas por upload")
	}
}

func TestNoopUploader(t *testing.T) {
	_, err := NoopUploader{}.Upload(context.Background(), UploadInput{Key: "a", Body: []byte("x")})
	if !errors.Is(err, ErrNaoConfigurado) {
		t.Fatalf("err = %v, esperado ErrNaoConfigurado", err)
	}
}
