package storage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// S3Config descreve um endpoint compatível com S3 (AWS, R2, MinIO).
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PublicDomain string
	HTTPClient   *http.Client
}

func (cfg S3Config) validate() error {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return errors.New("storage: endpoint do S3 ausente")
	case !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://"):
		return errors.New("storage: endpoint deve incluir protocolo http/https")
	case strings.TrimSpace(cfg.Region) == "":
		return errors.New("storage: região do S3 ausente")
	case strings.TrimSpace(cfg.Bucket) == "":
		return errors.New("storage: bucket do S3 ausente")
	case strings.TrimSpace(cfg.AccessKey) == "":
		return errors.New("storage: access key ausente")
	case strings.TrimSpace(cfg.SecretKey) == "":
		return errors.New("storage: secret key ausente")
	}
	return nil
}

// S3Uploader envia arquivos com assinatura SigV4, sem SDK.
type S3Uploader struct {
	cfg    S3Config
	client *http.Client
	now    func() time.Time
}

func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &S3Uploader{cfg: cfg, client: client, now: time.Now}, nil
}

// Upload grava o objeto no bucket e devolve a URL pública quando um
// domínio público foi configurado.
func (u *S3Uploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, fmt.Errorf("%w: chave do objeto obrigatória", ErrEnvio)
	}
	if len(input.Body) == 0 {
		return nil, fmt.Errorf("%w: corpo vazio", ErrEnvio)
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := strings.TrimLeft(input.Key, "/")
	escapedKey := (&url.URL{Path: key}).EscapedPath()
	endpoint := strings.TrimRight(u.cfg.Endpoint, "/")
	targetURL := fmt.Sprintf("%s/%s/%s", endpoint, u.cfg.Bucket, escapedKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, targetURL, bytes.NewReader(input.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvio, err)
	}

	payloadHash := sha256.Sum256(input.Body)
	payloadHex := hex.EncodeToString(payloadHash[:])

	req.ContentLength = int64(len(input.Body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-amz-content-sha256", payloadHex)

	u.sign(req, payloadHex)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvio, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEnvio, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	publicURL := targetURL
	if dominio := strings.TrimSpace(u.cfg.PublicDomain); dominio != "" {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(dominio, "/"), escapedKey)
	}

	return &UploadResult{
		URL:  publicURL,
		ETag: strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}

// sign aplica SigV4 sobre o conjunto fixo de cabeçalhos que o uploader
// envia: content-type, host, x-amz-content-sha256 e x-amz-date.
func (u *S3Uploader) sign(req *http.Request, payloadHash string) {
	now := u.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	req.Header.Set("x-amz-date", amzDate)

	canonicalHeaders := strings.Join([]string{
		"content-type:" + req.Header.Get("Content-Type"),
		"host:" + req.URL.Host,
		"x-amz-content-sha256:" + payloadHash,
		"x-amz-date:" + amzDate,
	}, "\n") + "\n"
	const signedHeaders = "content-type;host;x-amz-content-sha256;x-amz-date"

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
	hashedRequest := sha256.Sum256([]byte(canonicalRequest))

	scope := fmt.Sprintf("%s/%s/s3/aws4_request", dateStamp, u.cfg.Region)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hex.EncodeToString(hashedRequest[:]),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+u.cfg.SecretKey), []byte(dateStamp))
	key = hmacSHA256(key, []byte(u.cfg.Region))
	key = hmacSHA256(key, []byte("s3"))
	key = hmacSHA256(key, []byte("aws4_request"))
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		u.cfg.AccessKey, scope, signedHeaders, signature,
	))
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
