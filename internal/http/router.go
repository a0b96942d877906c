package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cbbasquete/processos/internal/auth"
	"github.com/cbbasquete/processos/internal/config"
	"github.com/cbbasquete/processos/internal/dashboard"
	"github.com/cbbasquete/processos/internal/documento"
	httpmiddleware "github.com/cbbasquete/processos/internal/http/middleware"
	"github.com/cbbasquete/processos/internal/processo"
	"github.com/cbbasquete/processos/internal/protocolo"
	"github.com/cbbasquete/processos/internal/setor"
	"github.com/cbbasquete/processos/internal/storage"
	"github.com/cbbasquete/processos/internal/tramitacao"
	"github.com/cbbasquete/processos/internal/usuario"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	usuarios      *usuario.Service
	setores       *setor.PgRepository
	dashboard     *dashboard.Service
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter devolve roteador configurado com todos os módulos.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (http.Handler, error) {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	usuarioService := usuario.NewService(
		usuario.NewPgRepository(pool),
		usuario.NewRedisTokenStore(redisClient),
		jwtManager,
		cfg.JWTRefreshTTL,
	)

	allocator := protocolo.NewAllocator(protocolo.NewPgSequencer(pool))
	processoService := processo.NewService(processo.NewPgRepository(pool), allocator)
	tramitacaoService := tramitacao.NewService(tramitacao.NewPgRepository(pool), processoService)

	var uploader storage.Uploader = storage.NoopUploader{}
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3Uploader(storage.S3Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			Bucket:       cfg.Storage.Bucket,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			PublicDomain: cfg.Storage.PublicDomain,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		uploader = s3
	}

	documentoService := documento.NewService(
		documento.NewPgRepository(pool),
		uploader,
		processoService,
		usuarioService,
	)

	dashboardService := dashboard.NewService(dashboard.NewPgRepository(pool), redisClient)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		usuarios:      usuarioService,
		setores:       setor.NewPgRepository(pool),
		dashboard:     dashboardService,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	processoHandler := processo.NewHandler(processoService)
	tramitacaoHandler := tramitacao.NewHandler(tramitacaoService)
	documentoHandler := documento.NewHandler(documentoService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(authRouter chi.Router) {
			authRouter.Post("/login", h.Login)
			authRouter.Post("/register", h.Register)
			authRouter.Post("/refresh", h.Refresh)
			authRouter.Post("/logout", h.Logout)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(jwtManager))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Get("/setores", h.ListSetores)
		private.Get("/setores/{id}", h.GetSetor)
		private.Get("/dashboard/stats", h.DashboardStats)

		processoHandler.RegisterRoutes(private)
		tramitacaoHandler.RegisterRoutes(private)
		documentoHandler.RegisterRoutes(private)
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
