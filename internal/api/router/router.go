package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"pololo/internal/api/catalog"
	"pololo/internal/api/home"
	"pololo/internal/api/httpio"
	"pololo/internal/api/product"
	"pololo/internal/api/size"
	"pololo/internal/api/user"
	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/cache"
	"pololo/internal/pkg/logger"
	"pololo/internal/pkg/middleware"
)

// Pinger é satisfeito por *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers reúne os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Product *product.Handler
	Catalog *catalog.Handler
	Size    *size.Handler
	User    *user.Handler
	Home    *home.Handler
}

// Options são as dependências de infraestrutura do roteador.
type Options struct {
	TokenSvc         middleware.TokenService
	Cache            cache.Client // pode ser nil: sem rate limit
	DB               Pinger
	Logger           logger.Logger
	CORSOrigin       string
	TrustProxy       bool
	UploadDir        string
	PublicUploadPath string
	RateLimitMax     int
	RateLimitPeriod  time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	// Sem proxy confiável os cabeçalhos de IP são do cliente e o rate limit usa o peer TCP.
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logger.ZerologOf(opts.Logger)))
	r.Use(middleware.CORS(opts.CORSOrigin))

	r.Get("/ping", PingHandler)
	r.Get("/api/health", HealthHandler(opts.DB, opts.Logger))

	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if opts.UploadDir != "" {
		prefix := opts.PublicUploadPath
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(opts.UploadDir)))
		r.Get(prefix+"/*", fs.ServeHTTP)
	}

	auth := middleware.NewAuthMiddleware(opts.TokenSvc)
	adminOnly := middleware.PermissionMiddleware(domain.RoleAdmin)
	loginLimit := middleware.RateLimiter(opts.Cache, opts.RateLimitMax, opts.RateLimitPeriod, opts.Logger)

	r.Route("/api", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/login", h.User.LoginUserHandler)

		r.Get("/home", h.Home.GetHomeHandler)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Catalog.ListProductsHandler)
			r.Get("/search", h.Catalog.SearchHandler)
			r.Get("/sizes/type/{type}", h.Size.SizesByTypeHandler)
			r.Get("/{id}", h.Catalog.GetProductHandler)
			r.Get("/{id}/sizes", h.Size.ProductSizesHandler)

			r.Group(func(r chi.Router) {
				r.Use(auth, adminOnly)
				r.Post("/", h.Product.CreateProductHandler)
				r.Put("/{id}", h.Product.UpdateProductHandler)
				r.Put("/{id}/sizes", h.Product.UpdateSizesHandler)
				r.Delete("/{id}/images/{imageId}", h.Product.DeleteImageHandler)
				r.Delete("/{id}", h.Product.DeleteProductHandler)
			})
		})

		r.Route("/admin/home", func(r chi.Router) {
			r.Use(auth, adminOnly)

			r.Get("/carousel", h.Home.ListCarouselHandler)
			r.Post("/carousel", h.Home.CreateCarouselHandler)
			r.Put("/carousel/{id}", h.Home.UpdateCarouselHandler)
			r.Delete("/carousel/{id}", h.Home.DeleteCarouselHandler)
			r.Patch("/carousel/{id}/toggle", h.Home.ToggleCarouselHandler)

			r.Get("/products", h.Home.ListFeaturedHandler)
			r.Post("/products", h.Home.CreateFeaturedHandler)
			r.Put("/products/{id}", h.Home.UpdateFeaturedHandler)
			r.Delete("/products/{id}", h.Home.DeleteFeaturedHandler)
			r.Patch("/products/{id}/toggle", h.Home.ToggleFeaturedHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpio.Error(w, r, opts.Logger, apperror.NewNotFoundError("rota "+r.URL.Path))
	})

	return r
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// HealthResponse é o corpo de GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler verifica a conexão com o banco.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/health [get]
func HealthHandler(db Pinger, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Database: "ok"}
		status := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				log.Warn("Health check: banco indisponível.", map[string]interface{}{"error": err.Error()})
				resp = HealthResponse{Status: "degraded", Database: "unavailable"}
				status = http.StatusServiceUnavailable
			}
		}

		httpio.Respond(w, r, log, resp, nil, status)
	}
}
