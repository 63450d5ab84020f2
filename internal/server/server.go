// Package server is the composition root: it wires the store, services and
// handlers together and owns the HTTP server lifecycle.
//
//	POST               /user/create                    register (rate limited)
//	POST               /user/token                     obtain token (rate limited)
//	GET, PATCH         /user/me                        own profile
//	GET, POST          /recipe/tags                    tags
//	GET, POST          /recipe/ingredients             ingredients
//	GET, POST          /recipe/recipes                 recipes
//	GET, PUT, PATCH,   /recipe/recipes/{id}            one recipe
//	DELETE
//	POST, PATCH        /recipe/recipes/{id}/upload-image
//	GET                /media/*                        stored images (local driver)
//	GET                /healthz                        liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/handler"
	"github.com/sakif/recipe-api/internal/middleware"
	"github.com/sakif/recipe-api/internal/model"
	sqliteRepo "github.com/sakif/recipe-api/internal/repository/sqlite"
	"github.com/sakif/recipe-api/internal/service"
	"github.com/sakif/recipe-api/internal/storage"
	"github.com/sakif/recipe-api/internal/storage/local"
	"github.com/sakif/recipe-api/internal/validation"
)

const defaultShutdownTimeout = 30 * time.Second

type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
	// BcryptCost of 0 uses auth.DefaultCost.
	BcryptCost     int
	MaxUploadBytes int

	// MediaPath is the URL path local images are served under.
	MediaPath      string
	AllowedOrigins []string

	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	ShutdownTimeout time.Duration
}

// Server owns the database handle and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	images storage.Store
}

// New builds the router. sqliteRepo.New has already brought db to the
// latest schema.
func New(cfg Config, db *sqliteRepo.DB, images storage.Store, logger *slog.Logger) (*Server, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MediaPath == "" {
		cfg.MediaPath = "/media"
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		images: images,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()
	if s.config.BcryptCost != 0 {
		passwords = auth.NewPasswordServiceWithCost(s.config.BcryptCost)
	}
	validate := validation.New()

	userService := service.NewUserService(s.db.Users(), tokens, passwords, validate, s.logger)
	tagService := service.NewLabelService[model.Tag]("tag", s.db.Tags(), validate, s.logger)
	ingredientService := service.NewLabelService[model.Ingredient]("ingredient", s.db.Ingredients(), validate, s.logger)
	recipeService := service.NewRecipeService(
		s.db.Recipes(), s.db.Tags(), s.db.Ingredients(),
		s.images, validate, s.logger, s.config.MaxUploadBytes,
	)

	users := handler.NewUserHandler(userService, s.logger)
	tags := handler.NewLabelHandler(tagService, s.logger)
	ingredients := handler.NewLabelHandler(ingredientService, s.logger)
	recipes := handler.NewRecipeHandler(recipeService, s.logger)
	health := handler.NewHealthHandler(s.db, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, &apperror.AppError{Err: apperror.ErrNotFound, Message: "Not found."})
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, apperror.MethodNotAllowed(r.Method))
	})

	s.router.Get("/healthz", health.HandleHealth)

	if store, ok := s.images.(*local.Store); ok {
		prefix := "/" + strings.Trim(s.config.MediaPath, "/")
		s.router.Handle(prefix+"/*", http.StripPrefix(prefix+"/", noDirListing(http.FileServer(http.Dir(store.Root())))))
	}

	limiter := middleware.NewRateLimiter(s.config.AuthRateLimitRPS, s.config.AuthRateLimitBurst)
	requireAuth := auth.RequireAuth(tokens, s.db.Users(), handler.WriteError)

	s.router.Route("/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, s.logger))
			r.Post("/create", users.HandleCreate)
			r.Post("/token", users.HandleToken)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", users.HandleMe)
			r.Patch("/me", users.HandleUpdateMe)
		})
	})

	s.router.Route("/recipe", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/tags", tags.HandleList)
		r.Post("/tags", tags.HandleCreate)
		r.Get("/ingredients", ingredients.HandleList)
		r.Post("/ingredients", ingredients.HandleCreate)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipes.HandleList)
			r.Post("/", recipes.HandleCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", recipes.HandleGet)
				r.Put("/", recipes.HandleReplace)
				r.Patch("/", recipes.HandlePatch)
				r.Delete("/", recipes.HandleDelete)
				r.Post("/upload-image", recipes.HandleUploadImage)
				r.Patch("/upload-image", recipes.HandleUploadImage)
			})
		})
	})

	return nil
}

// noDirListing answers directory requests with 404.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			handler.WriteError(w, r, &apperror.AppError{Err: apperror.ErrNotFound, Message: "Not found."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests and closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.config.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
