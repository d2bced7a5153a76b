// Package app wires the configured components together for the server and
// the command line tools.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/api"
	"github.com/debemdeboas/archive-ledger/internal/archive"
	"github.com/debemdeboas/archive-ledger/internal/auth"
	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/db"
	"github.com/debemdeboas/archive-ledger/internal/diff"
	"github.com/debemdeboas/archive-ledger/internal/ledger"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/render"
	"github.com/debemdeboas/archive-ledger/internal/repository"
	"github.com/debemdeboas/archive-ledger/internal/routes"
	"github.com/debemdeboas/archive-ledger/internal/sse"
	"github.com/debemdeboas/archive-ledger/internal/util/compression"
)

// SetLoggers hands l to every package that logs.
func SetLoggers(l zerolog.Logger) {
	config.SetLogger(l.With().Str("component", "config").Logger())
	db.SetLogger(l.With().Str("component", "db").Logger())
	repository.SetLogger(l.With().Str("component", "repository").Logger())
	ledger.SetLogger(l.With().Str("component", "ledger").Logger())
	render.SetLogger(l.With().Str("component", "render").Logger())
	sse.SetLogger(l.With().Str("component", "sse").Logger())
	auth.SetLogger(l.With().Str("component", "auth").Logger())
	api.SetLogger(l.With().Str("component", "api").Logger())
	archive.SetLogger(l.With().Str("component", "archive").Logger())
}

// OpenStore opens the configured database, creates the schema and wraps it
// in a store.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (repository.Store, error) {
	compressor, err := compression.ByName(cfg.Compression)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.InitDB(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
	}

	return repository.NewDBStore(database, compressor), nil
}

// NewAuthProvider builds the identity provider. With authentication disabled
// every request acts as the configured user.
func NewAuthProvider(cfg config.AuthConfig) (auth.Provider, error) {
	if !cfg.Enabled {
		return auth.StaticProvider{User: model.UserID(cfg.UserID)}, nil
	}

	switch cfg.Type {
	case "clerk":
		key := os.Getenv(config.EnvClerkKey)
		if key == "" {
			return nil, fmt.Errorf("%s is required for clerk authentication", config.EnvClerkKey)
		}
		return auth.NewClerkAuthProvider(key), nil
	default:
		p, err := auth.NewEd25519AuthProvider(os.Getenv(config.EnvEd25519PubKey), cfg.HeaderName, model.UserID(cfg.UserID))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.EnvEd25519PubKey, err)
		}
		return p, nil
	}
}

// NewSink builds the archive destination.
func NewSink(ctx context.Context, cfg config.ArchiveConfig) (archive.Sink, error) {
	if cfg.Driver == "s3" {
		return archive.NewS3Sink(ctx, archive.S3Options{
			Bucket:          cfg.Bucket,
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     os.Getenv(config.EnvS3AccessKey),
			AccessKeySecret: os.Getenv(config.EnvS3SecretKey),
		})
	}
	return archive.NewFSSink(cfg.Dir), nil
}

// App is the assembled server.
type App struct {
	Store    repository.Store
	Ledger   *ledger.Service
	Diff     *diff.Engine
	Renderer *render.Renderer
	Clients  *sse.SSEClients
	Auth     auth.Provider
	Handler  http.Handler
}

// New builds the server over store. New versions are pushed to event
// subscribers and pre-rendered for preview.
func New(cfg *config.Config, store repository.Store, provider auth.Provider, l zerolog.Logger) *App {
	a := &App{
		Store:    store,
		Ledger:   ledger.New(store),
		Renderer: render.NewRenderer(cfg.Render.Engine, cfg.Render.SyntaxTheme),
		Clients:  sse.NewSSEClients(),
		Auth:     provider,
	}
	a.Diff = diff.NewEngine(a.Ledger)

	a.Ledger.SetVersionNotifier(func(v *model.Version) {
		a.Clients.NotifyVersion(v)
		a.Renderer.Warm(v)
	})

	mux := http.NewServeMux()
	handler := api.New(a.Ledger, a.Diff, a.Renderer, provider)
	for _, prefix := range cfg.Server.Mounts {
		handler.Mount(mux, prefix)
	}

	mux.Handle("GET "+routes.Events, a.Clients)
	mux.HandleFunc("GET "+routes.Health, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, config.CTypeText)
		w.Write([]byte("ok"))
	})
	if p, ok := provider.(*auth.Ed25519AuthProvider); ok {
		auth.RegisterEd25519AuthRoutes(mux, p)
	}

	a.Handler = api.Wrap(l, provider, mux)
	return a
}

func (a *App) Close() error {
	return a.Store.Close()
}
