package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/config"
	"github.com/GlebRadaev/rewards/internal/expiry"
	"github.com/GlebRadaev/rewards/internal/handlers"
	"github.com/GlebRadaev/rewards/internal/pg"
	"github.com/GlebRadaev/rewards/internal/repo"
	"github.com/GlebRadaev/rewards/internal/service"
	"github.com/GlebRadaev/rewards/pkg/auth"
	"github.com/GlebRadaev/rewards/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	api    *handlers.Handlers
	srv    *service.Services
	repo   *repo.Repositories
	expiry *expiry.Service

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(ctx, pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		pool.Close()
		return fmt.Errorf("can't run migrations: %w", err)
	}
	a.pool = pool
	a.cfg = cfg
	a.wire(pg.New(pool), pg.NewTXManager(pool))

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.startExpiry(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

// wire builds repositories, services and handlers on top of the given connection.
func (a *Application) wire(conn pg.Database, txManager pg.TXManager) {
	a.repo = repo.New(conn, txManager)
	a.srv = service.New(a.repo, clock.NewSystem())
	a.api = handlers.New(a.srv)
	a.expiry = expiry.New(a.cfg, a.srv.Engine)
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) router() chi.Router {
	router := chi.NewRouter()
	return a.api.InitRoutes(router, auth.NewJWTService(a.cfg.JWTSecret))
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sCtx); err != nil {
			zap.L().Error("http server shutdown failed", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) startExpiry(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.expiry.Start(ctx)
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	if a.pool != nil {
		a.pool.Close()
	}
	return appErr
}
