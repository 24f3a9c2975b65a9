package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pvzzle/miniwallet/internal/chain"
	"github.com/pvzzle/miniwallet/internal/contacts"
	"github.com/pvzzle/miniwallet/internal/explorer"
	"github.com/pvzzle/miniwallet/internal/history"
	"github.com/pvzzle/miniwallet/internal/otp"
	"github.com/pvzzle/miniwallet/internal/service"
	"github.com/pvzzle/miniwallet/internal/storage/pg"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	pgPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("pgxpool new: %w", err)
	}
	defer pgPool.Close()

	repo := pg.New(pgPool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	ethCl, err := chain.Dial(ctx, cfg.EthRPCURL, cfg.ConfirmTimeout)
	if err != nil {
		return err
	}
	defer ethCl.Close()

	expl := explorer.New(cfg.ExplorerAPIURL, cfg.ExplorerAPIKey)
	hist := history.NewCache(expl, repo, history.Config{
		TTL:   cfg.HistoryTTL,
		Limit: cfg.HistoryLimit,
	}, log.With().Str("component", "history").Logger())

	book, err := contacts.Load(ctx, repo)
	if err != nil {
		return err
	}

	svc := service.New(ethCl, hist, book, service.Config{
		PollInterval: cfg.BalancePollInterval,
		GasDebounce:  cfg.GasDebounce,
	}, log.With().Str("component", "wallet").Logger())
	defer svc.Logout()

	mailer := otp.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	otpSvc := otp.NewService(mailer, cfg.OTPTTL, log.With().Str("component", "otp").Logger())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	otp.RegisterRoutes(router, otpSvc)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().Str("chain_id", ethCl.ChainID().String()).Str("listen", cfg.ListenAddr).Msg("started")

	select {
	case err := <-errCh:
		return fmt.Errorf("otp relay: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return ctx.Err()
}
