// Command earnsim runs the demo investment platform core: the earnings
// simulation engine, the wallet/ledger state machine and a thin JSON HTTP
// surface over them.
//
// Usage:
//
//	earnsim --config config.yaml
//	earnsim --addr :8080 --waldir ./wal/ledger --statedir ./state/wallets
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dvvsdvc5-arch/chuangzuo/config"
	"github.com/dvvsdvc5-arch/chuangzuo/internal"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/services/ledger"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/storage/ledgerwal"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/storage/walletstate"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/web"
)

func main() {
	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	journal, err := ledgerwal.NewStore(conf.WalDir)
	if err != nil {
		logger.Fatal("failed to open ledger WAL", zap.Error(err))
	}
	defer journal.Close()

	wallets, err := walletstate.NewStore(conf.StateDir, conf.Currency)
	if err != nil {
		logger.Fatal("failed to open wallet state store", zap.Error(err))
	}

	clock := domain.SystemClock()
	sm := ledger.New(journal, wallets, clock, conf.Prices, logger)
	runner := internal.NewRunner(conf.UserID, sm, clock, conf.Platforms, conf.Symbols, logger)
	server := web.NewServer(conf.ListenAddr, conf.UserID, sm, runner, clock, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", conf.ListenAddr))
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		runner.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("stopped")
}
