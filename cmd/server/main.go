package main

import (
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sheikh-saqib/account-ledger-service/internal/balance"
	"github.com/sheikh-saqib/account-ledger-service/internal/config"
	"github.com/sheikh-saqib/account-ledger-service/internal/events/kafka"
	"github.com/sheikh-saqib/account-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/account-ledger-service/internal/server"
	"github.com/sheikh-saqib/account-ledger-service/internal/service"
	"github.com/sheikh-saqib/account-ledger-service/internal/storage/memory"
	"github.com/sheikh-saqib/account-ledger-service/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	var (
		ledgerStore  interfaces.LedgerStore
		accountStore interfaces.AccountStore
	)
	if cfg.PostgresDSN != "" {
		store, err := postgres.NewStore(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("open postgres store", zap.Error(err))
		}
		defer store.Close()
		ledgerStore, accountStore = store, store
		log.Info("using postgres store")
	} else {
		store := memory.NewStore()
		ledgerStore, accountStore = store, store
		log.Warn("no postgres DSN configured, using in-memory store")
	}

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		log.Info("publishing events", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	recalc := balance.NewRecalculator(ledgerStore, log)
	serializer := balance.NewSerializer()
	transactions := service.NewTransactionService(ledgerStore, accountStore, recalc, serializer, publisher, log)
	accounts := service.NewAccountService(accountStore)

	srv := server.NewServer(transactions, accounts, log)
	log.Info("starting server", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}
