package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradevault/config"
	"tradevault/crypto"
	"tradevault/native/deed"
	"tradevault/native/escrow"
	"tradevault/native/token"
	"tradevault/observability/logging"
	"tradevault/rpc"
	"tradevault/state"
	"tradevault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("TRADEVAULT_ENV"))
	logger := logging.Setup("tradevaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	tokens := token.NewLedger(manager)
	deeds := deed.NewLedger(manager)

	admin, err := parseAdmin(cfg)
	if err != nil {
		logger.Error("invalid genesis admin", slog.Any("error", err))
		os.Exit(1)
	}

	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetPauses(manager)
	if err := engine.Initialize(admin, escrow.ModuleVaultAddress(), tokens, deeds); err != nil {
		logger.Error("failed to initialize escrow engine", slog.Any("error", err))
		os.Exit(1)
	}

	if err := applyGenesis(cfg, manager, engine, tokens, deeds, admin); err != nil {
		logger.Error("failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		ops := chi.NewRouter()
		ops.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		ops.Handle("/metrics", promhttp.Handler())
		logger.Info("starting ops server", slog.String("addr", cfg.OpsAddress))
		if err := http.ListenAndServe(cfg.OpsAddress, ops); err != nil {
			logger.Error("ops server stopped", slog.Any("error", err))
		}
	}()

	server := rpc.NewServer(engine, tokens, deeds, logger)
	logger.Info("node ready",
		slog.String("network", cfg.NetworkName),
		slog.String("admin", cfg.Genesis.Admin),
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func parseAdmin(cfg *config.Config) ([20]byte, error) {
	var admin [20]byte
	trimmed := strings.TrimSpace(cfg.Genesis.Admin)
	if trimmed == "" {
		return admin, fmt.Errorf("genesis admin address required")
	}
	decoded, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return admin, err
	}
	copy(admin[:], decoded.Bytes())
	return admin, nil
}

// applyGenesis seeds the mediator registry and both ledgers exactly once per
// database. Registry writes are idempotent, so they run on every boot to pick
// up mediators added to the config later.
func applyGenesis(cfg *config.Config, manager *state.Manager, engine *escrow.Engine, tokens *token.Ledger, deeds *deed.Ledger, admin [20]byte) error {
	for _, encoded := range cfg.Genesis.Mediators {
		decoded, err := crypto.DecodeAddress(encoded)
		if err != nil {
			return err
		}
		var mediator [20]byte
		copy(mediator[:], decoded.Bytes())
		if err := engine.RegisterMediator(admin, mediator); err != nil {
			return err
		}
	}

	applied, err := manager.GenesisApplied()
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	for _, balance := range cfg.Genesis.Balances {
		decoded, err := crypto.DecodeAddress(balance.Address)
		if err != nil {
			return err
		}
		var owner [20]byte
		copy(owner[:], decoded.Bytes())
		amount, ok := new(big.Int).SetString(strings.TrimSpace(balance.Amount), 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("invalid genesis balance amount %q", balance.Amount)
		}
		if err := tokens.Mint(owner, amount); err != nil {
			return err
		}
	}
	for _, item := range cfg.Genesis.Deeds {
		decoded, err := crypto.DecodeAddress(item.Owner)
		if err != nil {
			return err
		}
		var owner [20]byte
		copy(owner[:], decoded.Bytes())
		if err := deeds.Mint(owner, item.AssetID); err != nil {
			return err
		}
	}
	return manager.SetGenesisApplied()
}
