package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"paystream/config"
	"paystream/core/events"
	"paystream/core/state"
	"paystream/core/types"
	"paystream/crypto"
	"paystream/native/streams"
	"paystream/observability/logging"
	"paystream/rpc"
	"paystream/storage"
)

// slogEmitter forwards engine events to the structured logger so operators
// can observe stream activity without an external indexer.
type slogEmitter struct {
	log *slog.Logger
}

type eventPayload interface {
	Event() *types.Event
}

func (e slogEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	attrs := []any{slog.String("event", evt.EventType())}
	if payload, ok := evt.(eventPayload); ok && payload.Event() != nil {
		for key, value := range payload.Event().Attributes {
			attrs = append(attrs, slog.String(key, value))
		}
	}
	e.log.Info("ledger event", attrs...)
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BackendBolt:
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "paystream.db"))
	default:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "leveldb"))
	}
}

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger := logging.Setup("paystreamd", cfg.NetworkEnv)

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	manager := state.NewManager(db)
	owners := streams.NewOwnership(manager)
	if cfg.GenesisOwner != "" {
		addr, err := crypto.DecodeAddress(cfg.GenesisOwner)
		if err != nil {
			logger.Error("invalid genesis owner address", "address", cfg.GenesisOwner, "error", err)
			os.Exit(1)
		}
		if err := owners.Bootstrap(addr.Bytes()); err != nil {
			logger.Error("failed to bootstrap owner", "error", err)
			os.Exit(1)
		}
	}

	engine := streams.NewEngine()
	engine.SetState(manager)
	engine.SetGateway(manager)
	engine.SetOwnership(owners)
	engine.SetEmitter(slogEmitter{log: logger})

	logger.Info("starting paystreamd",
		"rpc", cfg.RPCAddress,
		"backend", cfg.Backend,
		"dataDir", cfg.DataDir,
	)
	server := rpc.NewServer(engine, manager)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server terminated", "error", err)
		os.Exit(1)
	}
}
