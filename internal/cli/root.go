// Package cli implements the teachbot CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/teachbot/internal/config"
	"github.com/rcliao/teachbot/internal/engine"
	"github.com/rcliao/teachbot/internal/logging"
	"github.com/rcliao/teachbot/internal/store"
	"github.com/rcliao/teachbot/internal/variant"
)

var (
	configPath string
	dbPath     string
	backend    string
	modelID    string
	storageKey string
	logLevel   string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "teachbot",
	Short: "A chatbot you teach by example",
	Long:  "Teach exchanges, get replies retrieved from what was taught. State persists per model in SQLite, Redis or Badger.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $TEACHBOT_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite path (default: $TEACHBOT_DB or ~/.teachbot/teachbot.db)")
	RootCmd.PersistentFlags().StringVar(&backend, "store", "", "Store backend: sqlite, redis, badger, memory")
	RootCmd.PersistentFlags().StringVarP(&modelID, "model", "m", "", "Model id (see 'teachbot models')")
	RootCmd.PersistentFlags().StringVarP(&storageKey, "key", "k", "", "Storage key (default: teachbot:<model>)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// loadConfig resolves the configuration, letting explicit flags win.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Store.SQLite.Path = dbPath
	}
	if flags.Changed("store") {
		cfg.Store.Backend = store.Backend(backend)
	}
	if flags.Changed("model") {
		cfg.Model.ID = modelID
	}
	if flags.Changed("key") {
		cfg.Model.StorageKey = storageKey
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

// session is everything a command needs to talk to one model.
type session struct {
	cfg      config.Config
	logger   *zap.Logger
	store    store.Store
	registry *engine.Registry
	engine   *engine.Engine
}

func newRegistry(cfg config.Config) (*engine.Registry, error) {
	reg := engine.NewDefaultRegistry()
	if cfg.Model.Profile != "" {
		p, err := variant.LoadFile(cfg.Model.Profile)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, fmt.Errorf("register profile %s: %w", cfg.Model.Profile, err)
		}
	}
	return reg, nil
}

// openSession loads config, opens the store and restores the selected
// model from it.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	p, err := reg.Profile(cfg.Model.ID)
	if err != nil {
		return nil, err
	}
	if cfg.Model.MaxKeep > 0 {
		p.MaxKeep = cfg.Model.MaxKeep
	}

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e := engine.New(p, st, cfg.Model.StorageKey, engine.WithLogger(logger))
	if err := e.LoadErr(); err != nil {
		st.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, store: st, registry: reg, engine: e}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close store", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// readInput joins args, or reads stdin when no args are given and stdin
// is not a terminal.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func textOutput() bool {
	return strings.EqualFold(formatFlag, "text")
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
