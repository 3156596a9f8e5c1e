package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"feaprep/internal/adapter"
	"feaprep/internal/config"
	"feaprep/internal/log"
	"feaprep/internal/repository"
	"feaprep/internal/repository/sqlite"
	"feaprep/internal/service"
)

var (
	v       *viper.Viper
	cfg     *config.Config
	cfgPath string
)

// rootCmd represents the base command when called without any sub commands
var rootCmd = &cobra.Command{
	Use:   "feaprep",
	Short: "Preprocessor for 2D structural finite element models.",
	Long: `feaprep validates a declarative model document, generates a gmsh geometry
script, meshes it and converts the mesh into SolidsPy node, element, material
and load tables.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "tool config file (default: $FEAPREP_CONFIG, ./feaprep.yaml, XDG, /etc/feaprep)")
	flags.String("log-level", "info", "log level: debug, info, warning, error")
	flags.String("catalog", "", "run catalog database path")
	flags.Bool("no-catalog", false, "do not record runs")
}

// flagKeys maps command line flags to the config keys they override. Flags
// are bound for the running command only, since several commands declare the
// same flag.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"catalog":    "catalog.path",
	"no-catalog": "catalog.disabled",
	"mesher":     "mesher",
	"timeout":    "gmsh.timeout",
	"gmsh":       "gmsh.path",
	"jobs":       "sweep.parallelism",
}

func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func loadConfig(cmd *cobra.Command, args []string) error {
	log.Default()
	v = config.New()
	if err := bindFlags(cmd); err != nil {
		return err
	}

	var err error
	if cfgPath != "" {
		cfg, _, err = config.LoadFromPath(v, cfgPath)
	} else {
		cfg, cfgPath, err = config.Load(v)
	}
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if cfgPath != "" {
		log.Debugf("config loaded from %s", cfgPath)
	}
	return nil
}

// signalContext is cancelled on interrupt so a running gmsh is killed
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRegistry() (*adapter.Registry, error) {
	registry := adapter.NewRegistry()
	gmsh := adapter.NewGmshAdapter(
		adapter.WithBinary(cfg.Gmsh.Path),
		adapter.WithTimeout(cfg.Gmsh.Timeout),
		adapter.WithKeepFiles(cfg.Gmsh.KeepFiles),
	)
	if err := registry.Register(gmsh); err != nil {
		return nil, err
	}
	if err := registry.Register(adapter.NewStructuredMesher()); err != nil {
		return nil, err
	}
	return registry, nil
}

func openCatalog() (repository.Catalog, error) {
	if cfg.Catalog.Disabled {
		return nil, nil
	}
	if err := config.EnsureDir(cfg.Catalog.Path); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	catalog, err := sqlite.New(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("open run catalog %s: %w", cfg.Catalog.Path, err)
	}
	log.Debugf("run catalog opened: %s", cfg.Catalog.Path)
	return catalog, nil
}

// newService wires the pipeline. The returned function releases the catalog.
func newService() (*service.ConversionService, func(), error) {
	registry, err := newRegistry()
	if err != nil {
		return nil, nil, err
	}
	catalog, err := openCatalog()
	if err != nil {
		return nil, nil, err
	}

	eventBus := service.NewEventBus()
	events := make(chan service.Event, 100)
	eventBus.Subscribe(events)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			if stage, ok := event.Payload.(service.StageEvent); ok {
				log.Debugf("event %s run=%s model=%q %s", event.Type, stage.RunID, stage.Model, stage.Detail)
			}
		}
	}()

	svc := service.NewConversionService(registry, catalog, eventBus, cfg.Mesher)
	closeFn := func() {
		eventBus.Unsubscribe(events)
		close(events)
		<-done
		if catalog != nil {
			if err := catalog.Close(); err != nil {
				log.Warningf("closing run catalog: %v", err)
			}
		}
	}
	return svc, closeFn, nil
}
