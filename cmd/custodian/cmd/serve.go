package cmd

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/custodian/config"
	"github.com/rustyeddy/custodian/httpapi"
	"github.com/rustyeddy/custodian/journal"
	"github.com/rustyeddy/custodian/ledger"
	"github.com/rustyeddy/custodian/oracle"
	"github.com/rustyeddy/custodian/valuation"
	"github.com/rustyeddy/custodian/vault"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP ledger service",
	Long: `Start the custodial ledger: durable vault store, price source registry,
operation journal, and the HTTP API. State survives restarts; the registry is
rebuilt from its persisted descriptors at startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "config file (YAML or JSON; defaults apply when omitted)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.LoadFromFile(serveConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	jrnl, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if jrnl != nil {
		defer jrnl.Close()
	}

	registry := oracle.NewRegistry(oracle.NewAllowList(cfg.Authorized...))
	registry.SetPersister(store)

	// Rebind persisted descriptors, then apply the configured seed assets on
	// top (seeds overwrite, matching registry semantics).
	resolve := func(spec string) (oracle.Source, error) { return oracle.ParseStatic(spec) }
	recs, err := store.Descriptors()
	if err != nil {
		return err
	}
	if err := registry.Restore(recs, func(name string) (oracle.Source, error) { return resolve(name) }); err != nil {
		return err
	}
	for _, a := range cfg.Assets {
		src, err := resolve(a.Source)
		if err != nil {
			return fmt.Errorf("seed asset %q: %w", a.Asset, err)
		}
		err = registry.Register(cfg.Authorized[0], a.Asset, oracle.Descriptor{
			Source:         src,
			SourceName:     a.Source,
			NativeDecimals: a.NativeDecimals,
		})
		if err != nil {
			return fmt.Errorf("seed asset %q: %w", a.Asset, err)
		}
	}

	engine := valuation.NewEngine(registry, cfg.Ledger.TargetPrecision)

	custodyCap, err := cfg.CustodyCapUnits()
	if err != nil {
		return err
	}
	withdrawalCap, err := cfg.WithdrawalCapUnits()
	if err != nil {
		return err
	}

	// Asset releases are the settlement rail's job. The built-in transferer
	// acknowledges and logs; operators wire a real rail here.
	release := ledger.ReleaseFunc(func(ctx context.Context, asset, user string, amount *big.Int) error {
		log.Printf("release %s %s to %s", amount, asset, user)
		return nil
	})

	led, err := ledger.New(store, engine, release, custodyCap, withdrawalCap)
	if err != nil {
		return err
	}

	if jrnl != nil {
		recorder := journal.NewRecorder(jrnl)
		led.SetListener(recorder)
		registry.SetUpdateListener(recorder)
	}

	api := httpapi.NewServer(led, registry, httpapi.SourceResolver(resolve), cfg.Ledger.TargetPrecision)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: api.Router()}

	var g run.Group

	g.Add(func() error {
		log.Printf("custodian listening on %s", cfg.HTTP.Addr)
		return srv.ListenAndServe()
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	if cfg.Snapshot.Spec != "" && jrnl != nil {
		c := cron.New()
		_, err := c.AddFunc(cfg.Snapshot.Spec, func() {
			snap := journal.TotalSnapshot{At: time.Now(), Total: led.TotalAccountedValue().String()}
			if err := jrnl.RecordSnapshot(snap); err != nil {
				log.Printf("[ERROR] snapshot: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("snapshot schedule %q: %w", cfg.Snapshot.Spec, err)
		}
		g.Add(func() error {
			c.Run()
			return nil
		}, func(error) {
			c.Stop()
		})
	}

	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()
	if _, ok := err.(run.SignalError); ok {
		log.Printf("shutting down: %v", err)
		return nil
	}
	return err
}

func openStore(cfg *config.Config) (vault.Store, error) {
	if cfg.Store.Driver == "memory" {
		return vault.NewMemory(), nil
	}
	return vault.OpenSQL(cfg.Store.Driver, cfg.Store.DSN)
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.Dir)
	default:
		return nil, nil
	}
}
