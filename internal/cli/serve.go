package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andywolf/codexd/internal/config"
	"github.com/andywolf/codexd/internal/conversation"
	"github.com/andywolf/codexd/internal/httpapi"
	"github.com/andywolf/codexd/internal/orchestrator"
	"github.com/andywolf/codexd/internal/paths"
	"github.com/andywolf/codexd/internal/runner"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the codexd HTTP service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8173)")
	serveCmd.Flags().String("codex-binary", "", "agent binary (default codex)")
	serveCmd.Flags().String("codex-home", "", "override the resolved Codex home directory")
	serveCmd.Flags().String("mongo-uri", "", "MongoDB URI for the conversation store")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("codex.binary", serveCmd.Flags().Lookup("codex-binary"))
	_ = viper.BindPFlag("codex.home", serveCmd.Flags().Lookup("codex-home"))
	_ = viper.BindPFlag("mongo.uri", serveCmd.Flags().Lookup("mongo-uri"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	repoRoot := paths.FindRepoRoot(cwd)

	codexHome := cfg.Codex.Home
	if codexHome == "" {
		codexHome = paths.ResolveAgentHome(repoRoot)
	} else {
		codexHome = paths.Canonical(paths.ExpandUser(codexHome))
	}

	log.Printf("[serve] repo root: %s", repoRoot)
	log.Printf("[serve] codex home: %s", codexHome)

	jobRunner := runner.New(runner.Options{
		Binary:    cfg.Codex.Binary,
		RepoRoot:  repoRoot,
		CodexHome: codexHome,
	})
	orch := orchestrator.New(orchestrator.Options{Runner: jobRunner})

	var suggester *conversation.Suggester
	if cfg.Mongo.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := conversation.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect conversation store: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(ctx)
		}()

		skills, err := conversation.LoadSkills(cfg.Skills.ManifestPath)
		if err != nil {
			return fmt.Errorf("failed to load skill manifest: %w", err)
		}
		suggester = conversation.NewSuggester(store, skills)
		log.Printf("[serve] conversation store connected (%s)", cfg.Mongo.Database)
	} else {
		log.Printf("[serve] conversation store disabled (mongo.uri not set)")
	}

	api := httpapi.New(httpapi.Options{
		Runner:       jobRunner,
		Orchestrator: orch,
		Suggester:    suggester,
		CORSOrigins:  cfg.Server.CORSOriginsList(),
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.Router(),
	}

	// Shut down the HTTP server on SIGINT/SIGTERM. Running jobs are
	// abandoned: the process exits without waiting for their children.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[serve] received signal: %v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("[serve] listening on %s", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	log.Printf("[serve] shut down")
	return nil
}
