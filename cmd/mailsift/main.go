package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/di"
	"github.com/mailsift/mailsift/internal/senders"
)

var (
	configFile = flag.String("config", "", "Path to config file")
	dryRun     = flag.Bool("dry-run", false, "Log decisions without touching the mailbox")
	mock       = flag.Bool("mock", false, "Use the built-in mock mailbox instead of Gmail")
	query      = flag.String("query", "", "Override the inbox search query")
	limit      = flag.Int("limit", 0, "Override the batch size")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	jsonLog    = flag.Bool("json-log", false, "Force JSON log output")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx, di.Options{
		ConfigFile: *configFile,
		DryRun:     *dryRun,
		Mock:       *mock,
		Query:      *query,
		Limit:      *limit,
		Verbose:    *verbose,
		JSONLog:    *jsonLog,
	})
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one pipeline pass with all dependencies injected. An
// interrupted run still exits zero; only failing to start the pass is
// an error.
func run(
	ctx context.Context,
	logger *zap.Logger,
	orchestrator *core.Orchestrator,
	store *senders.Store,
	repo core.SenderRepository,
	source core.MailSource,
	llmClient core.InferenceClient,
) error {
	defer logger.Sync()

	_, runErr := orchestrator.Run(ctx)

	// Persist sender memory with a fresh context so an interrupt does
	// not lose what the run learned.
	if err := store.Flush(context.Background()); err != nil {
		logger.Error("Failed to flush sender memory", zap.Error(err))
	}
	if err := repo.Close(); err != nil {
		logger.Error("Failed to close sender repository", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if stopper, ok := source.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	return runErr
}
