package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/factory"
	"github.com/mailsift/mailsift/internal/logging"
	"github.com/mailsift/mailsift/internal/protect"
	"github.com/mailsift/mailsift/internal/retry"
	"github.com/mailsift/mailsift/internal/senders"
	"github.com/mailsift/mailsift/internal/textutil"
)

// Options carries command line overrides into the container. Zero
// values mean "use the configuration file".
type Options struct {
	ConfigFile string
	DryRun     bool
	Mock       bool
	Query      string
	Limit      int
	Verbose    bool
	JSONLog    bool
}

// BuildContainer creates and configures a dependency injection
// container. The context is used for setup work that talks to the
// outside world: the Gmail OAuth handshake and the initial sender
// table load.
func BuildContainer(ctx context.Context, opts Options) (*dig.Container, error) {
	container := dig.New()

	// Register the setup context
	if err := container.Provide(func() context.Context { return ctx }); err != nil {
		return nil, err
	}

	// Register configuration with flag overrides applied
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if opts.DryRun {
			cfg.Set("run.dry_run", true)
		}
		if opts.Mock {
			cfg.Set("source.type", "mock")
		}
		if opts.Query != "" {
			cfg.Set("run.query", opts.Query)
		}
		if opts.Limit > 0 {
			cfg.Set("run.limit", opts.Limit)
		}
		if opts.Verbose {
			cfg.Set("logging.level", "debug")
		}
		if opts.JSONLog {
			cfg.Set("logging.format", "json")
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(textutil.NewProcessor); err != nil {
		return nil, err
	}

	// Register the protected sender registry
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.ProtectedChecker {
		p := cfg.GetProtected()
		return protect.NewRegistry(p.Domains, p.Keywords, logger)
	}); err != nil {
		return nil, err
	}

	// Register the retry policy for provider calls
	if err := container.Provide(func(cfg *config.Config) retry.Policy {
		rc := cfg.GetRetry()
		return retry.Policy{
			InitialInterval: rc.InitialInterval,
			MaxInterval:     rc.MaxInterval,
			Multiplier:      rc.Multiplier,
			Jitter:          rc.Jitter,
			MaxRetries:      rc.MaxRetries,
		}
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}

	// Register inference client
	if err := container.Provide(func(f *factory.LLMFactory) (core.InferenceClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register sender repository
	if err := container.Provide(func(f *factory.StoreFactory) (core.SenderRepository, error) {
		return f.CreateSenderRepository()
	}); err != nil {
		return nil, err
	}

	// Register sender memory
	if err := container.Provide(func(
		ctx context.Context,
		repo core.SenderRepository,
		cfg *config.Config,
		logger *zap.Logger,
	) (*senders.Store, error) {
		return senders.NewStore(ctx, repo, cfg.GetSenders().FilterThreshold, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *senders.Store) core.SenderMemory { return s }); err != nil {
		return nil, err
	}

	// Register mail source
	if err := container.Provide(func(ctx context.Context, f *factory.SourceFactory) (core.MailSource, error) {
		return f.CreateMailSource(ctx)
	}); err != nil {
		return nil, err
	}

	// Register router
	if err := container.Provide(func(
		cfg *config.Config,
		protected core.ProtectedChecker,
		memory core.SenderMemory,
		logger *zap.Logger,
	) *core.Router {
		rc := cfg.GetRouter()
		return core.NewRouter(core.RouterConfig{
			ArchiveConfidence: rc.ArchiveConfidence,
			ReviewConfidence:  rc.ReviewConfidence,
			LabelPrefix:       rc.LabelPrefix,
			ReviewLabel:       rc.ReviewLabel,
		}, protected, memory, logger)
	}); err != nil {
		return nil, err
	}

	// Register executor
	if err := container.Provide(func(
		source core.MailSource,
		memory core.SenderMemory,
		protected core.ProtectedChecker,
		policy retry.Policy,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.Executor {
		return core.NewExecutor(source, memory, protected, policy, cfg.GetRun().DryRun, logger)
	}); err != nil {
		return nil, err
	}

	// Register orchestrator
	if err := container.Provide(func(
		source core.MailSource,
		inference core.InferenceClient,
		protected core.ProtectedChecker,
		router *core.Router,
		executor *core.Executor,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.Orchestrator {
		run := cfg.GetRun()
		return core.NewOrchestrator(
			source,
			inference,
			protected,
			router,
			executor,
			logger,
			run.Query,
			run.Limit,
			cfg.GetInference().Prefetch,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
