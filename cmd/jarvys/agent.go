package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
	"github.com/yannabadie/appia-dev/internal/cycle"
	"github.com/yannabadie/appia-dev/internal/githubx"
	"github.com/yannabadie/appia-dev/internal/governor"
	"github.com/yannabadie/appia-dev/internal/llm"
	"github.com/yannabadie/appia-dev/internal/logging"
	"github.com/yannabadie/appia-dev/internal/memory"
	"github.com/yannabadie/appia-dev/internal/router"
	"github.com/yannabadie/appia-dev/internal/tasks"
	"github.com/yannabadie/appia-dev/internal/toolchain"
)

const (
	gitAuthorName  = "jarvys-agent"
	gitAuthorEmail = "jarvys@users.noreply.github.com"
)

// agent bundles the wired collaborators a command needs.
type agent struct {
	cfg        *config.Config
	logger     *zap.Logger
	router     *router.Router
	watcher    *router.Watcher
	controller *cycle.Controller
	governor   *governor.Governor
}

// loadConfig loads configuration and builds the root logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// buildClients constructs one client per configured provider. Providers
// without an API key are skipped, not errors: the router degrades to
// whichever providers remain.
func buildClients(cfg *config.Config, logger *zap.Logger) []llm.Client {
	type builder struct {
		name string
		cfg  config.ProviderConfig
		fn   func(config.ProviderConfig) (llm.Client, error)
	}
	builders := []builder{
		{"openai", cfg.Providers.OpenAI, llm.NewOpenAIClient},
		{"anthropic", cfg.Providers.Anthropic, llm.NewAnthropicClient},
		{"gemini", cfg.Providers.Gemini, llm.NewGeminiClient},
		{"grok", cfg.Providers.Grok, llm.NewGrokClient},
	}

	var clients []llm.Client
	for _, b := range builders {
		client, err := b.fn(b.cfg)
		if err != nil {
			logger.Info("provider not configured, skipping", zap.String("provider", b.name))
			continue
		}
		clients = append(clients, client)
	}
	return clients
}

// buildAgent wires the full agent from configuration.
func buildAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*agent, error) {
	clients := buildClients(cfg, logger)
	if len(clients) == 0 {
		return nil, fmt.Errorf("no model provider configured, set at least one API key")
	}

	catalogue, err := router.NewCatalogue(cfg.Router.CataloguePath)
	if err != nil {
		return nil, fmt.Errorf("load model catalogue: %w", err)
	}
	history := router.NewHistory(cfg.Router.HistoryLimit)
	rtr := router.New(catalogue, history, clients, logger.Named("router"))

	gh, err := githubx.New(ctx, cfg.GitHub.Token, logger.Named("github"))
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	primaryRepo, err := githubx.ParseRepo(cfg.GitHub.PrimaryRepo)
	if err != nil {
		return nil, fmt.Errorf("primary repo: %w", err)
	}
	secondaryRepo, err := githubx.ParseRepo(cfg.GitHub.SecondaryRepo)
	if err != nil {
		return nil, fmt.Errorf("secondary repo: %w", err)
	}

	var watcher *router.Watcher
	if cfg.Router.RefreshInterval > 0 {
		reporter := githubx.NewIssueReporter(gh, primaryRepo)
		watcher = router.NewWatcher(catalogue, cfg.Providers, reporter, cfg.Router.RefreshInterval, logger.Named("watcher"))
	}

	store, err := memory.NewChromemStore(cfg.Memory, memory.NewOpenAIEmbeddingFunc(cfg.Providers.OpenAI), logger.Named("memory"))
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}

	runner := toolchain.NewRunner(logger.Named("toolchain"))
	git := toolchain.NewGit(gitAuthorName, gitAuthorEmail, logger.Named("git"))

	primary := tasks.RepoTarget{
		Repo: primaryRepo,
		Dir:  filepath.Join(cfg.Workspace.Root, cfg.Workspace.PrimaryDir),
	}
	secondary := tasks.RepoTarget{
		Repo: secondaryRepo,
		Dir:  filepath.Join(cfg.Workspace.Root, cfg.Workspace.SecondaryDir),
	}
	selector := tasks.NewSelector(primary, secondary, gh, runner, nil, logger.Named("tasks"))

	gov := governor.New(cfg.Loop.ConfidenceThreshold, nil, logger.Named("governor"))

	controller := cycle.NewController(cycle.Config{
		WorkDir:          primary.Dir,
		WorkBranch:       cfg.GitHub.WorkBranch,
		BaseBranch:       cfg.GitHub.BaseBranch,
		PushToken:        cfg.GitHub.Token,
		MaxLintAttempts:  cfg.Loop.MaxLintAttempts,
		MaxRegenerations: cfg.Loop.MaxRegenerations,
	}, selector, rtr, runner, git, gh, store, logger.Named("cycle"))

	return &agent{
		cfg:        cfg,
		logger:     logger,
		router:     rtr,
		watcher:    watcher,
		controller: controller,
		governor:   gov,
	}, nil
}
