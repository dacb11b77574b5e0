package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
	"github.com/yannabadie/appia-dev/internal/llm"
)

// IssueReporter files a tracking issue when the watcher discovers a model the
// catalogue does not know yet.
type IssueReporter interface {
	CreateIssue(ctx context.Context, title, body string) error
}

// Watcher periodically scans provider model-listing endpoints and adds newly
// published models to the catalogue with conservative default capabilities.
// Each discovery is reported once through the IssueReporter so a human can
// review the generated profile.
type Watcher struct {
	interval  time.Duration
	catalogue *Catalogue
	providers config.ProvidersConfig
	reporter  IssueReporter
	client    *http.Client
	logger    *zap.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	reported map[string]bool
}

// NewWatcher returns a watcher over the given catalogue. A nil reporter
// disables issue filing; discoveries are still added to the catalogue.
func NewWatcher(catalogue *Catalogue, providers config.ProvidersConfig, reporter IssueReporter, interval time.Duration, logger *zap.Logger) *Watcher {
	return &Watcher{
		interval:  interval,
		catalogue: catalogue,
		providers: providers,
		reporter:  reporter,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		reported:  make(map[string]bool),
	}
}

// Start begins background scanning. Returns an error if already running or
// if the refresh interval is zero.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("model watcher is already running")
	}
	if w.interval <= 0 {
		return fmt.Errorf("model watcher requires a positive refresh interval")
	}

	w.stopCh = make(chan struct{})
	w.running = true

	w.logger.Info("model watcher started", zap.Duration("interval", w.interval))
	go w.run()
	return nil
}

// Stop signals the background goroutine to exit. Safe to call when stopped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	w.logger.Info("model watcher stopped")
}

func (w *Watcher) run() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("model watcher panicked, recovering",
				zap.Any("panic", r), zap.Stack("stack"))
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			w.RefreshOnce(ctx)
			cancel()
		case <-w.stopCh:
			return
		}
	}
}

// RefreshOnce scans every configured provider listing once. Errors from a
// single provider are logged and do not abort the scan.
func (w *Watcher) RefreshOnce(ctx context.Context) {
	scans := []struct {
		provider llm.Provider
		list     func(ctx context.Context) ([]string, error)
	}{
		{llm.ProviderOpenAI, w.listOpenAI},
		{llm.ProviderAnthropic, w.listAnthropic},
		{llm.ProviderGemini, w.listGemini},
		{llm.ProviderGrok, w.listGrok},
	}

	for _, scan := range scans {
		ids, err := scan.list(ctx)
		if err != nil {
			w.logger.Warn("model listing scan failed",
				zap.String("provider", string(scan.provider)), zap.Error(err))
			continue
		}
		for _, id := range ids {
			w.observe(ctx, scan.provider, id)
		}
	}
}

// modelFamilies are the id prefixes the watcher considers completion models.
// Listings also contain embedding, audio, and moderation models that the
// router cannot use.
var modelFamilies = []string{"gpt-", "o1", "o3", "claude-", "gemini-", "grok-"}

func isCompletionModel(id string) bool {
	for _, prefix := range modelFamilies {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func (w *Watcher) observe(ctx context.Context, provider llm.Provider, id string) {
	if !isCompletionModel(id) || w.catalogue.Known(id) {
		return
	}

	profile := ModelProfile{
		Identifier:        id,
		Provider:          provider,
		ReasoningScore:    0.8,
		CreativityScore:   0.8,
		SpeedScore:        0.8,
		MaxContextTokens:  128000,
		CostPerKiloTokens: 0.005,
	}
	if err := w.catalogue.Upsert(profile); err != nil {
		w.logger.Warn("failed to add discovered model", zap.String("model", id), zap.Error(err))
		return
	}
	w.logger.Info("new model discovered",
		zap.String("provider", string(provider)), zap.String("model", id))

	if w.reporter == nil || w.reported[id] {
		return
	}
	w.reported[id] = true

	title := fmt.Sprintf("New %s model detected: %s", provider, id)
	body := fmt.Sprintf(
		"The model watcher found `%s` in the %s model listing.\n\n"+
			"It was added to the catalogue with default capability scores. "+
			"Review and adjust its profile in the catalogue overlay.",
		id, provider)
	if err := w.reporter.CreateIssue(ctx, title, body); err != nil {
		w.logger.Warn("failed to file model discovery issue",
			zap.String("model", id), zap.Error(err))
	}
}

func (w *Watcher) listOpenAI(ctx context.Context) ([]string, error) {
	cfg := w.providers.OpenAI
	return w.listBearer(ctx, cfg, "https://api.openai.com")
}

func (w *Watcher) listGrok(ctx context.Context) ([]string, error) {
	cfg := w.providers.Grok
	return w.listBearer(ctx, cfg, "https://api.x.ai")
}

// listBearer scans an OpenAI-compatible /v1/models endpoint.
func (w *Watcher) listBearer(ctx context.Context, cfg config.ProviderConfig, defaultBaseURL string) ([]string, error) {
	if !cfg.APIKey.IsSet() {
		return nil, nil
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey.Value())

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := w.doJSON(req, &listing); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(listing.Data))
	for _, m := range listing.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (w *Watcher) listAnthropic(ctx context.Context) ([]string, error) {
	cfg := w.providers.Anthropic
	if !cfg.APIKey.IsSet() {
		return nil, nil
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.anthropic.com"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", cfg.APIKey.Value())
	req.Header.Set("Anthropic-Version", "2023-06-01")

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := w.doJSON(req, &listing); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(listing.Data))
	for _, m := range listing.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (w *Watcher) listGemini(ctx context.Context) ([]string, error) {
	cfg := w.providers.Gemini
	if !cfg.APIKey.IsSet() {
		return nil, nil
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}

	endpoint := fmt.Sprintf("%s/v1beta/models?key=%s", base, url.QueryEscape(cfg.APIKey.Value()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := w.doJSON(req, &listing); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(listing.Models))
	for _, m := range listing.Models {
		// Listing names look like "models/gemini-2.5-pro".
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	return ids, nil
}

func (w *Watcher) doJSON(req *http.Request, out any) error {
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listing returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
