package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/resumematch/config"
	"github.com/vinayprograms/resumematch/credentials"
	"github.com/vinayprograms/resumematch/crew"
	"github.com/vinayprograms/resumematch/llm"
	"github.com/vinayprograms/resumematch/logging"
	"github.com/vinayprograms/resumematch/memory"
	"github.com/vinayprograms/resumematch/render"
	"github.com/vinayprograms/resumematch/security"
	"github.com/vinayprograms/resumematch/shutdown"
	"github.com/vinayprograms/resumematch/telemetry"
	"github.com/vinayprograms/resumematch/tools"
)

const shutdownTimeout = 10 * time.Second

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	creds  *credentials.Credentials
	runID  string
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagResume != "" {
		cfg.Paths.Resume = flagResume
	}
	if flagJD != "" {
		cfg.Paths.JobDescription = flagJD
	}
	if flagOutputDir != "" {
		cfg.Paths.OutputDir = flagOutputDir
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := logging.New().WithTraceID(runID)
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)

	creds, credPath, err := credentials.Load()
	if err != nil {
		return nil, err
	}
	if credPath != "" {
		logger.Debug("credentials loaded", map[string]interface{}{"path": credPath})
	}

	return &app{cfg: cfg, logger: logger, creds: creds, runID: runID}, nil
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func (a *app) newRenderer() (*render.Renderer, error) {
	engine, err := render.NewEngine(a.cfg.Render.Engine)
	if err != nil {
		return nil, err
	}
	return render.New(a.cfg.RenderConfig(), engine, a.logger), nil
}

func (a *app) newRegistry(renderer *render.Renderer) *tools.Registry {
	reg := tools.NewRegistry(a.logger)
	reg.Register(tools.NewExtractResumeTool(a.cfg.Paths.Resume, a.logger))
	reg.Register(tools.NewJobDescriptionTool(a.cfg.Paths.JobDescription))
	reg.Register(tools.NewWebSearchTool(a.creds, a.logger))
	if key := a.creds.GetAPIKey("firecrawl"); key != "" {
		scrape, err := tools.NewScrapePageTool(key, a.cfg.Search.FirecrawlURL)
		if err != nil {
			a.logger.Warn("scrape_page disabled", map[string]interface{}{"error": err.Error()})
		} else {
			reg.Register(scrape)
		}
	}
	reg.Register(tools.NewSavePDFTool(renderer))
	return reg
}

func (a *app) newProvider() (llm.Provider, error) {
	pc := a.cfg.ProviderConfig("")
	if pc.Provider == "" {
		pc.Provider = llm.InferProviderFromModel(pc.Model)
	}
	pc.APIKey = a.creds.GetAPIKey(pc.Provider)

	provider, err := llm.NewProvider(pc)
	if err != nil {
		return nil, err
	}
	return llm.WithTracing(provider, pc.Provider), nil
}

// newCrew wires the provider, tools and optional memory into a crew. Stores
// opened here are closed by coord.
func (a *app) newCrew(defs *crew.Definitions, coord *shutdown.Coordinator) (*crew.Crew, error) {
	renderer, err := a.newRenderer()
	if err != nil {
		return nil, err
	}
	provider, err := a.newProvider()
	if err != nil {
		return nil, err
	}

	opts := []crew.Option{
		crew.WithLogger(a.logger),
		crew.WithOutputDir(a.cfg.Paths.OutputDir),
		crew.WithMaxTokens(a.cfg.LLM.MaxTokens),
		crew.WithEventHandler(a.logEvent),
	}
	if a.cfg.Memory.Enabled {
		store, err := memory.NewNoteStore(a.cfg.NoteStoreConfig())
		if err != nil {
			return nil, err
		}
		coord.Register("memory", shutdown.PhaseStorage, func(context.Context) error {
			return store.Close()
		})
		opts = append(opts, crew.WithMemory(store))
	}
	if a.cfg.Security.Guard {
		guard, err := security.NewGuard(a.cfg.Security.Patterns, a.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, crew.WithGuard(guard))
	}

	return crew.New(defs, provider, a.newRegistry(renderer), opts...)
}

func (a *app) logEvent(ev crew.Event) {
	switch e := ev.(type) {
	case crew.ToolInvoked:
		fields := map[string]interface{}{"task": e.Task, "tool": e.Name, "output_bytes": len(e.Output)}
		if e.Err != nil {
			fields["error"] = e.Err.Error()
			a.logger.Warn("tool invocation failed", fields)
			return
		}
		a.logger.Info("tool invoked", fields)
	case crew.StepNarrated:
		if e.MimicsToolCall {
			a.logger.Warn("step narrated a tool call", map[string]interface{}{"task": e.Task, "agent": e.Agent})
		}
	}
}

// startTelemetry installs OTLP export when configured and flushes it on
// shutdown. Without an endpoint the noop tracer stays in place; an exporter
// that fails to start only disables tracing.
func (a *app) startTelemetry(ctx context.Context, coord *shutdown.Coordinator) {
	if !a.cfg.Telemetry.Enabled {
		return
	}
	provider, err := telemetry.InitProvider(ctx, a.cfg.TelemetryConfig(version))
	if err != nil {
		a.logger.Warn("telemetry disabled", map[string]interface{}{"error": err.Error()})
		return
	}
	coord.Register("telemetry", shutdown.PhaseTelemetry, provider.Shutdown)
}
