package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/matiasleandrokruk/opsagent/internal/domain/audit"
	"github.com/matiasleandrokruk/opsagent/internal/domain/completion"
	"github.com/matiasleandrokruk/opsagent/internal/domain/persona"
	"github.com/matiasleandrokruk/opsagent/internal/infra/config"
	"github.com/matiasleandrokruk/opsagent/internal/infra/eventbus"
	"github.com/matiasleandrokruk/opsagent/internal/infra/llm"
	"github.com/matiasleandrokruk/opsagent/internal/infra/logger"
	"github.com/matiasleandrokruk/opsagent/internal/infra/sqlite"
)

const (
	defaultQuestion = "What are the best practices for implementing CI/CD pipelines in Azure DevOps?"
	defaultLogFile  = "workflow_error.log"
	analysisHeader  = "\n=== AI Agent Analysis ===\n"
)

// app is what every completing command needs, built from one Config.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	provider llm.LLMProvider
	svc      *completion.Service
	audit    *audit.Service // nil when AUDIT_DB_PATH is empty
	close    func()
}

// setup loads configuration, the persona registry, the provider and the optional audit trail.
// Callers must call rt.close.
func (c *cli) setup(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg := c.loadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogFormat, logOut)

	registry, err := persona.LoadFile(cfg.PersonasFile)
	if err != nil {
		return nil, err
	}

	rt := &app{cfg: cfg, log: log, provider: c.newProvider(cfg), close: func() {}}
	opts := []completion.Option{completion.WithLogger(log)}

	if cfg.AuditDBPath != "" {
		db, err := sqlite.Open(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
		bus := eventbus.New()
		rt.audit = audit.NewService(db, log)
		done := rt.audit.Start(ctx, bus)
		opts = append(opts, completion.WithPublisher(bus))
		// Closing the bus lets the consumer drain buffered events before the DB closes.
		rt.close = func() {
			bus.Close()
			<-done
			if dropped := bus.Dropped(); dropped > 0 {
				log.Warn("audit events dropped", "count", dropped)
			}
			db.Close() //nolint:errcheck
		}
	}

	rt.svc = completion.NewService(registry, rt.provider, opts...)
	return rt, nil
}

// complete runs one persona and prints the result. The exit code is 0 even when the
// call failed: the failure text is the output, as with a successful answer.
func (c *cli) complete(ctx context.Context, name, input, header string) int {
	rt, err := c.setup(ctx, c.errOut)
	if err != nil {
		fmt.Fprintf(c.errOut, "opsagent: %v\n", err) //nolint:errcheck
		return 1
	}
	defer rt.close()

	client, err := rt.svc.Client(name)
	if err != nil {
		fmt.Fprintf(c.errOut, "opsagent: %v\n", err) //nolint:errcheck
		return 2
	}

	result := client.Complete(ctx, input)
	if header != "" {
		fmt.Fprintln(c.out, header) //nolint:errcheck
	}
	fmt.Fprintln(c.out, result) //nolint:errcheck
	return 0
}

// ask: opsagent ask [question...]
func (c *cli) ask(ctx context.Context, args []string) int {
	question := strings.Join(args, " ")
	if strings.TrimSpace(question) == "" {
		question = defaultQuestion
	}
	return c.complete(ctx, persona.NameAsk, question, "")
}

// analyzeLog: opsagent analyze-log [-file PATH]
func (c *cli) analyzeLog(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("analyze-log", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	file := fs.String("file", defaultLogFile, "workflow log to analyze")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(c.errOut, "opsagent: read log: %v\n", err) //nolint:errcheck
		return 1
	}
	return c.complete(ctx, persona.NameAnalyzeLog, string(content), analysisHeader)
}

// runPersona: opsagent run -persona NAME [text...]
func (c *cli) runPersona(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	name := fs.String("persona", "", "persona name (see 'opsagent personas')")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(c.errOut, "opsagent run: -persona is required") //nolint:errcheck
		return 2
	}

	input := strings.Join(fs.Args(), " ")
	if fs.NArg() == 0 {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.errOut, "opsagent: read stdin: %v\n", err) //nolint:errcheck
			return 1
		}
		input = string(data)
	}
	return c.complete(ctx, *name, input, "")
}

// listPersonas: opsagent personas
func (c *cli) listPersonas(_ context.Context, _ []string) int {
	registry, err := persona.LoadFile(c.loadConfig().PersonasFile)
	if err != nil {
		fmt.Fprintf(c.errOut, "opsagent: %v\n", err) //nolint:errcheck
		return 1
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTEMPERATURE\tMAX TOKENS\tDESCRIPTION") //nolint:errcheck
	for _, p := range registry.List() {
		fmt.Fprintf(tw, "%s\t%.1f\t%d\t%s\n", p.Name, p.Temperature, p.MaxTokens, p.Description) //nolint:errcheck
	}
	tw.Flush() //nolint:errcheck
	return 0
}
