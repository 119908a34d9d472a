// opsagent is a single-turn DevOps assistant backed by Azure OpenAI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/matiasleandrokruk/opsagent/internal/infra/config"
	"github.com/matiasleandrokruk/opsagent/internal/infra/llm"
	"github.com/matiasleandrokruk/opsagent/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newCLI(os.Stdin, os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// cli carries the process streams and the factories tests replace.
type cli struct {
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer

	loadConfig  func() config.Config
	newProvider func(config.Config) llm.LLMProvider
}

func newCLI(stdin io.Reader, out, errOut io.Writer) *cli {
	return &cli{
		stdin:      stdin,
		out:        out,
		errOut:     errOut,
		loadConfig: config.Load,
		newProvider: func(cfg config.Config) llm.LLMProvider {
			return llm.NewRouterFromConfig(cfg)
		},
	}
}

type command func(c *cli, ctx context.Context, args []string) int

var commands = map[string]command{
	"ask":           (*cli).ask,
	"analyze-log":   (*cli).analyzeLog,
	"run":           (*cli).runPersona,
	"personas":      (*cli).listPersonas,
	"serve":         (*cli).serve,
	"mcp":           (*cli).mcp,
	"hash-password": (*cli).hashPassword,
}

// run returns the process exit code: 0 ok, 1 runtime failure, 2 usage error.
func (c *cli) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("opsagent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(c.errOut, "opsagent: %v\n", err) //nolint:errcheck
		return 2
	}

	if *showVersion {
		fmt.Fprintln(c.out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp || fs.NArg() == 0 {
		printHelp(c.out)
		return 0
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(c.errOut, "opsagent: unknown command %q\n", name) //nolint:errcheck
		printHelp(c.errOut)
		return 2
	}
	return cmd(c, ctx, fs.Args()[1:])
}

func printHelp(out io.Writer) {
	helpText := `opsagent - single-turn DevOps assistant (Azure OpenAI)

Usage:
  opsagent [options] <command> [args]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  ask [question...]              Ask the DevOps Q&A persona
  analyze-log [-file PATH]       Analyze a GitHub Actions failure log (default workflow_error.log)
  run -persona NAME [text...]    Run any persona; reads stdin when no text is given
  personas                       List available personas
  serve                          Start the HTTP API
  mcp                            Serve personas as MCP tools over stdio
  hash-password [-password P]    Print a bcrypt hash for ADMIN_PASSWORD_HASH

Examples:
  opsagent ask "How do I cache npm dependencies in a pipeline?"
  opsagent analyze-log -file build.log
  cat deploy.log | opsagent run -persona analyze-log`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
