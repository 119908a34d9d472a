package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/matiasleandrokruk/opsagent/internal/api"
	"github.com/matiasleandrokruk/opsagent/internal/mcpserver"
	"github.com/matiasleandrokruk/opsagent/internal/server"
	pkgauth "github.com/matiasleandrokruk/opsagent/pkg/auth"
)

// serve: opsagent serve
func (c *cli) serve(ctx context.Context, _ []string) int {
	rt, err := c.setup(ctx, c.errOut)
	if err != nil {
		fmt.Fprintf(c.errOut, "opsagent: %v\n", err) //nolint:errcheck
		return 1
	}
	defer rt.close()

	signer, err := pkgauth.NewSigner(rt.cfg.JWTSecret, rt.cfg.JWTExpiry)
	if err != nil {
		fmt.Fprintln(c.errOut, "opsagent serve: JWT_SECRET must be set") //nolint:errcheck
		return 1
	}
	if rt.cfg.AdminPasswordHash == "" {
		rt.log.Warn("ADMIN_PASSWORD_HASH not set; POST /auth/token is disabled")
	}

	deps := api.Deps{
		Completions:       rt.svc,
		Health:            rt.provider,
		Signer:            signer,
		AdminPasswordHash: rt.cfg.AdminPasswordHash,
		Log:               rt.log,
	}
	if rt.audit != nil {
		deps.Audit = rt.audit
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host, srvCfg.Port = rt.cfg.HTTPHost, rt.cfg.HTTPPort

	if err := server.NewServer(api.NewRouter(deps), srvCfg, rt.log).Run(ctx); err != nil {
		rt.log.Error("http server failed", "error", err)
		return 1
	}
	return 0
}

// mcp: opsagent mcp. Stdout carries the protocol, so logs go to stderr.
func (c *cli) mcp(ctx context.Context, _ []string) int {
	rt, err := c.setup(ctx, c.errOut)
	if err != nil {
		fmt.Fprintf(c.errOut, "opsagent: %v\n", err) //nolint:errcheck
		return 1
	}
	defer rt.close()

	if err := mcpserver.Run(ctx, rt.svc, rt.log); err != nil && !errors.Is(err, context.Canceled) {
		rt.log.Error("mcp server failed", "error", err)
		return 1
	}
	return 0
}

// hashPassword: opsagent hash-password [-password P]. Without -password the first stdin line is used.
func (c *cli) hashPassword(_ context.Context, args []string) int {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	password := fs.String("password", "", "plaintext password")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	plain := *password
	if plain == "" {
		line, err := bufio.NewReader(c.stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(c.errOut, "opsagent hash-password: no password given") //nolint:errcheck
			return 2
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		fmt.Fprintln(c.errOut, "opsagent hash-password: empty password") //nolint:errcheck
		return 2
	}

	hash, err := pkgauth.HashPassword(plain)
	if err != nil {
		fmt.Fprintf(c.errOut, "opsagent: %v\n", err) //nolint:errcheck
		return 1
	}
	fmt.Fprintln(c.out, hash) //nolint:errcheck
	return 0
}
