package completion

import (
	"context"

	"github.com/matiasleandrokruk/opsagent/internal/domain/persona"
)

// Service resolves personas by name and runs them against one provider.
// Used by the CLI, the HTTP API and the MCP server.
type Service struct {
	registry *persona.Registry
	provider ChatCompleter
	opts     []Option
}

// NewService returns a Service; opts apply to every Client it builds.
func NewService(registry *persona.Registry, provider ChatCompleter, opts ...Option) *Service {
	return &Service{registry: registry, provider: provider, opts: opts}
}

// Personas lists the available personas sorted by name.
func (s *Service) Personas() []persona.Persona {
	return s.registry.List()
}

// Client returns a Client for the named persona.
func (s *Service) Client(name string) (*Client, error) {
	p, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return New(s.provider, p, s.opts...), nil
}

// Complete runs the named persona. The error is non-nil only for unknown personas;
// call failures are part of the returned Result.
func (s *Service) Complete(ctx context.Context, name, input string) (persona.Persona, Result, error) {
	c, err := s.Client(name)
	if err != nil {
		return persona.Persona{}, Result{}, err
	}
	return c.Persona(), c.Do(ctx, input), nil
}
