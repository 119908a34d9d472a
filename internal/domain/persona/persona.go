// Package persona holds the fixed prompt configurations a completion client can run with.
// A persona bundles the system prompt, sampling constants and the error prefix
// reported when a call fails.
package persona

import (
	"errors"
	"fmt"
)

// Built-in persona names.
const (
	NameAsk        = "ask"
	NameAnalyzeLog = "analyze-log"
)

var (
	// ErrNotFound is returned when a persona name is not registered.
	ErrNotFound = errors.New("persona not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid persona")
)

// Persona is immutable once registered.
type Persona struct {
	Name         string  `yaml:"name" json:"name"`
	Description  string  `yaml:"description" json:"description"`
	SystemPrompt string  `yaml:"system_prompt" json:"system_prompt"`
	UserPreamble string  `yaml:"user_preamble" json:"user_preamble,omitempty"`
	Temperature  float32 `yaml:"temperature" json:"temperature"`
	MaxTokens    int     `yaml:"max_tokens" json:"max_tokens"`
	ErrorPrefix  string  `yaml:"error_prefix" json:"error_prefix"`
}

// UserContent is the user message sent for input: the preamble followed by input verbatim.
func (p Persona) UserContent(input string) string {
	return p.UserPreamble + input
}

// FormatError renders a failure the way callers receive it: "<prefix>: <description>".
func (p Persona) FormatError(description string) string {
	return p.ErrorPrefix + ": " + description
}

// Validate checks the sampling bounds and required fields.
func (p Persona) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case p.SystemPrompt == "":
		return fmt.Errorf("%w: %s: system_prompt is required", ErrInvalid, p.Name)
	case p.ErrorPrefix == "":
		return fmt.Errorf("%w: %s: error_prefix is required", ErrInvalid, p.Name)
	case p.Temperature < 0 || p.Temperature > 2:
		return fmt.Errorf("%w: %s: temperature %v outside [0,2]", ErrInvalid, p.Name, p.Temperature)
	case p.MaxTokens <= 0:
		return fmt.Errorf("%w: %s: max_tokens must be positive, got %d", ErrInvalid, p.Name, p.MaxTokens)
	}
	return nil
}

const askSystemPrompt = `You are a helpful AI assistant with extensive knowledge about Azure services and DevOps practices.
Your purpose is to provide clear, accurate information and suggestions when asked questions.`

const analyzeLogSystemPrompt = `You are a DevOps AI agent that specializes in analyzing GitHub Actions workflow
failure logs. Your purpose is to identify common patterns in failures and suggest
possible solutions based on the error messages and context.

When analyzing a workflow failure log, follow these steps:
1. Identify the specific error message or failure point
2. Determine the likely cause of the failure
3. Suggest potential solutions, ordered by likelihood
4. If applicable, provide sample code or commands to fix the issue

Be concise but thorough in your analysis.`

// Ask answers open-ended Azure and DevOps questions.
func Ask() Persona {
	return Persona{
		Name:         NameAsk,
		Description:  "Answer Azure and DevOps questions",
		SystemPrompt: askSystemPrompt,
		Temperature:  0.7,
		MaxTokens:    1000,
		ErrorPrefix:  "Error asking question",
	}
}

// AnalyzeLog diagnoses a GitHub Actions workflow failure log.
func AnalyzeLog() Persona {
	return Persona{
		Name:         NameAnalyzeLog,
		Description:  "Analyze a GitHub Actions workflow failure log and suggest fixes",
		SystemPrompt: analyzeLogSystemPrompt,
		UserPreamble: "Please analyze this GitHub Actions workflow failure log and provide your recommendations:\n\n",
		Temperature:  0.3,
		MaxTokens:    1000,
		ErrorPrefix:  "Error analyzing workflow log",
	}
}

// Builtins returns the personas shipped with the binary.
func Builtins() []Persona {
	return []Persona{Ask(), AnalyzeLog()}
}
