// Package tasks declares the allow-list of dispatchable task kinds. The
// remote runner receives installation credentials, so dispatch is a closed
// surface: only registered kinds with validated inputs go out.
package tasks

import (
	"fmt"
	"strings"
)

// InputDef describes one expected entry in a task's inputs map.
type InputDef struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description"`
}

// Kind is a registered task discriminator.
type Kind struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Inputs      []InputDef `json:"inputs"`
}

// KindRunCodingAgent dispatches an AI coding-agent run against a repository.
const KindRunCodingAgent = "run-coding-agent"

var kinds = map[string]*Kind{
	KindRunCodingAgent: {
		ID:          KindRunCodingAgent,
		Name:        "Run Coding Agent",
		Description: "Clone the repository, run the coding agent against the prompt, and open a pull request with the result",
		Inputs: []InputDef{
			{Name: "prompt", Required: true, Description: "Natural-language instruction for the agent"},
			{Name: "base_branch", Description: "Branch the agent works from; falls back to the repository's default branch"},
		},
	},
}

// Get returns the registered kind, or nil if the id is not recognized.
func Get(id string) *Kind {
	return kinds[id]
}

// List returns all registered kinds.
func List() []*Kind {
	out := make([]*Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	return out
}

// ValidateInputs checks required inputs are present and fills in defaults.
// A blank or whitespace-only value for a required input counts as missing.
// The returned map is a copy; the caller's map is not mutated.
func (k *Kind) ValidateInputs(inputs map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(inputs))
	for name, value := range inputs {
		resolved[name] = value
	}

	for _, def := range k.Inputs {
		if strings.TrimSpace(resolved[def.Name]) != "" {
			continue
		}
		if def.Required {
			return nil, fmt.Errorf("missing required input: %s", def.Name)
		}
		if def.Default != "" {
			resolved[def.Name] = def.Default
		}
	}

	return resolved, nil
}
