package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"vbscope/internal/symbols"
	"vbscope/internal/ui"
)

type resolveOutcome struct {
	graph *symbols.Graph
	err   error
}

// runResolveWithUI resolves the project while a progress view follows the
// module stages.
func runResolveWithUI(ctx context.Context, s *session) (*symbols.Graph, error) {
	modules, err := s.provider.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	events, stop := s.pipeline.State().Subscribe(256)
	outcomeCh := make(chan resolveOutcome, 1)

	go func() {
		g, err := s.pipeline.Refresh(ctx, false)
		outcomeCh <- resolveOutcome{graph: g, err: err}
		stop()
	}()

	model := ui.NewProgressModel(s.manifest.Name, modules, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		s.pipeline.Cancel()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.graph, uiErr
	}
	return outcome.graph, outcome.err
}
