// Package pipeline executes the ordered analysis tasks against the agent
// catalog and the hosted model. Each request gets an independent run; the
// agent and task definitions are shared read-only.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finsight/finsight/internal/agent"
	"github.com/finsight/finsight/internal/fault"
	"github.com/finsight/finsight/internal/task"
	"github.com/finsight/finsight/internal/tool"
)

// Chatter is the hosted-model interface the runner depends on.
type Chatter interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// StepResult records one completed task.
type StepResult struct {
	Task       string
	Agent      string
	Output     string
	DurationMs int64
}

// Result is the outcome of a full pipeline run. Final is the output of the
// last task in the dependency chain.
type Result struct {
	Final string
	Steps []StepResult
}

// Runner wires tasks, agents, tools, and the model together.
type Runner struct {
	chatter Chatter
	agents  *agent.Catalog
	tasks   []task.Spec
	tools   tool.Registry
	logger  *slog.Logger
}

// NewRunner validates the task catalog against the agents and tools and
// returns a ready Runner.
func NewRunner(chatter Chatter, agents *agent.Catalog, tasks []task.Spec, tools tool.Registry) (*Runner, error) {
	if err := task.ValidateCatalog(tasks, agents, tools); err != nil {
		return nil, fmt.Errorf("validating task catalog: %w", err)
	}
	return &Runner{
		chatter: chatter,
		agents:  agents,
		tasks:   tasks,
		tools:   tools,
		logger:  slog.Default(),
	}, nil
}

// Analyze runs every task in order against the document at filePath. Task
// outputs are passed to dependent tasks as explicit prompt sections, never as
// template variables. The first failure aborts the run; partial results are
// not returned.
func (r *Runner) Analyze(ctx context.Context, filePath, query string) (Result, error) {
	inputs := task.Inputs{FilePath: filePath, Query: query}

	var docText string // extracted once, shared by analysis tools
	outputs := make(map[string]string, len(r.tasks))
	var result Result

	for _, spec := range r.tasks {
		start := time.Now()

		instructions, err := task.Render(spec, inputs)
		if err != nil {
			return Result{}, err
		}

		agentSpec, ok := r.agents.Get(spec.Agent)
		if !ok {
			return Result{}, fmt.Errorf("task %s: unknown agent %q", spec.Name, spec.Agent)
		}

		toolResults, err := r.runTools(ctx, spec, filePath, &docText)
		if err != nil {
			return Result{}, fmt.Errorf("task %s: %w", spec.Name, err)
		}

		var prior []StepResult
		for _, dep := range spec.DependsOn {
			prior = append(prior, StepResult{Task: dep, Output: outputs[dep]})
		}

		system := composeSystem(agentSpec)
		prompt := composePrompt(instructions, spec.ExpectedOutput, toolResults, prior)

		output, err := r.chatter.Generate(ctx, system, prompt)
		if err != nil {
			return Result{}, fmt.Errorf("task %s: %w", spec.Name, err)
		}
		if output == "" {
			return Result{}, fault.New(fault.ExternalService, "task %s: model returned no output", spec.Name)
		}

		outputs[spec.Name] = output
		result.Steps = append(result.Steps, StepResult{
			Task:       spec.Name,
			Agent:      spec.Agent,
			Output:     output,
			DurationMs: time.Since(start).Milliseconds(),
		})
		result.Final = output

		r.logger.Debug("task completed",
			"task", spec.Name,
			"agent", spec.Agent,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return result, nil
}

// toolResult pairs a tool name with its output for prompt composition.
type toolResult struct {
	Name   string
	Output string
}

// runTools executes the task's bound tools. The document reader takes the
// file path and caches its extracted text in docText; analysis tools run
// against that text.
func (r *Runner) runTools(ctx context.Context, spec task.Spec, filePath string, docText *string) ([]toolResult, error) {
	var results []toolResult
	for _, name := range spec.Tools {
		t, ok := r.tools.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}

		var input string
		if name == tool.NameReadDocument {
			input = filePath
		} else {
			if *docText == "" {
				reader, ok := r.tools.Get(tool.NameReadDocument)
				if !ok {
					return nil, fmt.Errorf("tool %q needs document text but no reader is registered", name)
				}
				text, err := reader.Run(ctx, filePath)
				if err != nil {
					return nil, err
				}
				*docText = text
			}
			input = *docText
		}

		out, err := t.Run(ctx, input)
		if err != nil {
			return nil, err
		}
		if name == tool.NameReadDocument {
			*docText = out
		}
		results = append(results, toolResult{Name: name, Output: out})
	}
	return results, nil
}
