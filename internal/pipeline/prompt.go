package pipeline

import (
	"fmt"
	"strings"

	"github.com/finsight/finsight/internal/agent"
)

// maxSectionChars bounds each injected tool output or prior task output so
// document-sized sections cannot blow past the model's context window.
const maxSectionChars = 24000

// composeSystem builds the system instruction from the agent's role, goal,
// and backstory.
func composeSystem(a agent.Spec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s.\n\n", strings.ReplaceAll(a.Role, "_", " "))
	fmt.Fprintf(&sb, "Goal: %s\n\n", a.Goal)
	fmt.Fprintf(&sb, "Background: %s", a.Backstory)
	return sb.String()
}

// composePrompt assembles the user prompt: the rendered instructions, the
// bound tools' outputs, the outputs of dependency tasks (labelled by task
// name), and the expected-output description.
func composePrompt(instructions, expectedOutput string, tools []toolResult, prior []StepResult) string {
	var sb strings.Builder
	sb.WriteString(instructions)

	for _, tr := range tools {
		fmt.Fprintf(&sb, "\n\n[Tool Output: %s]\n%s", tr.Name, truncate(tr.Output, maxSectionChars))
	}

	for _, p := range prior {
		fmt.Fprintf(&sb, "\n\n[Output of task %s]\n%s", p.Task, truncate(p.Output, maxSectionChars))
	}

	if expectedOutput != "" {
		fmt.Fprintf(&sb, "\n\n[Expected Output]\n%s", expectedOutput)
	}

	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
