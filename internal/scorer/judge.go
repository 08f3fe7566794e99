package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/providers"
)

// judgeTemperature is fixed at 0 per spec.md section 4.6 ("call the
// provider adapter ... at temperature 0"): the judge must be as
// deterministic as the upstream API allows.
const judgeTemperature = 0

// standardJudgeTemplate is used when a metric carries neither an explicit
// prompt nor promptCriteria.
const standardJudgeTemplate = `You are grading the quality of an AI system's output.

Expected (good) output:
%s

Expected (bad) output:
%s

Actual output to grade:
%s

Respond with a single integer score from 0 to 10, optionally followed by a short justification. Put the numeric score first, e.g. "7" or "7/10".`

// criteriaJudgeTemplate is used when a metric carries promptCriteria but no
// explicit prompt.
const criteriaJudgeTemplate = `You are grading the quality of an AI system's output against this criterion:

%s

Actual output to grade:
%s

Respond with a single integer score from 0 to 10, optionally followed by a short justification. Put the numeric score first, e.g. "7" or "7/10".`

var firstNumberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// runJudge implements the llm metric kind (spec.md section 4.6).
func runJudge(ctx context.Context, registry *providers.Registry, metric domain.Metric, output any, example domain.Example) (float64, error) {
	provider, err := registry.Resolve(metric.Provider)
	if err != nil {
		return 0, fmt.Errorf("llm metric: %w", err)
	}

	prompt, err := judgePrompt(metric, output, example)
	if err != nil {
		return 0, fmt.Errorf("llm metric: %w", err)
	}

	text, err := provider.Complete(ctx, metric.Model, "", prompt, judgeTemperature)
	if err != nil {
		return 0, fmt.Errorf("llm metric: %w", err)
	}

	score, err := extractFirstFiniteNumber(text)
	if err != nil {
		return 0, fmt.Errorf("llm metric: %w", err)
	}
	return score, nil
}

func judgePrompt(metric domain.Metric, output any, example domain.Example) (string, error) {
	if metric.Prompt != "" {
		return metric.Prompt, nil
	}

	outputText := toComparable(output)

	if metric.PromptCriteria != "" {
		return fmt.Sprintf(criteriaJudgeTemplate, metric.PromptCriteria, outputText), nil
	}

	if example.Outputs == nil {
		return "", fmt.Errorf("no prompt, promptCriteria, or reference outputs to build a judge prompt from")
	}
	good, err := json.Marshal(example.Outputs.Good)
	if err != nil {
		good = []byte("null")
	}
	bad, err := json.Marshal(example.Outputs.Bad)
	if err != nil {
		bad = []byte("null")
	}
	return fmt.Sprintf(standardJudgeTemplate, good, bad, outputText), nil
}

// extractFirstFiniteNumber accepts forms like "7" or "Score: 7/10" (spec.md
// section 4.6), taking the first number it finds.
func extractFirstFiniteNumber(text string) (float64, error) {
	match := firstNumberPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("no finite number found in judge response %q", text)
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse judge response number %q: %w", match, err)
	}
	return value, nil
}
