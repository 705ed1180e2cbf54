package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/aasc77/prism/internal/logging"
)

// OllamaClassifier judges reports with a local LLM served by Ollama.
// It degrades safely: any response it cannot parse becomes an
// informational verdict so a confused model never advances or fails a
// phase on its own.
type OllamaClassifier struct {
	llm    llms.Model
	logger *logging.Logger
}

// NewOllamaClassifier connects to an Ollama server.
func NewOllamaClassifier(serverURL, model string, logger *logging.Logger) (*OllamaClassifier, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &OllamaClassifier{llm: llm, logger: logger}, nil
}

// NewOllamaClassifierWithModel creates a classifier over an existing
// model. This is primarily useful for testing.
func NewOllamaClassifierWithModel(llm llms.Model, logger *logging.Logger) *OllamaClassifier {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &OllamaClassifier{llm: llm, logger: logger}
}

// modelVerdict is the JSON shape the model is asked to produce.
type modelVerdict struct {
	Action    string `json:"action"`
	Message   string `json:"message"`
	Reasoning string `json:"reasoning"`
}

// Classify implements Classifier.
func (c *OllamaClassifier) Classify(ctx context.Context, req Request) (Classification, error) {
	prompt := buildPrompt(req)

	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(0.0),
	)
	if err != nil {
		return Classification{}, fmt.Errorf("ollama classification: %w", err)
	}

	verdict, ok := parseModelResponse(response)
	if !ok {
		c.logger.Warn("unparseable classifier response, treating as informational",
			"role", req.Role, "response", truncate(response, 200))
		return Classification{
			Verdict:   VerdictInformational,
			Rationale: "classifier response could not be parsed",
		}, nil
	}

	switch strings.ToLower(verdict.Action) {
	case "advance", "approve", "pass":
		return Classification{Verdict: VerdictAdvance, Rationale: verdict.Reasoning}, nil
	case "fail", "retry", "reject":
		return Classification{Verdict: VerdictFail, Rationale: verdict.Reasoning}, nil
	default:
		return Classification{Verdict: VerdictInformational, Rationale: verdict.Reasoning}, nil
	}
}

// buildPrompt renders the report and its pipeline context for the model.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You supervise a three-stage work pipeline (red: write tests, ")
	b.WriteString("green: implement, blue: clean up). Judge the worker report below.\n\n")
	fmt.Fprintf(&b, "Task: %s (%s)\n", req.TaskTitle, req.TaskID)
	fmt.Fprintf(&b, "Current phase: %s\n", req.Phase)
	fmt.Fprintf(&b, "Reporting worker: %s\n\n", req.Role)

	if content, err := json.Marshal(req.Content); err == nil {
		fmt.Fprintf(&b, "Report:\n%s\n\n", content)
	}
	if len(req.History) > 0 {
		b.WriteString("Recent messages:\n")
		for _, h := range req.History {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond with ONLY a JSON object, no prose:\n")
	b.WriteString(`{"action": "advance" | "fail" | "informational", "message": "<one line>", "reasoning": "<why>"}` + "\n")
	b.WriteString("advance = the phase's work is complete and correct. ")
	b.WriteString("fail = the work is incomplete, broken, or only partially done. ")
	b.WriteString("informational = the report is a status update with no final outcome.\n")
	return b.String()
}

// parseModelResponse extracts the verdict JSON from a model response,
// tolerating markdown code fences around it.
func parseModelResponse(response string) (modelVerdict, bool) {
	text := strings.TrimSpace(response)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	// Models sometimes wrap the JSON in prose. Find the outermost braces.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return modelVerdict{}, false
	}

	var verdict modelVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return modelVerdict{}, false
	}
	if verdict.Action == "" {
		return modelVerdict{}, false
	}
	return verdict, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
