package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cleaner/internal/model"
	"github.com/sells-group/lead-cleaner/internal/resilience"
	"github.com/sells-group/lead-cleaner/pkg/anthropic"
)

// PlaceholderToken is the literal inside the prompt template that gets
// replaced with the lead's job title. Earlier template revisions used
// "{{1.col6}}"; the token below is the only one supported now.
const PlaceholderToken = "[POSICION]"

// Labels written to the output column when classification cannot produce a
// real answer.
const (
	LabelError     = "Error"
	LabelNoContent = "No Content"
)

const classifierSystemPrompt = `You classify sales leads by job title. ` +
	`Answer with a single short label and nothing else.`

// LeadClassifierOptions configures a LeadClassifier.
type LeadClassifierOptions struct {
	Model       string
	MaxTokens   int64
	Timeout     time.Duration // per-call timeout, default 60s
	MaxAttempts int           // total attempts, default 3
	RetryDelay  time.Duration // fixed delay between attempts, default 5s
}

// LeadClassifier labels a lead by substituting its job title into the run's
// prompt template and asking the model for a short classification. The
// template is fixed for the life of the classifier, so the system prompt is
// sent with cache control.
type LeadClassifier struct {
	client   anthropic.Client
	template string
	system   []anthropic.SystemBlock
	opts     LeadClassifierOptions
	retry    resilience.RetryConfig
}

// NewLeadClassifier creates a classifier for one run's prompt template.
func NewLeadClassifier(client anthropic.Client, template string, opts LeadClassifierOptions) *LeadClassifier {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}

	retry := resilience.FixedRetryConfig(opts.MaxAttempts, opts.RetryDelay)
	retry.OnRetry = resilience.RetryLogger("anthropic", "classify_lead")

	return &LeadClassifier{
		client:   client,
		template: template,
		system:   anthropic.BuildCachedSystemBlocks(classifierSystemPrompt),
		opts:     opts,
		retry:    retry,
	}
}

// Classify returns the label for a lead with the given job title. Retryable
// failures are attempted up to the budget; auth failures abort immediately.
// Either way the caller gets a label, never an error, so one bad row cannot
// sink a dataset.
func (c *LeadClassifier) Classify(ctx context.Context, title string) string {
	prompt := strings.ReplaceAll(c.template, PlaceholderToken, title)

	outcome, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (model.ClassificationOutcome, error) {
		out := c.callOnce(ctx, prompt)
		switch out.Kind {
		case model.OutcomeRetryable:
			return out, resilience.NewTransientError(eris.New(out.Detail), 0)
		case model.OutcomeFatal:
			return out, resilience.NewFatalError(eris.New(out.Detail), 0)
		default:
			return out, nil
		}
	})
	if err != nil {
		zap.L().Warn("lead classification failed",
			zap.String("title", title),
			zap.Error(err))
		return LabelError
	}

	switch outcome.Kind {
	case model.OutcomeSuccess:
		return outcome.Text
	case model.OutcomeBlocked:
		return "Blocked: " + outcome.Detail
	case model.OutcomeEmpty:
		return LabelNoContent
	default:
		return LabelError
	}
}

// callOnce performs a single model invocation and maps the result onto the
// outcome taxonomy the retry loop branches on.
func (c *LeadClassifier) callOnce(ctx context.Context, prompt string) model.ClassificationOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.opts.Model,
		MaxTokens: c.opts.MaxTokens,
		System:    c.system,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		if code, ok := anthropic.StatusCode(err); ok {
			if resilience.IsAuthHTTPStatus(code) {
				return model.ClassificationOutcome{Kind: model.OutcomeFatal, Detail: err.Error()}
			}
			if resilience.IsTransientHTTPStatus(code) {
				return model.ClassificationOutcome{Kind: model.OutcomeRetryable, Detail: err.Error()}
			}
			return model.ClassificationOutcome{Kind: model.OutcomeFatal, Detail: err.Error()}
		}
		// Timeouts and network errors carry no status code.
		return model.ClassificationOutcome{Kind: model.OutcomeRetryable, Detail: err.Error()}
	}

	if resp.StopReason == "refusal" {
		return model.ClassificationOutcome{Kind: model.OutcomeBlocked, Detail: resp.StopReason}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return model.ClassificationOutcome{Kind: model.OutcomeEmpty}
	}
	return model.ClassificationOutcome{Kind: model.OutcomeSuccess, Text: text}
}
