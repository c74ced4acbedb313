package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cleaner/internal/ingest"
	"github.com/sells-group/lead-cleaner/internal/lead"
	"github.com/sells-group/lead-cleaner/internal/model"
	"github.com/sells-group/lead-cleaner/pkg/anthropic"
	"github.com/sells-group/lead-cleaner/pkg/drive"
	"github.com/sells-group/lead-cleaner/pkg/mailer"
)

// State is a phase of the dataset processor. Each run walks the machine
// Start -> ParsingHeader -> {HeaderMissing | ProcessingRows} -> Finalizing ->
// {UploadSucceeded | UploadFailed}.
type State string

const (
	StateStart           State = "start"
	StateParsingHeader   State = "parsing_header"
	StateHeaderMissing   State = "header_missing"
	StateProcessingRows  State = "processing_rows"
	StateFinalizing      State = "finalizing"
	StateUploadSucceeded State = "upload_succeeded"
	StateUploadFailed    State = "upload_failed"
)

// Dataset is one cleaning job: a parsed input table plus the prompt template
// that drives lead classification for every row.
type Dataset struct {
	FileName string
	Prompt   string
	Table    *model.Table
}

// ParseDataset reads a CSV payload into a Dataset. A payload with no header
// row surfaces ingest.ErrMissingHeader, which the processor maps to its
// HeaderMissing terminal state.
func ParseDataset(r io.Reader, fileName, prompt string) (*Dataset, error) {
	table, err := ingest.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	return &Dataset{FileName: fileName, Prompt: prompt, Table: table}, nil
}

// ProcessorOptions configures a Processor.
type ProcessorOptions struct {
	BundleSize int
	Classify   LeadClassifierOptions
	Recipients []string // notification addresses, optional
}

// Processor runs datasets through the row pipeline and uploads the result.
// Collaborators are injected so tests can stub the network edges.
type Processor struct {
	llm       anthropic.Client
	providers *ProviderClassifier
	uploader  drive.Uploader
	notifier  mailer.Sender
	resolver  *lead.Resolver
	opts      ProcessorOptions
}

// NewProcessor wires a processor from its collaborators. notifier may be nil
// to disable notifications.
func NewProcessor(llm anthropic.Client, providers *ProviderClassifier, uploader drive.Uploader, notifier mailer.Sender, resolver *lead.Resolver, opts ProcessorOptions) *Processor {
	if opts.BundleSize <= 0 {
		opts.BundleSize = lead.DefaultBundleSize
	}
	if resolver == nil {
		resolver = lead.NewResolver()
	}
	return &Processor{
		llm:       llm,
		providers: providers,
		uploader:  uploader,
		notifier:  notifier,
		resolver:  resolver,
		opts:      opts,
	}
}

// ProcessCSV parses a raw CSV payload and runs it to a terminal state. It is
// the entry point for uploads received over HTTP.
func (p *Processor) ProcessCSV(ctx context.Context, r io.Reader, fileName, prompt string) *model.TaskResult {
	log := zap.L().With(zap.String("file", fileName))
	transition(log, StateStart, StateParsingHeader)

	ds, err := ParseDataset(r, fileName, prompt)
	if err != nil {
		return p.FailParse(ctx, fileName, err)
	}
	return p.process(ctx, log, StateParsingHeader, ds)
}

// FailParse maps a dataset read error to its terminal result and sends the
// failure notification that terminal state owes. A missing header keeps its
// dedicated state and message; every other read failure is reported as what
// it is.
func (p *Processor) FailParse(ctx context.Context, fileName string, err error) *model.TaskResult {
	log := zap.L().With(zap.String("file", fileName))

	if errors.Is(err, ingest.ErrMissingHeader) {
		transition(log, StateParsingHeader, StateHeaderMissing)
		result := &model.TaskResult{Error: "CSV data is missing headers."}
		p.notifyFailure(ctx, fileName, result.Error)
		return result
	}

	log.Error("reading dataset failed", zap.Error(err))
	result := &model.TaskResult{Error: fmt.Sprintf("read input: %v", err)}
	p.notifyFailure(ctx, fileName, result.Error)
	return result
}

// Process runs an already-parsed dataset to a terminal state. Used by the
// CLI, which parses CSV and XLSX files itself.
func (p *Processor) Process(ctx context.Context, ds *Dataset) *model.TaskResult {
	log := zap.L().With(zap.String("file", ds.FileName))
	state := transition(log, StateStart, StateParsingHeader)

	if ds.Table == nil || len(ds.Table.Header) == 0 {
		transition(log, state, StateHeaderMissing)
		result := &model.TaskResult{Error: "CSV data is missing headers."}
		p.notifyFailure(ctx, ds.FileName, result.Error)
		return result
	}
	return p.process(ctx, log, state, ds)
}

func (p *Processor) process(ctx context.Context, log *zap.Logger, state State, ds *Dataset) *model.TaskResult {
	state = transition(log, state, StateProcessingRows)

	header := ds.Table.Header
	outHeader := model.OutputHeader(header)
	bundles := lead.NewBundleAssigner(p.opts.BundleSize)
	classifier := NewLeadClassifier(p.llm, ds.Prompt, p.opts.Classify)

	outRows := make([]model.Row, 0, len(ds.Table.Rows))
	for i, row := range ds.Table.Rows {
		if row == nil {
			log.Warn("skipping malformed row", zap.Int("row", i+1))
			continue
		}
		outRows = append(outRows, p.processRow(ctx, header, row, bundles, classifier))
	}

	state = transition(log, state, StateFinalizing)

	var buf bytes.Buffer
	if err := ingest.EncodeCSV(&buf, outHeader, outRows); err != nil {
		transition(log, state, StateUploadFailed)
		result := &model.TaskResult{Error: fmt.Sprintf("encode output: %v", err)}
		p.notifyFailure(ctx, ds.FileName, result.Error)
		return result
	}

	link, err := p.uploader.Upload(ctx, &buf, ds.FileName)
	if err != nil {
		transition(log, state, StateUploadFailed)
		log.Error("upload failed", zap.Error(err))
		result := &model.TaskResult{Error: fmt.Sprintf("upload failed: %v", err)}
		p.notifyFailure(ctx, ds.FileName, result.Error)
		return result
	}

	transition(log, state, StateUploadSucceeded)
	log.Info("dataset processed",
		zap.Int("rows", len(outRows)),
		zap.String("link", link))
	p.notifySuccess(ctx, ds.FileName, link)
	return &model.TaskResult{Message: "File processed and uploaded", ArtifactLink: link}
}

// processRow derives the three output columns for one row: bundle number
// from the company occurrence count, mail provider from the email's domain,
// and the lead label from the model. Derivations that fail produce sentinel
// values; they never abort the row.
func (p *Processor) processRow(ctx context.Context, header []string, row model.Row, bundles *lead.BundleAssigner, classifier *LeadClassifier) model.Row {
	out := row.Clone()

	company := p.resolver.Company(header, row)
	out[model.ColBundle] = strconv.Itoa(bundles.Assign(company))

	email, _ := p.resolver.Email(header, row)
	out[model.ColProvider] = string(p.providers.ClassifyEmail(ctx, email))

	title := p.resolver.Title(header, row)
	out[model.ColClassification] = classifier.Classify(ctx, title)

	return out
}

// Exactly one notification goes out per terminal state. Delivery failures
// are logged and swallowed; they never change the task's result.

func (p *Processor) notifySuccess(ctx context.Context, fileName, link string) {
	if p.notifier == nil || len(p.opts.Recipients) == 0 {
		return
	}
	subject := fmt.Sprintf("Lead list %s processed", fileName)
	body := fmt.Sprintf("The file %s was processed and uploaded.\n\nDownload: %s\n", fileName, link)
	if err := p.notifier.Send(ctx, subject, body, p.opts.Recipients); err != nil {
		zap.L().Warn("success notification failed",
			zap.String("file", fileName),
			zap.Error(err))
	}
}

func (p *Processor) notifyFailure(ctx context.Context, fileName, detail string) {
	if p.notifier == nil || len(p.opts.Recipients) == 0 {
		return
	}
	subject := fmt.Sprintf("Lead list %s failed", fileName)
	body := fmt.Sprintf("Processing the file %s failed.\n\nError: %s\n", fileName, detail)
	if err := p.notifier.Send(ctx, subject, body, p.opts.Recipients); err != nil {
		zap.L().Warn("failure notification failed",
			zap.String("file", fileName),
			zap.Error(err))
	}
}

func transition(log *zap.Logger, from, to State) State {
	log.Debug("state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return to
}
