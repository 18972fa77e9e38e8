package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"evcc-charge-report/internal/delivery"
	"evcc-charge-report/internal/i18n"
	"evcc-charge-report/internal/observability/metrics"
	"evcc-charge-report/internal/render"
	"evcc-charge-report/internal/report/domain"
)

// State names a pipeline stage boundary. States are terminal-only; a
// run is never resumed.
type State string

const (
	StateStart          State = "start"
	StatePeriodResolved State = "period_resolved"
	StateDataFetched    State = "data_fetched"
	StateAggregated     State = "aggregated"
	StateRendered       State = "rendered"
	StateDelivered      State = "delivered"
	StateDone           State = "done"
	StateAbortedFailed  State = "aborted_failed"
)

// SessionSource returns raw charging sessions for a month.
type SessionSource interface {
	Sessions(ctx context.Context, year, month int) ([]domain.RawSession, error)
}

// DocumentBuilder renders report documents from a context.
type DocumentBuilder interface {
	BuildPDF(c *render.Context) ([]byte, error)
	BuildXLSX(c *render.Context) ([]byte, error)
}

// Dispatcher delivers a rendered document through the configured
// channels and reports the per-channel outcome.
type Dispatcher interface {
	Deliver(ctx context.Context, doc []byte, filename, subject, body string) delivery.Outcome
	PersistOnly(filename string, doc []byte) (string, error)
}

// Options carry the run-scoped settings the pipeline needs.
type Options struct {
	Sender     render.Sender
	CostPolicy domain.CostPolicy
	ExportXLSX bool
	Location   *time.Location
	Now        func() time.Time
}

// Pipeline sequences period resolution, fetch, aggregation, rendering
// and delivery for one report run.
type Pipeline struct {
	source    SessionSource
	builder   DocumentBuilder
	dispatch  Dispatcher
	formatter *i18n.Formatter
	logger    *log.Logger
	opts      Options
}

// NewPipeline constructs a pipeline.
func NewPipeline(source SessionSource, builder DocumentBuilder, dispatch Dispatcher, formatter *i18n.Formatter, logger *log.Logger, opts Options) (*Pipeline, error) {
	if source == nil {
		return nil, errors.New("pipeline: nil session source")
	}
	if builder == nil {
		return nil, errors.New("pipeline: nil document builder")
	}
	if dispatch == nil {
		return nil, errors.New("pipeline: nil dispatcher")
	}
	if formatter == nil {
		formatter = i18n.New("")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CostPolicy == "" {
		opts.CostPolicy = domain.CostZeroFill
	}
	return &Pipeline{
		source:    source,
		builder:   builder,
		dispatch:  dispatch,
		formatter: formatter,
		logger:    logger,
		opts:      opts,
	}, nil
}

// Result is the terminal outcome of one run.
type Result struct {
	State    State
	Period   domain.Period
	Totals   domain.Totals
	Warnings []domain.Warning
	Outcome  delivery.Outcome
	PDFPath  string
	XLSXPath string
}

// ExitCode maps the run onto the process exit status: 0 for full
// success, 2 when the report was produced but a delivery channel
// failed, 1 when no report was produced.
func (r Result) ExitCode() int {
	switch {
	case r.State == StateDone && len(r.Outcome.Errors) == 0:
		return 0
	case r.State == StateDone:
		return 2
	default:
		return 1
	}
}

// Run executes the pipeline. Period, fetch and render failures abort;
// data-quality warnings and delivery failures are collected into the
// result and the run still completes.
func (p *Pipeline) Run(ctx context.Context, year, month int) (Result, error) {
	res := Result{State: StateStart}
	runResult := metrics.ResultError
	defer func() { metrics.ObserveRun(runResult) }()

	period, err := domain.ResolvePeriod(year, month, p.opts.Now(), p.opts.Location)
	if err != nil {
		res.State = StateAbortedFailed
		return res, err
	}
	res.Period = period
	res.State = StatePeriodResolved
	label := p.formatter.PeriodLabel(period.Month, period.Year)
	p.logger.Printf("pipeline: report period %s", period.Key())

	fetchStart := time.Now()
	raw, err := p.source.Sessions(ctx, period.Year, int(period.Month))
	metrics.ObserveStage("fetch", time.Since(fetchStart))
	if err != nil {
		res.State = StateAbortedFailed
		return res, fmt.Errorf("pipeline: fetch: %w", err)
	}
	res.State = StateDataFetched
	p.logger.Printf("pipeline: fetched %d raw sessions", len(raw))

	aggStart := time.Now()
	sessions, totals, warnings := domain.Aggregate(raw, period, p.formatter, p.opts.CostPolicy)
	metrics.ObserveStage("aggregate", time.Since(aggStart))
	res.Totals = totals
	res.Warnings = warnings
	res.State = StateAggregated
	metrics.AddSessions(totals.SessionCount)
	metrics.AddWarnings(len(warnings))
	for _, w := range warnings {
		p.logger.Printf("pipeline: data quality: record %d dropped: %s", w.Index, w.Reason)
	}

	rc := &render.Context{
		Period:      period,
		PeriodLabel: label,
		Sender:      p.opts.Sender,
		Sessions:    sessions,
		Totals:      totals,
		TotalEnergy: p.formatter.Energy(totals.TotalEnergyKWh),
		TotalCost:   p.formatter.Money(totals.TotalCost),
		GeneratedAt: p.opts.Now(),
		German:      p.formatter.IsGerman(),
	}

	renderStart := time.Now()
	doc, err := p.builder.BuildPDF(rc)
	metrics.ObserveStage("render", time.Since(renderStart))
	if err != nil {
		res.State = StateAbortedFailed
		return res, fmt.Errorf("pipeline: render: %w", err)
	}
	res.State = StateRendered

	filename := fmt.Sprintf("ChargingCostSummary_%s.pdf", period.Key())
	subject := fmt.Sprintf("Charging Cost Summary for %s", label)
	body := fmt.Sprintf("Attached is the automatic charging cost summary for %s.", label)
	if p.formatter.IsGerman() {
		subject = fmt.Sprintf("Ladekosten-Übersicht für %s", label)
		body = fmt.Sprintf("Anbei die automatische Ladekosten-Übersicht für %s.", label)
	}

	deliverStart := time.Now()
	outcome := p.dispatch.Deliver(ctx, doc, filename, subject, body)
	metrics.ObserveStage("deliver", time.Since(deliverStart))
	res.Outcome = outcome
	res.PDFPath = outcome.Path
	res.State = StateDelivered
	metrics.ObserveDelivery("file", outcome.Persisted)
	if !outcome.EmailSkipped {
		metrics.ObserveDelivery("email", outcome.Emailed)
	}

	if p.opts.ExportXLSX {
		xlsxName := fmt.Sprintf("ChargingCostSummary_%s.xlsx", period.Key())
		if data, xerr := p.builder.BuildXLSX(rc); xerr != nil {
			res.Outcome.Errors = append(res.Outcome.Errors, xerr)
			p.logger.Printf("pipeline: xlsx export failed: %v", xerr)
		} else if path, perr := p.dispatch.PersistOnly(xlsxName, data); perr != nil {
			res.Outcome.Errors = append(res.Outcome.Errors, perr)
			p.logger.Printf("pipeline: xlsx export failed: %v", perr)
		} else {
			res.XLSXPath = path
		}
	}

	res.State = StateDone
	if len(res.Outcome.Errors) == 0 {
		runResult = metrics.ResultSuccess
	} else {
		runResult = metrics.ResultPartial
	}
	return res, nil
}
