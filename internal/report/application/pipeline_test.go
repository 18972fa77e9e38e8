package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"evcc-charge-report/internal/delivery"
	"evcc-charge-report/internal/i18n"
	"evcc-charge-report/internal/render"
	"evcc-charge-report/internal/report/domain"
)

type stubRaw struct {
	start  time.Time
	energy string
	price  string
}

func (s stubRaw) StartTime() time.Time { return s.start }
func (s stubRaw) FinishTime() (time.Time, bool) { return time.Time{}, false }
func (s stubRaw) Loadpoint() string { return "Garage" }
func (s stubRaw) Vehicle() string { return "ID.3" }

func (s stubRaw) Energy() (decimal.Decimal, bool) {
	if s.energy == "" {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(s.energy), true
}

func (s stubRaw) Price() (decimal.Decimal, bool) {
	if s.price == "" {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(s.price), true
}

type stubSource struct {
	sessions []domain.RawSession
	err      error

	gotYear  int
	gotMonth int
}

func (s *stubSource) Sessions(_ context.Context, year, month int) ([]domain.RawSession, error) {
	s.gotYear, s.gotMonth = year, month
	return s.sessions, s.err
}

type stubBuilder struct {
	pdfErr  error
	xlsxErr error

	lastContext *render.Context
}

func (b *stubBuilder) BuildPDF(c *render.Context) ([]byte, error) {
	b.lastContext = c
	if b.pdfErr != nil {
		return nil, b.pdfErr
	}
	return []byte("%PDF-stub"), nil
}

func (b *stubBuilder) BuildXLSX(c *render.Context) ([]byte, error) {
	if b.xlsxErr != nil {
		return nil, b.xlsxErr
	}
	return []byte("PK-stub"), nil
}

type stubDispatcher struct {
	outcome delivery.Outcome

	gotFilename string
	gotSubject  string
	persisted   map[string][]byte
}

func (d *stubDispatcher) Deliver(_ context.Context, doc []byte, filename, subject, body string) delivery.Outcome {
	d.gotFilename = filename
	d.gotSubject = subject
	return d.outcome
}

func (d *stubDispatcher) PersistOnly(filename string, doc []byte) (string, error) {
	if d.persisted == nil {
		d.persisted = map[string][]byte{}
	}
	d.persisted[filename] = doc
	return "out/" + filename, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 4, 10, 6, 0, 0, 0, time.UTC)
}

func newTestPipeline(t *testing.T, source SessionSource, builder DocumentBuilder, dispatch Dispatcher, opts Options) *Pipeline {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Sender.Name == "" {
		opts.Sender = render.Sender{Name: "Jane Doe", Street: "Street 1", City: "City"}
	}
	p, err := NewPipeline(source, builder, dispatch, i18n.New("en_US.UTF-8"), nil, opts)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestRunHappyPath(t *testing.T) {
	source := &stubSource{sessions: []domain.RawSession{
		stubRaw{start: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), energy: "10.5", price: "3.50"},
		stubRaw{start: time.Date(2024, 3, 12, 18, 0, 0, 0, time.UTC), energy: "20.25", price: "6.75"},
		stubRaw{start: time.Date(2024, 3, 20, 7, 0, 0, 0, time.UTC), energy: "5.0"},
	}}
	builder := &stubBuilder{}
	dispatch := &stubDispatcher{outcome: delivery.Outcome{Persisted: true, Emailed: true, Path: "out/r.pdf"}}
	p := newTestPipeline(t, source, builder, dispatch, Options{})

	res, err := p.Run(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("expected done, got %s", res.State)
	}
	if res.ExitCode() != 0 {
		t.Fatalf("expected exit 0, got %d", res.ExitCode())
	}
	if source.gotYear != 2024 || source.gotMonth != 3 {
		t.Fatalf("source queried with %d-%d", source.gotYear, source.gotMonth)
	}
	if !res.Totals.TotalEnergyKWh.Equal(decimal.RequireFromString("35.75")) {
		t.Fatalf("expected energy 35.75, got %s", res.Totals.TotalEnergyKWh)
	}
	if !res.Totals.TotalCost.Equal(decimal.RequireFromString("10.25")) {
		t.Fatalf("expected cost 10.25, got %s", res.Totals.TotalCost)
	}
	if dispatch.gotFilename != "ChargingCostSummary_2024-03.pdf" {
		t.Fatalf("unexpected filename %q", dispatch.gotFilename)
	}
	if dispatch.gotSubject != "Charging Cost Summary for March 2024" {
		t.Fatalf("unexpected subject %q", dispatch.gotSubject)
	}
	if builder.lastContext == nil || builder.lastContext.Totals.SessionCount != 3 {
		t.Fatal("render context not built from aggregation")
	}
}

func TestRunDefaultsToPreviousMonth(t *testing.T) {
	source := &stubSource{}
	dispatch := &stubDispatcher{outcome: delivery.Outcome{Persisted: true, EmailSkipped: true}}
	p := newTestPipeline(t, source, &stubBuilder{}, dispatch, Options{})

	res, err := p.Run(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Period.Year != 2024 || res.Period.Month != time.March {
		t.Fatalf("expected 2024-03, got %s", res.Period.Key())
	}
}

func TestRunInvalidPeriodAborts(t *testing.T) {
	p := newTestPipeline(t, &stubSource{}, &stubBuilder{}, &stubDispatcher{}, Options{})
	res, err := p.Run(context.Background(), 2024, 0)
	if !errors.Is(err, domain.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if res.State != StateAbortedFailed || res.ExitCode() != 1 {
		t.Fatalf("expected aborted/1, got %s/%d", res.State, res.ExitCode())
	}
}

func TestRunFetchFailureAborts(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	p := newTestPipeline(t, source, &stubBuilder{}, &stubDispatcher{}, Options{})
	res, err := p.Run(context.Background(), 2024, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.State != StateAbortedFailed || res.ExitCode() != 1 {
		t.Fatalf("expected aborted/1, got %s/%d", res.State, res.ExitCode())
	}
}

func TestRunRenderFailureAborts(t *testing.T) {
	builder := &stubBuilder{pdfErr: &render.RenderError{Err: errors.New("bad context")}}
	dispatch := &stubDispatcher{}
	p := newTestPipeline(t, &stubSource{}, builder, dispatch, Options{})
	res, err := p.Run(context.Background(), 2024, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.State != StateAbortedFailed {
		t.Fatalf("expected aborted, got %s", res.State)
	}
	if dispatch.gotFilename != "" {
		t.Fatal("no delivery may happen after a render failure")
	}
}

func TestRunDeliveryFailureIsPartial(t *testing.T) {
	dispatch := &stubDispatcher{outcome: delivery.Outcome{
		Persisted: true,
		Errors:    []error{&delivery.DeliveryError{Reason: delivery.ReasonAuth, Err: errors.New("535")}},
	}}
	p := newTestPipeline(t, &stubSource{}, &stubBuilder{}, dispatch, Options{})
	res, err := p.Run(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("delivery failures must not abort: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("expected done, got %s", res.State)
	}
	if res.ExitCode() != 2 {
		t.Fatalf("expected partial exit 2, got %d", res.ExitCode())
	}
}

func TestRunEmptyMonthStillRendersAndDelivers(t *testing.T) {
	builder := &stubBuilder{}
	dispatch := &stubDispatcher{outcome: delivery.Outcome{Persisted: true, EmailSkipped: true}}
	p := newTestPipeline(t, &stubSource{}, builder, dispatch, Options{})

	res, err := p.Run(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != StateDone || res.ExitCode() != 0 {
		t.Fatalf("expected done/0, got %s/%d", res.State, res.ExitCode())
	}
	if res.Totals.SessionCount != 0 {
		t.Fatalf("expected zero sessions, got %d", res.Totals.SessionCount)
	}
	if builder.lastContext == nil {
		t.Fatal("empty month must still render")
	}
	if dispatch.gotFilename == "" {
		t.Fatal("empty month must still persist")
	}
}

func TestRunWarningsDoNotAbort(t *testing.T) {
	source := &stubSource{sessions: []domain.RawSession{
		stubRaw{start: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), energy: "-1"},
		stubRaw{start: time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC), energy: "2.0"},
	}}
	dispatch := &stubDispatcher{outcome: delivery.Outcome{Persisted: true, EmailSkipped: true}}
	p := newTestPipeline(t, source, &stubBuilder{}, dispatch, Options{})

	res, err := p.Run(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(res.Warnings))
	}
	if res.Totals.SessionCount != 1 {
		t.Fatalf("expected 1 surviving session, got %d", res.Totals.SessionCount)
	}
	if res.ExitCode() != 0 {
		t.Fatalf("warnings are not failures, got exit %d", res.ExitCode())
	}
}

func TestRunXLSXExport(t *testing.T) {
	dispatch := &stubDispatcher{outcome: delivery.Outcome{Persisted: true, EmailSkipped: true}}
	p := newTestPipeline(t, &stubSource{}, &stubBuilder{}, dispatch, Options{ExportXLSX: true})

	res, err := p.Run(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.XLSXPath != "out/ChargingCostSummary_2024-03.xlsx" {
		t.Fatalf("unexpected xlsx path %q", res.XLSXPath)
	}
	if _, ok := dispatch.persisted["ChargingCostSummary_2024-03.xlsx"]; !ok {
		t.Fatal("xlsx artifact not persisted")
	}
}

func TestRunXLSXDisabledByDefault(t *testing.T) {
	dispatch := &stubDispatcher{outcome: delivery.Outcome{Persisted: true, EmailSkipped: true}}
	p := newTestPipeline(t, &stubSource{}, &stubBuilder{}, dispatch, Options{})

	if _, err := p.Run(context.Background(), 2024, 3); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(dispatch.persisted) != 0 {
		t.Fatal("xlsx must not be written unless enabled")
	}
}

func TestRunGermanSubject(t *testing.T) {
	dispatch := &stubDispatcher{outcome: delivery.Outcome{Persisted: true, EmailSkipped: true}}
	p, err := NewPipeline(&stubSource{}, &stubBuilder{}, dispatch, i18n.New("de_DE.UTF-8"), nil, Options{
		Sender:   render.Sender{Name: "Max Mustermann"},
		Now:      fixedNow,
		Location: time.UTC,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Run(context.Background(), 2024, 3); err != nil {
		t.Fatalf("run: %v", err)
	}
	if dispatch.gotSubject != "Ladekosten-Übersicht für März 2024" {
		t.Fatalf("unexpected subject %q", dispatch.gotSubject)
	}
}

func TestNewPipelineValidation(t *testing.T) {
	if _, err := NewPipeline(nil, &stubBuilder{}, &stubDispatcher{}, nil, nil, Options{}); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewPipeline(&stubSource{}, nil, &stubDispatcher{}, nil, nil, Options{}); err == nil {
		t.Fatal("expected error for nil builder")
	}
	if _, err := NewPipeline(&stubSource{}, &stubBuilder{}, nil, nil, nil, Options{}); err == nil {
		t.Fatal("expected error for nil dispatcher")
	}
}
