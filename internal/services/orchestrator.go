package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
)

// Sender is the part of a transport the orchestrator needs.
type Sender interface {
	PayloadKind() transport.PayloadKind
	Send(ctx context.Context, p transport.Payload, printerName string) error
	Status() transport.Status
}

// Job is one batch submitted from the print queue.
type Job struct {
	Items           []model.PrintableItem
	SelectedPrinter string
	HeightMM        int
	Initial         string
}

// ItemResult is the outcome of printing one queue item.
type ItemResult struct {
	JobID     string
	Item      model.PrintableItem
	Printer   string
	PrintedAt time.Time
	HeightMM  int
	Initial   string
	Copies    int
	Err       error
}

func (r ItemResult) OK() bool { return r.Err == nil }

// Report aggregates a batch. Skipped items were never handed to the
// transport because the job was cancelled.
type Report struct {
	ID              string
	Printer         string
	Total           int
	SuccessCount    int
	FailCount       int
	FailedItemNames []string
	Skipped         []string
	Results         []ItemResult
}

func (r Report) Summary() string {
	s := fmt.Sprintf("%d of %d printed", r.SuccessCount, r.Total)
	if len(r.Skipped) > 0 {
		s += fmt.Sprintf(", %d skipped", len(r.Skipped))
	}
	return s
}

type Orchestrator struct {
	sender   Sender
	builder  PayloadBuilder
	log      *slog.Logger
	onResult func(ItemResult)
	now      func() time.Time
}

type OrchestratorOption func(*Orchestrator)

// OnResult registers a hook called after every item, in queue order.
func OnResult(fn func(ItemResult)) OrchestratorOption {
	return func(o *Orchestrator) { o.onResult = fn }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

func NewOrchestrator(sender Sender, catalog *model.Catalog, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sender:  sender,
		builder: PayloadBuilder{Catalog: catalog},
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run prints the queue one item at a time on a single resolved printer. A
// failing item is recorded and the batch moves on. When ctx ends no further
// items are started; the item in flight finishes.
func (o *Orchestrator) Run(ctx context.Context, job Job) (Report, error) {
	report := Report{ID: uuid.NewString(), Total: len(job.Items)}

	if _, err := label.ConfigFor(job.HeightMM); err != nil {
		return report, err
	}
	st := o.sender.Status()
	printer, err := transport.ResolvePrinter(job.SelectedPrinter, st.DefaultPrinter, st.Printers)
	if err != nil {
		return report, err
	}
	report.Printer = printer

	log := o.log.With("job", report.ID, "printer", printer)
	log.Info("Printing queue", "items", len(job.Items), "height", job.HeightMM)
	printedAt := o.now()

	for i, item := range job.Items {
		if ctx.Err() != nil {
			for _, rest := range job.Items[i:] {
				report.Skipped = append(report.Skipped, rest.Name)
			}
			log.Warn("Queue cancelled", "skipped", len(report.Skipped))
			break
		}

		res := ItemResult{
			JobID:     report.ID,
			Item:      item,
			Printer:   printer,
			PrintedAt: printedAt,
			HeightMM:  job.HeightMM,
			Initial:   job.Initial,
		}
		res.Copies, res.Err = o.printItem(ctx, item, printer, job)
		if res.Err != nil {
			report.FailCount++
			report.FailedItemNames = append(report.FailedItemNames, item.Name)
			log.Warn("Item failed", "item", item.Name, "copies", res.Copies, "error", res.Err)
		} else {
			report.SuccessCount++
			log.Info("Item printed", "item", item.Name, "copies", res.Copies)
		}
		report.Results = append(report.Results, res)
		if o.onResult != nil {
			o.onResult(res)
		}
	}

	log.Info("Queue finished", "summary", report.Summary())
	return report, nil
}

// printItem renders the label once and sends it quantity times. The first
// failing copy fails the item.
func (o *Orchestrator) printItem(ctx context.Context, item model.PrintableItem, printer string, job Job) (copies int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("printing %s: %v", item.Name, r)
		}
	}()

	if err := item.Validate(); err != nil {
		return 0, err
	}
	payload, err := o.builder.Build(item, job.HeightMM, job.Initial, o.sender.PayloadKind())
	if err != nil {
		return 0, err
	}
	for copies < item.Quantity {
		if copies > 0 && ctx.Err() != nil {
			return copies, fmt.Errorf("stopped after %d of %d copies: %w", copies, item.Quantity, ctx.Err())
		}
		if err := o.sender.Send(ctx, payload, printer); err != nil {
			return copies, err
		}
		copies++
	}
	return copies, nil
}
