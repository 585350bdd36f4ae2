package submission

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/domain/invoice"
	"navgate/pkg/logger"
)

var tracer = otel.Tracer("domain/submission")

// pollDelay is how long a submit waits after a successful upload before the
// first status query. The authority almost always settles small batches
// within a couple of seconds; waiting avoids a guaranteed-useless query.
const pollDelay = 2 * time.Second

// rearmInterval is how far ahead the worker trigger is re-armed while
// transactions are still in flight.
const rearmInterval = 10 * time.Minute

// TriggerStore schedules the background status pass. Arm is idempotent:
// re-arming an already armed trigger keeps the earlier due time.
type TriggerStore interface {
	Arm(ctx context.Context, runAt time.Time) error
}

// Service is the submission facade: it runs the pre-submission checks,
// drives the state machine and keeps the background trigger armed while
// anything is in flight.
type Service struct {
	machine      *Machine
	transactions Repository
	history      HistoryRepository
	invoices     invoice.Repository
	companies    CompanyLookup
	checker      *invoice.Checker
	triggers     TriggerStore

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// NewService creates the submission service.
func NewService(
	machine *Machine,
	transactions Repository,
	history HistoryRepository,
	invoices invoice.Repository,
	companies CompanyLookup,
	checker *invoice.Checker,
	triggers TriggerStore,
) *Service {
	return &Service{
		machine:      machine,
		transactions: transactions,
		history:      history,
		invoices:     invoices,
		companies:    companies,
		checker:      checker,
		triggers:     triggers,
		sleep:        sleepCtx,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Check runs the pre-submission checks for the given invoices without
// submitting anything. Used by the dry-run endpoint.
func (s *Service) Check(ctx context.Context, invoiceIDs []id.ID) ([]invoice.CheckFailure, error) {
	byCompany, err := s.loadByCompany(ctx, invoiceIDs)
	if err != nil {
		return nil, err
	}

	var failures []invoice.CheckFailure
	for companyID, invs := range byCompany {
		comp, err := s.companies.GetByID(ctx, companyID)
		if err != nil {
			return nil, err
		}
		fs, err := s.checker.Check(ctx, comp, invs)
		if err != nil {
			return nil, err
		}
		failures = append(failures, fs...)
	}
	return failures, nil
}

// Submit uploads the given invoices and, after a short delay, polls for
// their verdict once. Invoices failing the pre-submission checks block the
// whole call; nothing is sent.
func (s *Service) Submit(ctx context.Context, invoiceIDs []id.ID, actor string) ([]*Transaction, error) {
	ctx, span := tracer.Start(ctx, "submission.Submit")
	defer span.End()

	failures, err := s.Check(ctx, invoiceIDs)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, apperror.NewValidation("pre-submission checks failed").
			WithDetail("failures", failures)
	}

	trs, err := s.machine.Upload(ctx, invoiceIDs, actor)
	if err != nil {
		return nil, err
	}

	s.pollAfterSend(ctx, trs, actor)

	if err := s.armIfInFlight(ctx); err != nil {
		return nil, err
	}
	return s.reload(ctx, trs)
}

// RequestCancel submits technical annulments and polls once for the verdict.
func (s *Service) RequestCancel(ctx context.Context, requests []CancelRequest, actor string) error {
	ctx, span := tracer.Start(ctx, "submission.RequestCancel")
	defer span.End()

	if err := s.machine.RequestCancel(ctx, requests, actor); err != nil {
		return err
	}

	var trs []*Transaction
	for _, req := range requests {
		tr, err := s.transactions.FindActive(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		trs = append(trs, tr)
	}
	s.pollAfterSend(ctx, trs, actor)

	return s.armIfInFlight(ctx)
}

// pollAfterSend waits pollDelay and queries the verdict of every
// transaction that reached the authority. Poll errors are not fatal: the
// upload already succeeded, the background pass will settle the rest.
func (s *Service) pollAfterSend(ctx context.Context, trs []*Transaction, actor string) {
	var waiting []id.ID
	for _, tr := range trs {
		if tr.State == StateSent || tr.State == StateCancelSent {
			waiting = append(waiting, tr.ID)
		}
	}
	if len(waiting) == 0 {
		return
	}

	s.sleep(ctx, pollDelay)
	if err := s.machine.QueryStatus(ctx, waiting, actor); err != nil {
		logger.Warn(ctx, "post-send status poll failed, leaving it to the background pass",
			"error", err.Error(),
		)
	}
}

// Abort withdraws an invoice from the upload flow.
func (s *Service) Abort(ctx context.Context, invoiceID id.ID, actor string) error {
	return s.machine.Abort(ctx, invoiceID, actor)
}

// UpdateStatus is the background pass: it polls every waiting transaction,
// reconciles timed-out ones and re-arms the trigger while anything is
// still in flight. Run by the worker on the armed trigger and exposed for
// a manual kick.
func (s *Service) UpdateStatus(ctx context.Context, actor string) error {
	ctx, span := tracer.Start(ctx, "submission.UpdateStatus")
	defer span.End()

	waiting, err := s.transactions.ListByStates(ctx, StateSent, StateCancelSent, StateCancelPending, StateQueryError)
	if err != nil {
		return err
	}
	if len(waiting) > 0 {
		if err := s.machine.QueryStatus(ctx, transactionIDs(waiting), actor); err != nil {
			return err
		}
	}

	if err := s.machine.RecoverTimeout(ctx, actor); err != nil {
		return err
	}

	return s.armIfInFlight(ctx)
}

// armIfInFlight re-arms the worker trigger when any transaction still
// awaits a remote verdict, so in-flight lifecycles are always settled even
// if no user ever comes back.
func (s *Service) armIfInFlight(ctx context.Context) error {
	pending, err := s.transactions.ListByStates(ctx,
		StateSent, StateCancelSent, StateCancelPending, StateQueryError,
		StateSendTimeout, StateCancelTimeout)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	return s.triggers.Arm(ctx, s.now().Add(rearmInterval))
}

// GetTransaction returns one transaction.
func (s *Service) GetTransaction(ctx context.Context, transactionID id.ID) (*Transaction, error) {
	return s.transactions.GetByID(ctx, transactionID)
}

// ListTransactions returns transactions matching the filter.
func (s *Service) ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.transactions.List(ctx, filter)
}

// History returns the audit trail of one invoice's submissions.
func (s *Service) History(ctx context.Context, invoiceID id.ID) ([]entity.StatusMovement, error) {
	return s.history.ListByInvoice(ctx, invoiceID)
}

func (s *Service) loadByCompany(ctx context.Context, invoiceIDs []id.ID) (map[id.ID][]*invoice.Invoice, error) {
	out := map[id.ID][]*invoice.Invoice{}
	for _, invoiceID := range invoiceIDs {
		inv, err := s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		if len(inv.Lines) == 0 {
			lines, err := s.invoices.GetLines(ctx, inv.ID)
			if err != nil {
				return nil, err
			}
			inv.Lines = lines
		}
		out[inv.CompanyID] = append(out[inv.CompanyID], inv)
	}
	return out, nil
}

func (s *Service) reload(ctx context.Context, trs []*Transaction) ([]*Transaction, error) {
	out := make([]*Transaction, 0, len(trs))
	for _, tr := range trs {
		fresh, err := s.transactions.GetByID(ctx, tr.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, fresh)
	}
	return out, nil
}
