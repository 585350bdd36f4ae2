package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
	"navgate/internal/domain"
	"navgate/internal/domain/credentials"
	"navgate/internal/domain/invoice"
	"navgate/internal/nav"
)

// memTransactions is an in-memory transaction Repository.
type memTransactions struct {
	order []id.ID
	trs   map[id.ID]*Transaction
}

func newMemTransactions() *memTransactions {
	return &memTransactions{trs: map[id.ID]*Transaction{}}
}

func (r *memTransactions) Create(_ context.Context, tr *Transaction) error {
	r.order = append(r.order, tr.ID)
	r.trs[tr.ID] = tr
	return nil
}

func (r *memTransactions) GetByID(_ context.Context, trID id.ID) (*Transaction, error) {
	tr, ok := r.trs[trID]
	if !ok {
		return nil, apperror.NewNotFound("submission transaction", trID.String())
	}
	return tr, nil
}

func (r *memTransactions) Update(_ context.Context, tr *Transaction) error {
	if _, ok := r.trs[tr.ID]; !ok {
		return apperror.NewNotFound("submission transaction", tr.ID.String())
	}
	r.trs[tr.ID] = tr
	return nil
}

func (r *memTransactions) all() []*Transaction {
	out := make([]*Transaction, 0, len(r.order))
	for _, trID := range r.order {
		if tr, ok := r.trs[trID]; ok {
			out = append(out, tr)
		}
	}
	return out
}

func (r *memTransactions) List(_ context.Context, filter ListFilter) ([]*Transaction, error) {
	var out []*Transaction
	for _, tr := range r.all() {
		if filter.InvoiceID != nil && tr.InvoiceID != *filter.InvoiceID {
			continue
		}
		if filter.Annulment != nil && tr.Annulment != *filter.Annulment {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, tr.State) {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

func (r *memTransactions) FindActive(_ context.Context, invoiceID id.ID) (*Transaction, error) {
	for _, tr := range r.all() {
		if tr.InvoiceID == invoiceID && tr.IsActive() {
			return tr, nil
		}
	}
	return nil, apperror.NewNotFound("submission transaction", invoiceID.String())
}

func (r *memTransactions) ListByStates(_ context.Context, states ...State) ([]*Transaction, error) {
	var out []*Transaction
	for _, tr := range r.all() {
		if containsState(states, tr.State) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (r *memTransactions) ListByTransactionCode(_ context.Context, credentialsID id.ID, code string, states ...State) ([]*Transaction, error) {
	var out []*Transaction
	for _, tr := range r.all() {
		if tr.CredentialsID == credentialsID && tr.TransactionCode == code && containsState(states, tr.State) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (r *memTransactions) PruneRejected(_ context.Context, invoiceID id.ID) error {
	var rejected []*Transaction
	for _, tr := range r.all() {
		if tr.InvoiceID == invoiceID && tr.State == StateRejected {
			rejected = append(rejected, tr)
		}
	}
	for i := 0; i+1 < len(rejected); i++ {
		delete(r.trs, rejected[i].ID)
	}
	return nil
}

func containsState(states []State, s State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

// memHistory is an in-memory audit trail.
type memHistory struct {
	entries []entity.StatusMovement
}

func (h *memHistory) Append(_ context.Context, entries ...entity.StatusMovement) error {
	h.entries = append(h.entries, entries...)
	return nil
}

func (h *memHistory) ListByInvoice(_ context.Context, invoiceID id.ID) ([]entity.StatusMovement, error) {
	var out []entity.StatusMovement
	for _, e := range h.entries {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (h *memHistory) ListByPeriod(_ context.Context, from, to time.Time) ([]entity.StatusMovement, error) {
	var out []entity.StatusMovement
	for _, e := range h.entries {
		if !e.Period.Before(from) && !e.Period.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// memInvoices is an in-memory invoice repository.
type memInvoices struct {
	invoices map[id.ID]*invoice.Invoice
}

func newMemInvoices() *memInvoices {
	return &memInvoices{invoices: map[id.ID]*invoice.Invoice{}}
}

func (r *memInvoices) Create(_ context.Context, inv *invoice.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memInvoices) GetByID(_ context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return inv, nil
}

func (r *memInvoices) GetByNumber(_ context.Context, number string) (*invoice.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", number)
}

func (r *memInvoices) Update(_ context.Context, inv *invoice.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memInvoices) Delete(_ context.Context, invoiceID id.ID) error {
	delete(r.invoices, invoiceID)
	return nil
}

func (r *memInvoices) List(_ context.Context, _ invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	return domain.ListResult[*invoice.Invoice]{}, nil
}

func (r *memInvoices) GetLines(_ context.Context, invoiceID id.ID) ([]invoice.Line, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return inv.Lines, nil
}

func (r *memInvoices) SaveLines(_ context.Context, invoiceID id.ID, lines []invoice.Line) error {
	r.invoices[invoiceID].Lines = lines
	return nil
}

func (r *memInvoices) ListSuccessors(_ context.Context, invoiceID id.ID) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice
	for _, inv := range r.invoices {
		if inv.ReversedEntryID != nil && *inv.ReversedEntryID == invoiceID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memInvoices) UpdateChainFields(_ context.Context, inv *invoice.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

// fakeTxm satisfies tx.LockingManager without a database.
type fakeTxm struct {
	conflict bool
	locked   [][]id.ID
}

func (f *fakeTxm) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeTxm) TryLockRows(_ context.Context, _ string, ids []id.ID) error {
	if f.conflict {
		return apperror.NewLockConflict("row is locked by another session")
	}
	f.locked = append(f.locked, ids)
	return nil
}

// fakeResolver maps credential ids to wire credentials.
type fakeResolver struct {
	active map[id.ID]*credentials.Credentials // by company
	wire   map[id.ID]nav.Credentials          // by credentials id
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		active: map[id.ID]*credentials.Credentials{},
		wire:   map[id.ID]nav.Credentials{},
	}
}

func (f *fakeResolver) add(companyID id.ID, username string) *credentials.Credentials {
	rec := credentials.NewCredentials(companyID, nav.ModeTest, username)
	f.active[companyID] = rec
	f.wire[rec.ID] = nav.Credentials{VAT: "12345678-2-13", Mode: nav.ModeTest, Username: username}
	return rec
}

func (f *fakeResolver) ResolveActive(_ context.Context, companyID id.ID, _ nav.Mode) (*credentials.Credentials, nav.Credentials, error) {
	rec, ok := f.active[companyID]
	if !ok {
		return nil, nav.Credentials{}, apperror.NewConfiguration("no active NAV credentials for company")
	}
	return rec, f.wire[rec.ID], nil
}

func (f *fakeResolver) ResolveByID(_ context.Context, credentialsID id.ID) (nav.Credentials, error) {
	creds, ok := f.wire[credentialsID]
	if !ok {
		return nav.Credentials{}, apperror.NewNotFound("credentials", credentialsID.String())
	}
	return creds, nil
}

// statusCall records one queryTransactionStatus invocation.
type statusCall struct {
	code            string
	includeOriginal bool
}

// fakeClient is a scriptable protocol client.
type fakeClient struct {
	tokenErr error

	manageCode string
	manageErr  error
	sent       [][]nav.InvoiceOperation

	annulCode string
	annulErr  error
	annulled  [][]nav.AnnulmentOperation

	statuses    map[string]*nav.TransactionStatus
	statusErr   error
	statusCalls []statusCall

	listPages []nav.TransactionList
	listCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		manageCode: "TXC001",
		annulCode:  "TXA001",
		statuses:   map[string]*nav.TransactionStatus{},
	}
}

func (c *fakeClient) TokenExchange(_ context.Context, _ nav.Credentials) (nav.Token, error) {
	if c.tokenErr != nil {
		return nav.Token{}, c.tokenErr
	}
	return nav.Token{Value: "token", ValidUntil: time.Now().Add(5 * time.Minute)}, nil
}

func (c *fakeClient) ManageInvoice(_ context.Context, _ nav.Credentials, _ nav.Token, ops []nav.InvoiceOperation) (string, error) {
	c.sent = append(c.sent, ops)
	if c.manageErr != nil {
		return "", c.manageErr
	}
	return c.manageCode, nil
}

func (c *fakeClient) QueryTransactionStatus(_ context.Context, _ nav.Credentials, code string, includeOriginal bool) (*nav.TransactionStatus, error) {
	c.statusCalls = append(c.statusCalls, statusCall{code: code, includeOriginal: includeOriginal})
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	status, ok := c.statuses[code]
	if !ok {
		return nil, errors.New("unknown transaction code")
	}
	return status, nil
}

func (c *fakeClient) QueryTransactionList(_ context.Context, _ nav.Credentials, _, _ time.Time, page int) (*nav.TransactionList, error) {
	c.listCalls++
	if len(c.listPages) == 0 {
		return &nav.TransactionList{AvailablePages: 0}, nil
	}
	if page > len(c.listPages) {
		return &nav.TransactionList{AvailablePages: len(c.listPages)}, nil
	}
	list := c.listPages[page-1]
	list.AvailablePages = len(c.listPages)
	return &list, nil
}

func (c *fakeClient) ManageAnnulment(_ context.Context, _ nav.Credentials, _ nav.Token, ops []nav.AnnulmentOperation) (string, error) {
	c.annulled = append(c.annulled, ops)
	if c.annulErr != nil {
		return "", c.annulErr
	}
	return c.annulCode, nil
}

// fakeBuilder renders a recognizable payload per invoice.
type fakeBuilder struct {
	operations map[id.ID]nav.Operation
	err        error
}

func (b *fakeBuilder) Build(_ context.Context, inv *invoice.Invoice) ([]byte, nav.Operation, error) {
	if b.err != nil {
		return nil, "", b.err
	}
	op := nav.OperationCreate
	if b.operations != nil {
		if o, ok := b.operations[inv.ID]; ok {
			op = o
		}
	}
	return []byte("<InvoiceData>" + inv.Number + "</InvoiceData>"), op, nil
}

// fakeTriggers records trigger arming.
type fakeTriggers struct {
	armed []time.Time
}

func (t *fakeTriggers) Arm(_ context.Context, runAt time.Time) error {
	t.armed = append(t.armed, runAt)
	return nil
}

// harness wires the state machine over the in-memory fakes.
type harness struct {
	transactions *memTransactions
	history      *memHistory
	invoices     *memInvoices
	builder      *fakeBuilder
	resolver     *fakeResolver
	client       *fakeClient
	txm          *fakeTxm
	machine      *Machine
	now          time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transactions: newMemTransactions(),
		history:      &memHistory{},
		invoices:     newMemInvoices(),
		builder:      &fakeBuilder{},
		resolver:     newFakeResolver(),
		client:       newFakeClient(),
		txm:          &fakeTxm{},
		now:          time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	h.machine = NewMachine(
		h.transactions, h.history, h.invoices, h.builder, h.resolver, h.client, h.txm, nav.ModeTest,
	)
	h.machine.now = func() time.Time { return h.now }
	return h
}

// addInvoice creates a posted invoice with an active credential set for its
// company.
func (h *harness) addInvoice(t *testing.T, number string) *invoice.Invoice {
	t.Helper()
	companyID := id.New()
	inv := invoice.NewInvoice(companyID, id.New(), id.New())
	inv.Number = number
	inv.AddLine(nil, "item", types.MustMoney("1"), types.MustMoney("100"), types.MustMoney("27"), "VAT27")
	inv.MarkPosted()
	require.NoError(t, h.invoices.Create(context.Background(), inv))
	h.resolver.add(companyID, "techuser-"+number)
	return inv
}

// addInvoiceFor creates a posted invoice under an existing company.
func (h *harness) addInvoiceFor(t *testing.T, companyID id.ID, number string) *invoice.Invoice {
	t.Helper()
	inv := invoice.NewInvoice(companyID, id.New(), id.New())
	inv.Number = number
	inv.AddLine(nil, "item", types.MustMoney("1"), types.MustMoney("100"), types.MustMoney("27"), "VAT27")
	inv.MarkPosted()
	require.NoError(t, h.invoices.Create(context.Background(), inv))
	return inv
}

func (h *harness) activeTransaction(t *testing.T, invoiceID id.ID) *Transaction {
	t.Helper()
	tr, err := h.transactions.FindActive(context.Background(), invoiceID)
	require.NoError(t, err)
	return tr
}

// doneStatus builds a DONE verdict with the given indexes and no messages.
func doneStatus(indexes ...string) *nav.TransactionStatus {
	status := &nav.TransactionStatus{}
	for _, idx := range indexes {
		status.Results = append(status.Results, nav.ProcessingResult{
			Index:         idx,
			InvoiceStatus: nav.StatusDone,
		})
	}
	return status
}
