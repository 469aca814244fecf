package billing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/medcabinet/cabinet/internal/directory"
	"github.com/medcabinet/cabinet/internal/shared"
	"github.com/medcabinet/cabinet/internal/storage"
)

var testNow = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestDirectory() *directory.Memory {
	dir := directory.NewMemory()
	dir.AddPatient(directory.Patient{ID: "p1", Nom: "Dupont", Prenom: "Jean"})
	dir.AddPatient(directory.Patient{ID: "p2", Nom: "Kouassi", Prenom: "Akissi"})
	dir.AddUser(directory.User{ID: "u1", Nom: "Traoré", Prenom: "Ibrahim", Role: "medecin"})
	dir.AddConsultation(directory.Consultation{
		ID: "c1", PatientID: "p2", ProfessionnelID: "u1",
		DateConsultation: time.Date(2024, 1, 18, 9, 0, 0, 0, time.UTC),
		Diagnostic:       "Paludisme simple",
	})
	return dir
}

func newTestService(t *testing.T, store storage.Collection, opts ...Option) *Service {
	t.Helper()
	dir := newTestDirectory()
	base := []Option{WithNow(func() time.Time { return testNow }), WithIDGenerator(sequentialIDs())}
	svc, err := NewService(context.Background(), NewRepository(store), Dependencies{Patients: dir, Consultations: dir}, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func requireAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(amount(want)), "expected %d got %s", want, got)
}

func TestAddInvoiceStartsUnpaid(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(100000), Description: "Bilan"})
	require.NoError(t, err)
	require.Equal(t, "id-001", inv.ID)
	require.Equal(t, testNow, inv.DateFacture)
	require.Equal(t, StatusUnpaid, inv.Statut)
	requireAmount(t, 0, inv.MontantPaye)
	requireAmount(t, 100000, inv.SoldeRestant)
}

func TestStatusDerivation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	full, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(100000)})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: full.ID, Montant: amount(100000), ModePaiement: ModeCash})
	require.NoError(t, err)
	full, err = svc.GetInvoice(ctx, full.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, full.Statut)
	requireAmount(t, 0, full.SoldeRestant)

	partial, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(100000)})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: partial.ID, Montant: amount(40000), ModePaiement: ModeMobileMoney})
	require.NoError(t, err)
	partial, err = svc.GetInvoice(ctx, partial.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, partial.Statut)
	requireAmount(t, 40000, partial.MontantPaye)
	requireAmount(t, 60000, partial.SoldeRestant)

	untouched, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p2", MontantTotal: amount(15000)})
	require.NoError(t, err)
	untouched, err = svc.GetInvoice(ctx, untouched.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, untouched.Statut)
	requireAmount(t, 15000, untouched.SoldeRestant)
}

func TestOverpaymentKeepsBalanceAtZero(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(50000)})
	require.NoError(t, err)
	for _, v := range []int64{30000, 40000} {
		_, err := svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(v), ModePaiement: ModeCash})
		require.NoError(t, err)
	}
	inv, err = svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	requireAmount(t, 70000, inv.MontantPaye)
	requireAmount(t, 0, inv.SoldeRestant)
	require.Equal(t, StatusPaid, inv.Statut)
}

func TestDeletePaymentRecomputes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(50000)})
	require.NoError(t, err)
	first, err := svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(50000), ModePaiement: ModeCheque})
	require.NoError(t, err)

	ok, err := svc.DeletePayment(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, ok)
	inv, err = svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, inv.Statut)
	requireAmount(t, 50000, inv.SoldeRestant)

	ok, err = svc.DeletePayment(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteInvoiceCascadesPayments(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(90000)})
	require.NoError(t, err)
	other, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p2", MontantTotal: amount(10000)})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(10000), ModePaiement: ModeCash})
		require.NoError(t, err)
	}
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: other.ID, Montant: amount(5000), ModePaiement: ModeCash})
	require.NoError(t, err)

	ok, err := svc.DeleteInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, ok)

	remaining, err := svc.ListPaymentsByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Empty(t, remaining)
	all, err := svc.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, err = svc.GetInvoice(ctx, inv.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	before, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	ok, err = svc.DeleteInvoice(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	after, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateDescriptionLeavesDerivedFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(100000)})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(40000), ModePaiement: ModeCash})
	require.NoError(t, err)

	desc := "Nouvelle description"
	updated, err := svc.UpdateInvoice(ctx, inv.ID, InvoiceUpdate{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, desc, updated.Description)
	requireAmount(t, 40000, updated.MontantPaye)
	requireAmount(t, 60000, updated.SoldeRestant)
	require.Equal(t, StatusPartial, updated.Statut)
	require.Equal(t, testNow, updated.DateFacture)
}

func TestUpdateTotalRecomputesAgainstCurrentPaid(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(100000)})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(40000), ModePaiement: ModeCash})
	require.NoError(t, err)

	total := amount(40000)
	updated, err := svc.UpdateInvoice(ctx, inv.ID, InvoiceUpdate{MontantTotal: &total})
	require.NoError(t, err)
	requireAmount(t, 40000, updated.MontantPaye)
	requireAmount(t, 0, updated.SoldeRestant)
	require.Equal(t, StatusPaid, updated.Statut)

	total = amount(70000)
	updated, err = svc.UpdateInvoice(ctx, inv.ID, InvoiceUpdate{MontantTotal: &total})
	require.NoError(t, err)
	requireAmount(t, 30000, updated.SoldeRestant)
	require.Equal(t, StatusPartial, updated.Statut)

	_, err = svc.UpdateInvoice(ctx, "missing", InvoiceUpdate{MontantTotal: &total})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrphanPaymentIsAccepted(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	p, err := svc.AddPayment(ctx, PaymentInput{FactureID: "ghost", Montant: amount(1000), ModePaiement: ModeCash})
	require.NoError(t, err)
	require.Equal(t, testNow, p.DatePaiement)
	orphans, err := svc.ListPaymentsByInvoice(ctx, "ghost")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	invoices, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Empty(t, invoices)
}

func TestCreateInvoiceFromConsultation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.CreateInvoiceFromConsultation(ctx, "c1", amount(15000), "")
	require.NoError(t, err)
	require.Equal(t, "p2", inv.PatientID)
	require.Equal(t, "c1", inv.ConsultationID)
	require.Equal(t, "Consultation du 18/01/2024 - Paludisme simple", inv.Description)
	require.Equal(t, StatusUnpaid, inv.Statut)

	custom, err := svc.CreateInvoiceFromConsultation(ctx, "c1", amount(5000), "Frais de dossier")
	require.NoError(t, err)
	require.Equal(t, "Frais de dossier", custom.Description)

	_, err = svc.CreateInvoiceFromConsultation(ctx, "missing", amount(5000), "")
	require.ErrorIs(t, err, shared.ErrNotFound)
	invoices, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
}

func TestListInvoicesWithDetails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.CreateInvoiceFromConsultation(ctx, "c1", amount(15000), "")
	require.NoError(t, err)
	_, err = svc.AddInvoice(ctx, InvoiceInput{PatientID: "ghost", MontantTotal: amount(1000)})
	require.NoError(t, err)
	p1, err := svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(5000), ModePaiement: ModeCash})
	require.NoError(t, err)
	p2, err := svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(5000), ModePaiement: ModeTransfer})
	require.NoError(t, err)

	rows, err := svc.ListInvoicesWithDetails(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Akissi Kouassi", rows[0].PatientName())
	require.Equal(t, "Paludisme simple", rows[0].ConsultationDiagnostic)
	require.NotNil(t, rows[0].ConsultationDate)
	require.Equal(t, []string{p1.ID, p2.ID}, []string{rows[0].Paiements[0].ID, rows[0].Paiements[1].ID})
	require.Equal(t, UnknownPatient, rows[1].PatientNom)
	require.Empty(t, rows[1].PatientPrenom)
	require.Empty(t, rows[1].Paiements)
}

func TestSearchInvoices(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	_, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000), Description: "Radio"})
	require.NoError(t, err)
	_, err = svc.CreateInvoiceFromConsultation(ctx, "c1", amount(2000), "Soins")
	require.NoError(t, err)

	hits, err := svc.SearchInvoices(ctx, "dup")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "Dupont", hits[0].PatientNom)

	hits, err = svc.SearchInvoices(ctx, "PALU")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "c1", hits[0].ConsultationID)

	hits, err = svc.SearchInvoices(ctx, "radio")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	all, err := svc.ListInvoicesWithDetails(ctx)
	require.NoError(t, err)
	for _, q := range []string{"", "   "} {
		hits, err = svc.SearchInvoices(ctx, q)
		require.NoError(t, err)
		require.Equal(t, all, hits)
	}
}

func TestFilterByStatus(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	paid, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)
	_, err = svc.AddInvoice(ctx, InvoiceInput{PatientID: "p2", MontantTotal: amount(1000)})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: paid.ID, Montant: amount(1000), ModePaiement: ModeCash})
	require.NoError(t, err)

	rows, err := svc.FilterByStatus(ctx, StatusPaid)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, paid.ID, rows[0].ID)

	rows, err = svc.FilterByStatus(ctx, StatusPartial)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestListReturnsDefensiveCopies(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))
	_, err := svc.AddInvoice(ctx, InvoiceInput{
		PatientID:    "p1",
		Actes:        []Acte{{Nom: "Consultation", Quantite: 1, PrixUnitaire: amount(5000)}},
		MontantTotal: amount(5000),
	})
	require.NoError(t, err)

	list, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	list[0].Statut = StatusPaid
	list[0].Actes[0].Nom = "changed"

	again, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, again[0].Statut)
	require.Equal(t, "Consultation", again[0].Actes[0].Nom)
}

func TestMutationsPersistAndReload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("test")
	svc := newTestService(t, store)

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(400), ModePaiement: ModeCash})
	require.NoError(t, err)

	reloaded := newTestService(t, store, WithSeed(ExampleSeed))
	list, err := reloaded.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "seed must not run when invoices exist")
	require.Equal(t, StatusPartial, list[0].Statut)
	payments, err := reloaded.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 1)
}

func TestSeedRunsOnFirstLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("test")
	svc := newTestService(t, store, WithSeed(ExampleSeed))

	list, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, StatusPaid, list[0].Statut)
	require.Equal(t, StatusPartial, list[1].Statut)
	require.Equal(t, StatusUnpaid, list[2].Statut)
	require.ElementsMatch(t, []string{"test:invoices", "test:payments"}, store.Keys())
}

type failingStore struct {
	storage.Collection
	fail bool
}

func (f *failingStore) Save(ctx context.Context, name string, value any) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Collection.Save(ctx, name, value)
}

func TestFailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Collection: storage.NewMemory("test")}
	svc := newTestService(t, store)

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)

	store.fail = true
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(1000), ModePaiement: ModeCash})
	require.Error(t, err)

	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, got.Statut)
	payments, err := svc.ListPayments(ctx)
	require.NoError(t, err)
	require.Empty(t, payments)
}

// collectionFailStore fails saves of a single collection.
type collectionFailStore struct {
	storage.Collection
	failOn string
}

func (f *collectionFailStore) Save(ctx context.Context, name string, value any) error {
	if name == f.failOn {
		return errors.New("boom")
	}
	return f.Collection.Save(ctx, name, value)
}

func TestFailedInvoiceSaveKeepsStoredLedgerConsistent(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory("test")
	store := &collectionFailStore{Collection: mem}
	svc := newTestService(t, store)

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)

	store.failOn = invoicesCollection
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(1000), ModePaiement: ModeCash})
	require.Error(t, err)

	reloaded := newTestService(t, mem)
	payments, err := reloaded.ListPaymentsByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	got, err := reloaded.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)

	require.Empty(t, payments)
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Montant)
	}
	requireAmount(t, paid.IntPart(), got.MontantPaye)
	require.Equal(t, DeriveStatus(got.MontantTotal, paid), got.Statut)
}

func TestLoadRecomputesStaleInvoices(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory("test")
	repo := NewRepository(mem)
	require.NoError(t, repo.SaveInvoices(ctx, []Invoice{{
		ID: "f1", PatientID: "p1", DateFacture: testNow,
		MontantTotal: amount(1000), MontantPaye: decimal.Zero, SoldeRestant: amount(1000), Statut: StatusUnpaid,
	}}))
	require.NoError(t, repo.SavePayments(ctx, []Payment{{
		ID: "pay1", FactureID: "f1", DatePaiement: testNow, Montant: amount(1000), ModePaiement: ModeCash,
	}}))

	svc := newTestService(t, mem)
	got, err := svc.GetInvoice(ctx, "f1")
	require.NoError(t, err)
	requireAmount(t, 1000, got.MontantPaye)
	requireAmount(t, 0, got.SoldeRestant)
	require.Equal(t, StatusPaid, got.Statut)
}

type countingObserver struct {
	created, deleted, payments, paymentDeletes int
	total                                      float64
}

func (o *countingObserver) InvoiceCreated() { o.created++ }
func (o *countingObserver) InvoiceDeleted() { o.deleted++ }
func (o *countingObserver) PaymentRecorded(mode string, amount float64) {
	o.payments++
	o.total += amount
}
func (o *countingObserver) PaymentDeleted() { o.paymentDeletes++ }

func TestObserverNotified(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{}
	svc := newTestService(t, storage.NewMemory("test"), WithObserver(obs))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)
	p, err := svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(250), ModePaiement: ModeCash})
	require.NoError(t, err)
	_, err = svc.DeletePayment(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.DeleteInvoice(ctx, inv.ID)
	require.NoError(t, err)

	require.Equal(t, 1, obs.created)
	require.Equal(t, 1, obs.payments)
	require.Equal(t, 250.0, obs.total)
	require.Equal(t, 1, obs.paymentDeletes)
	require.Equal(t, 1, obs.deleted)
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))

	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(100000), Description: "Bilan, complet"})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(40000), ModePaiement: ModeCash})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))
	require.Contains(t, buf.String(), `"Bilan, complet"`)

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, csvHeader, records[0])
	require.Equal(t, []string{inv.ID, "Jean Dupont", "20/01/2024", "100 000 FCFA", "40 000 FCFA", "60 000 FCFA", "Partiellement payée", "Bilan, complet"}, records[1])
}

func TestDeriveStatusAndBalance(t *testing.T) {
	require.Equal(t, StatusUnpaid, DeriveStatus(amount(100), amount(0)))
	require.Equal(t, StatusPartial, DeriveStatus(amount(100), amount(1)))
	require.Equal(t, StatusPaid, DeriveStatus(amount(100), amount(100)))
	require.Equal(t, StatusPaid, DeriveStatus(amount(100), amount(150)))
	requireAmount(t, 0, Balance(amount(100), amount(150)))
	requireAmount(t, 60, Balance(amount(100), amount(40)))
}

func TestActesTotals(t *testing.T) {
	actes := []Acte{
		{Nom: "Consultation", Quantite: 1, PrixUnitaire: amount(15000)},
		{Nom: "Injection", Quantite: 3, PrixUnitaire: amount(2500)},
	}
	requireAmount(t, 7500, actes[1].Total())
	requireAmount(t, 22500, SumActes(actes))
	require.True(t, ModeMobileMoney.Valid())
	require.False(t, PaymentMode("Bitcoin").Valid())
	require.False(t, InvoiceStatus("Annulée").Valid())
}

func TestTotalsWindow(t *testing.T) {
	ctx := context.Background()
	clock := testNow
	svc := newTestService(t, storage.NewMemory("test"), WithNow(func() time.Time { return clock }))

	paid, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: paid.ID, Montant: amount(1000), ModePaiement: ModeCash})
	require.NoError(t, err)
	partial, err := svc.CreateInvoiceFromConsultation(ctx, "c1", amount(5000), "")
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, PaymentInput{FactureID: partial.ID, Montant: amount(2000), ModePaiement: ModeCash})
	require.NoError(t, err)
	clock = testNow.AddDate(0, -2, 0)
	_, err = svc.AddInvoice(ctx, InvoiceInput{PatientID: "p2", MontantTotal: amount(9000)})
	require.NoError(t, err)

	totals, err := svc.Totals(ctx, testNow.AddDate(0, 0, -1), testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	requireAmount(t, 3000, totals.Collected)
	requireAmount(t, 3000, totals.Due)
	require.Equal(t, 1, totals.Unpaid)

	byConsultation, err := svc.CollectedByConsultation(ctx)
	require.NoError(t, err)
	require.Len(t, byConsultation, 1)
	requireAmount(t, 2000, byConsultation["c1"])
}

func TestAddPaymentWithinChecksBalance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"))
	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)

	_, err = svc.AddPaymentWithin(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(600), ModePaiement: ModeCash})
	require.NoError(t, err)

	_, err = svc.AddPaymentWithin(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(500), ModePaiement: ModeCash})
	var balanceErr *BalanceError
	require.ErrorAs(t, err, &balanceErr)
	require.ErrorIs(t, err, shared.ErrValidation)
	requireAmount(t, 400, balanceErr.Remaining)

	_, err = svc.AddPaymentWithin(ctx, PaymentInput{FactureID: "ghost", Montant: amount(1), ModePaiement: ModeCash})
	require.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	requireAmount(t, 600, got.MontantPaye)
	require.Equal(t, StatusPartial, got.Statut)
}

func TestAddPaymentWithinConcurrentNeverOverpays(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"), WithIDGenerator(uuid.NewString))
	inv, err := svc.AddInvoice(ctx, InvoiceInput{PatientID: "p1", MontantTotal: amount(1000)})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPaymentWithin(ctx, PaymentInput{FactureID: inv.ID, Montant: amount(400), ModePaiement: ModeMobileMoney})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 2, accepted)
	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	requireAmount(t, 800, got.MontantPaye)
	requireAmount(t, 200, got.SoldeRestant)
}

func TestKeepStatusPreservesOrder(t *testing.T) {
	rows := []InvoiceWithDetails{
		{Invoice: Invoice{ID: "a", Statut: StatusPaid}},
		{Invoice: Invoice{ID: "b", Statut: StatusUnpaid}},
		{Invoice: Invoice{ID: "c", Statut: StatusPaid}},
	}
	kept := KeepStatus(rows, StatusPaid)
	require.Len(t, kept, 2)
	require.Equal(t, "a", kept[0].ID)
	require.Equal(t, "c", kept[1].ID)
	require.Empty(t, KeepStatus(rows, StatusPartial))
}
