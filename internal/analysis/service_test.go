package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/medcabinet/cabinet/internal/directory"
	"github.com/medcabinet/cabinet/internal/rbac"
	"github.com/medcabinet/cabinet/internal/shared"
	"github.com/medcabinet/cabinet/internal/storage"
)

var testNow = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestDeps() Dependencies {
	dir := directory.NewMemory()
	dir.AddPatient(directory.Patient{ID: "p1", Nom: "Dupont", Prenom: "Jean"})
	dir.AddUser(directory.User{ID: "u1", Nom: "Traoré", Prenom: "Ibrahim", Role: "medecin"})
	dir.AddConsultation(directory.Consultation{ID: "c1", PatientID: "p1", ProfessionnelID: "u1", DateConsultation: testNow, Diagnostic: "Anémie"})
	clinic := directory.StaticClinic{Nom: "Cabinet Médical Espoir", Adresse: "Rue 12, Abidjan", Telephone: "+225 27 00 00 00", Email: "contact@espoir.ci"}
	return Dependencies{Patients: dir, Users: dir, Consultations: dir, Clinic: clinic}
}

func newTestService(t *testing.T, store storage.Collection, clock *testClock, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithNow(clock.Now), WithIDGenerator(sequentialIDs())}
	svc, err := NewService(context.Background(), NewRepository(store), newTestDeps(), append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func sampleResults() []AnalysisResult {
	return []AnalysisResult{
		{Parametre: "Hémoglobine", Valeur: "10.8", Unite: "g/dL", ValeurNormale: "12 - 16", Statut: ResultAbnormal},
		{Parametre: "Test VIH", Valeur: "Négatif", Statut: ResultNormal},
	}
}

func TestAddAssignsIDsAndDate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"), &testClock{now: testNow})

	a, err := svc.Add(ctx, AnalysisInput{PatientID: "p1", ProfessionnelID: "u1", TypeAnalyse: "Hématologie", Resultats: sampleResults()})
	require.NoError(t, err)
	require.Equal(t, "id-001", a.ID)
	require.Equal(t, testNow, a.DateAnalyse)
	require.Len(t, a.Resultats, 2)
	require.Equal(t, "id-002", a.Resultats[0].ID)
	require.Equal(t, "id-003", a.Resultats[1].ID)
}

func TestCreateFromConsultationCopiesParticipants(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"), &testClock{now: testNow})

	a, err := svc.CreateFromConsultation(ctx, "c1", AnalysisInput{PatientID: "ignored", TypeAnalyse: "Biochimie"})
	require.NoError(t, err)
	require.Equal(t, "p1", a.PatientID)
	require.Equal(t, "u1", a.ProfessionnelID)
	require.Equal(t, "c1", a.ConsultationID)

	_, err = svc.CreateFromConsultation(ctx, "missing", AnalysisInput{TypeAnalyse: "Biochimie"})
	require.ErrorIs(t, err, shared.ErrNotFound)
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUpdateKeepsDate(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: testNow}
	svc := newTestService(t, storage.NewMemory("test"), clock)

	a, err := svc.Add(ctx, AnalysisInput{PatientID: "p1", ProfessionnelID: "u1", TypeAnalyse: "Hématologie"})
	require.NoError(t, err)
	clock.now = testNow.Add(48 * time.Hour)

	conclusion := "RAS"
	results := []AnalysisResult{{Parametre: "Glycémie", Valeur: "0.9", Statut: ResultNormal}}
	updated, err := svc.Update(ctx, a.ID, AnalysisUpdate{Conclusion: &conclusion, Resultats: &results})
	require.NoError(t, err)
	require.Equal(t, "RAS", updated.Conclusion)
	require.Equal(t, "Hématologie", updated.TypeAnalyse)
	require.Equal(t, testNow, updated.DateAnalyse)
	require.NotEmpty(t, updated.Resultats[0].ID)

	_, err = svc.Update(ctx, "missing", AnalysisUpdate{Conclusion: &conclusion})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"), &testClock{now: testNow})

	a, err := svc.Add(ctx, AnalysisInput{PatientID: "p1", ProfessionnelID: "u1", TypeAnalyse: "Hématologie"})
	require.NoError(t, err)
	ok, err := svc.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = svc.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = svc.Get(ctx, a.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListByPatientSortsDescendingStable(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: testNow}
	svc := newTestService(t, storage.NewMemory("test"), clock)

	add := func(kind, patient string) Analysis {
		a, err := svc.Add(ctx, AnalysisInput{PatientID: patient, ProfessionnelID: "u1", TypeAnalyse: kind})
		require.NoError(t, err)
		return a
	}
	older := add("older", "p1")
	clock.now = testNow.Add(24 * time.Hour)
	sameA := add("same-a", "p1")
	_ = add("other-patient", "p2")
	sameB := add("same-b", "p1")

	rows, err := svc.ListByPatient(ctx, "p1")
	require.NoError(t, err)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	require.Equal(t, []string{sameA.ID, sameB.ID, older.ID}, ids)
}

func TestListWithDetailsPlaceholders(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"), &testClock{now: testNow})

	_, err := svc.CreateFromConsultation(ctx, "c1", AnalysisInput{TypeAnalyse: "Hématologie"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, AnalysisInput{PatientID: "ghost", ProfessionnelID: "nobody", TypeAnalyse: "Biochimie"})
	require.NoError(t, err)

	rows, err := svc.ListWithDetails(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Jean Dupont", rows[0].PatientName())
	require.Equal(t, "Ibrahim Traoré", rows[0].ProfessionalName())
	require.Equal(t, "medecin", rows[0].ProfessionnelRole)
	require.Equal(t, "Anémie", rows[0].ConsultationDiagnostic)
	require.Equal(t, UnknownPatient, rows[1].PatientName())
	require.Empty(t, rows[1].ProfessionalName())
	require.Empty(t, rows[1].ProfessionnelRole)
}

func TestRenderPrintable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"), &testClock{now: testNow})

	a, err := svc.CreateFromConsultation(ctx, "c1", AnalysisInput{TypeAnalyse: "Hématologie", Conclusion: "Anémie modérée", Resultats: sampleResults()})
	require.NoError(t, err)

	text, ok, err := svc.RenderPrintable(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	for _, want := range []string{
		"Cabinet Médical Espoir\n",
		"Rue 12, Abidjan\n",
		"Tél : +225 27 00 00 00 | Email : contact@espoir.ci\n",
		"BULLETIN D'ANALYSE\n",
		"Date : 20/01/2024\n",
		"Patient : Jean Dupont\n",
		"Prescripteur : Ibrahim Traoré (medecin)\n",
		"Type d'analyse : Hématologie\n",
		"- Hémoglobine : 10.8 g/dL (normale : 12 - 16) [ANORMAL]\n",
		"- Test VIH : Négatif [NORMAL]\n",
		"CONCLUSION\nAnémie modérée\n",
	} {
		require.Contains(t, text, want)
	}

	text, ok, err = svc.RenderPrintable(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, text)
}

func TestSeedAndReload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("test")
	svc := newTestService(t, store, &testClock{now: testNow}, WithSeed(ExampleSeed))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = svc.Delete(ctx, list[0].ID)
	require.NoError(t, err)

	reloaded := newTestService(t, store, &testClock{now: testNow}, WithSeed(ExampleSeed))
	list, err = reloaded.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "ana-002", list[0].ID)
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory("test"), &testClock{now: testNow})
	_, err := svc.Add(ctx, AnalysisInput{PatientID: "p1", ProfessionnelID: "u1", TypeAnalyse: "X", Resultats: sampleResults()})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	list[0].Resultats[0].Valeur = "tampered"

	again, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "10.8", again[0].Resultats[0].Valeur)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := newTestService(t, storage.NewMemory("test"), &testClock{now: testNow})
	r := chi.NewRouter()
	r.Route("/api", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)
	return r
}

func do(h http.Handler, role, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set(rbac.RoleHeader, role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerLifecycle(t *testing.T) {
	h := newTestRouter(t)

	rec := do(h, "medecin", http.MethodPost, "/api/analyses/from-consultation", `{"consultation_id":"c1","type_analyse":"Hématologie","resultats":[{"parametre":"Hémoglobine","valeur":"10.8","unite":"g/dL","statut":"critique"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"id":"id-001"`)

	rec = do(h, "medecin", http.MethodGet, "/api/analyses?patient_id=p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"patient_nom":"Dupont"`)

	rec = do(h, "medecin", http.MethodPatch, "/api/analyses/id-001", `{"conclusion":"Transfusion"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"conclusion":"Transfusion"`)

	rec = do(h, "medecin", http.MethodGet, "/api/analyses/id-001/print", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="analyse_id-001.txt"`, rec.Header().Get("Content-Disposition"))
	require.Contains(t, rec.Body.String(), "[CRITIQUE]")

	rec = do(h, "medecin", http.MethodGet, "/api/analyses/missing/print", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, "admin", http.MethodDelete, "/api/analyses/id-001", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(h, "admin", http.MethodGet, "/api/analyses/id-001", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerValidation(t *testing.T) {
	h := newTestRouter(t)
	for _, body := range []string{
		`{"patient_id":"p1","professionnel_id":"u1"}`,
		`{"patient_id":"p1","professionnel_id":"u1","type_analyse":"X","resultats":[{"parametre":"A","valeur":"1","statut":"grave"}]}`,
		`not json`,
	} {
		rec := do(h, "medecin", http.MethodPost, "/api/analyses", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	rec := do(h, "medecin", http.MethodPost, "/api/analyses/from-consultation", `{"consultation_id":"missing","type_analyse":"X"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerForbidsSecretary(t *testing.T) {
	h := newTestRouter(t)
	rec := do(h, "secretaire", http.MethodGet, "/api/analyses", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

type offlinePatients struct{}

var errDirectoryOffline = errors.New("directory offline")

func (offlinePatients) PatientByID(context.Context, string) (directory.Patient, error) {
	return directory.Patient{}, errDirectoryOffline
}

func (offlinePatients) Patients(context.Context) ([]directory.Patient, error) {
	return nil, errDirectoryOffline
}

func TestListWithDetailsPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	deps := newTestDeps()
	deps.Patients = offlinePatients{}
	svc, err := NewService(ctx, NewRepository(storage.NewMemory("test")), deps, WithNow((&testClock{now: testNow}).Now))
	require.NoError(t, err)
	_, err = svc.Add(ctx, AnalysisInput{PatientID: "p1", ProfessionnelID: "u1", TypeAnalyse: "Biochimie"})
	require.NoError(t, err)

	rows, err := svc.ListWithDetails(ctx)
	require.ErrorIs(t, err, errDirectoryOffline)
	require.Nil(t, rows)

	_, err = svc.ListByPatient(ctx, "p1")
	require.ErrorIs(t, err, errDirectoryOffline)
}
