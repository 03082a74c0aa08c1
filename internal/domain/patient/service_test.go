package patient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/errs"
)

// -- Mock Repository --

type mockRepo struct {
	mu          sync.Mutex
	patients    map[uuid.UUID]*Patient
	order       []uuid.UUID
	identifiers map[string]bool

	// forceConflicts makes the next N Create calls fail with Conflict.
	forceConflicts int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients:    make(map[uuid.UUID]*Patient),
		identifiers: make(map[string]bool),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceConflicts > 0 {
		m.forceConflicts--
		return errs.Conflict("patient identifier " + p.PatientIdentifier + " already taken")
	}
	if m.identifiers[p.PatientIdentifier] {
		return errs.Conflict("patient identifier " + p.PatientIdentifier + " already taken")
	}
	cp := *p
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.patients[cp.ID] = &cp
	m.order = append(m.order, cp.ID)
	m.identifiers[cp.PatientIdentifier] = true
	p.ID = cp.ID
	p.CreatedAt = cp.CreatedAt
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, errs.NotFound("patient", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByIdentifier(_ context.Context, identifier string) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.PatientIdentifier == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errs.NotFound("patient", identifier)
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return errs.NotFound("patient", p.ID)
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Patient
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.patients[m.order[i]]
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		result = append(result, p)
	}
	total := len(result)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
}

func (m *mockRepo) LastIdentifier(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return "", nil
	}
	return m.patients[m.order[len(m.order)-1]].PatientIdentifier, nil
}

func (m *mockRepo) TouchLastVisit(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return errs.NotFound("patient", id)
	}
	p.LastVisitDate = &at
	return nil
}

func (m *mockRepo) Stats(_ context.Context, since time.Time) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &Stats{}
	for _, p := range m.patients {
		st.TotalPatients++
		switch p.Status {
		case StatusActive:
			st.ActivePatients++
		case StatusInactive:
			st.InactivePatients++
		}
		if !p.RegisteredAt.Before(since) {
			st.RecentRegistrations++
		}
		switch p.Gender {
		case "M":
			st.MalePatients++
		case "F":
			st.FemalePatients++
		case "O":
			st.OtherGenderPatients++
		}
	}
	return st, nil
}

// -- Helpers --

func newTestService(repo *mockRepo) *Service {
	alloc := NewAllocator(repo, 1)
	return NewService(repo, alloc, zerolog.Nop(), 5*time.Second)
}

func validPatient() *Patient {
	return &Patient{
		FirstName:   "Wanjiku",
		LastName:    "Kamau",
		DateOfBirth: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:      "F",
		PhoneNumber: "+254712345678",
	}
}

// -- Tests --

func TestCreate_AssignsIdentifierAndDefaults(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := validPatient()
	visitCreated, err := svc.Create(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visitCreated {
		t.Error("no visit draft was given, expected visitCreated=false")
	}

	year := time.Now().Year()
	want := fmt.Sprintf("P-%d-001", year)
	if p.PatientIdentifier != want {
		t.Errorf("expected identifier %s, got %s", want, p.PatientIdentifier)
	}
	if p.Status != StatusActive {
		t.Errorf("expected default status ACTIVE, got %s", p.Status)
	}
	if p.InsuranceProvider != "NONE" {
		t.Errorf("expected default insurance NONE, got %s", p.InsuranceProvider)
	}
	if p.RegisteredAt.IsZero() {
		t.Error("expected registered_at to be stamped")
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Patient)
		field  string
	}{
		{"missing first name", func(p *Patient) { p.FirstName = "" }, "first_name"},
		{"missing last name", func(p *Patient) { p.LastName = "" }, "last_name"},
		{"missing dob", func(p *Patient) { p.DateOfBirth = time.Time{} }, "date_of_birth"},
		{"future dob", func(p *Patient) { p.DateOfBirth = time.Now().AddDate(1, 0, 0) }, "date_of_birth"},
		{"bad gender", func(p *Patient) { p.Gender = "X" }, "gender"},
		{"phone without plus", func(p *Patient) { p.PhoneNumber = "0712345678" }, "phone_number"},
		{"phone too short", func(p *Patient) { p.PhoneNumber = "+12345678" }, "phone_number"},
		{"phone too long", func(p *Patient) { p.PhoneNumber = "+1234567890123456" }, "phone_number"},
		{"phone with letters", func(p *Patient) { p.PhoneNumber = "+2547ABC5678" }, "phone_number"},
		{"bad emergency phone", func(p *Patient) {
			bad := "0722000000"
			p.EmergencyPhone = &bad
		}, "emergency_contact_phone"},
		{"bad insurance provider", func(p *Patient) { p.InsuranceProvider = "ACME" }, "insurance_provider"},
		{"bad status", func(p *Patient) { p.Status = "SLEEPING" }, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			svc := newTestService(repo)

			p := validPatient()
			tt.mutate(p)
			_, err := svc.Create(context.Background(), p, nil)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errs.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tt.field+":") {
				t.Errorf("expected error on field %s, got %q", tt.field, err.Error())
			}
		})
	}
}

func TestCreate_SequentialIdentifiers(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	year := time.Now().Year()

	for i := 1; i <= 3; i++ {
		p := validPatient()
		if _, err := svc.Create(context.Background(), p, nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		want := fmt.Sprintf("P-%d-%03d", year, i)
		if p.PatientIdentifier != want {
			t.Errorf("create %d: expected %s, got %s", i, want, p.PatientIdentifier)
		}
	}
}

func TestCreate_RetriesOnIdentifierConflict(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	repo.forceConflicts = 2

	p := validPatient()
	if _, err := svc.Create(context.Background(), p, nil); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if p.PatientIdentifier == "" {
		t.Error("expected identifier to be assigned after retries")
	}
}

func TestCreate_ConflictExhaustion(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	repo.forceConflicts = 3

	_, err := svc.Create(context.Background(), validPatient(), nil)
	if err == nil {
		t.Fatal("expected conflict after retry exhaustion")
	}
	if !errs.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCreate_ConcurrentIdentifiersUnique(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	const n = 50
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), validPatient(), nil); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent create failed: %v", err)
	}

	if len(repo.identifiers) != n {
		t.Fatalf("expected %d unique identifiers, got %d", n, len(repo.identifiers))
	}
}

type visitCreatorFunc func(ctx context.Context, patientID uuid.UUID, visitType, reason string) error

func (f visitCreatorFunc) CheckIn(ctx context.Context, patientID uuid.UUID, visitType, reason string) error {
	return f(ctx, patientID, visitType, reason)
}

func TestCreate_WithInitialVisit(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	var gotPatientID uuid.UUID
	svc.SetVisitCreator(visitCreatorFunc(func(_ context.Context, patientID uuid.UUID, visitType, reason string) error {
		gotPatientID = patientID
		if visitType != "WALKIN" || reason != "fever" {
			t.Errorf("unexpected draft: %s %s", visitType, reason)
		}
		return nil
	}))

	p := validPatient()
	visitCreated, err := svc.Create(context.Background(), p, &VisitDraft{VisitType: "WALKIN", Reason: "fever"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !visitCreated {
		t.Error("expected visitCreated=true")
	}
	if gotPatientID != p.ID {
		t.Errorf("check-in used patient %s, want %s", gotPatientID, p.ID)
	}
}

func TestCreate_VisitFailureDoesNotUndoRegistration(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	svc.SetVisitCreator(visitCreatorFunc(func(context.Context, uuid.UUID, string, string) error {
		return fmt.Errorf("workflow store down")
	}))

	p := validPatient()
	visitCreated, err := svc.Create(context.Background(), p, &VisitDraft{VisitType: "WALKIN", Reason: "fever"})
	if err != nil {
		t.Fatalf("patient creation must survive visit failure, got %v", err)
	}
	if visitCreated {
		t.Error("expected visitCreated=false when check-in fails")
	}
	if _, err := repo.GetByID(context.Background(), p.ID); err != nil {
		t.Errorf("patient should still be persisted: %v", err)
	}
}

func TestUpdate_PreservesImmutableFields(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := validPatient()
	if _, err := svc.Create(context.Background(), p, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	update := validPatient()
	update.FirstName = "Akinyi"
	update.PatientIdentifier = "P-9999-999"
	update.RegisteredAt = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := svc.Update(context.Background(), p.ID, update)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.FirstName != "Akinyi" {
		t.Errorf("expected first name updated, got %s", got.FirstName)
	}
	if got.PatientIdentifier != p.PatientIdentifier {
		t.Errorf("identifier must be immutable: got %s, want %s", got.PatientIdentifier, p.PatientIdentifier)
	}
	if !got.RegisteredAt.Equal(p.RegisteredAt) {
		t.Errorf("registered_at must be immutable: got %v, want %v", got.RegisteredAt, p.RegisteredAt)
	}
	if got.ID != p.ID {
		t.Errorf("id must be immutable: got %s, want %s", got.ID, p.ID)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), uuid.New(), validPatient())
	if !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := validPatient()
	email := "wanjiku@example.com"
	p.Email = &email
	blood := "O+"
	p.BloodGroup = &blood
	if _, err := svc.Create(context.Background(), p, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FirstName != p.FirstName || got.LastName != p.LastName {
		t.Errorf("name mismatch: got %s %s", got.FirstName, got.LastName)
	}
	if got.Email == nil || *got.Email != email {
		t.Errorf("email mismatch: got %v", got.Email)
	}
	if got.BloodGroup == nil || *got.BloodGroup != blood {
		t.Errorf("blood group mismatch: got %v", got.BloodGroup)
	}
	if !got.DateOfBirth.Equal(p.DateOfBirth) {
		t.Errorf("dob mismatch: got %v, want %v", got.DateOfBirth, p.DateOfBirth)
	}

	byIdent, err := svc.GetByIdentifier(context.Background(), p.PatientIdentifier)
	if err != nil {
		t.Fatalf("get by identifier: %v", err)
	}
	if byIdent.ID != p.ID {
		t.Errorf("identifier lookup returned patient %s, want %s", byIdent.ID, p.ID)
	}
}

func TestList_Filters(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	for _, g := range []string{"M", "F", "F"} {
		p := validPatient()
		p.Gender = g
		if _, err := svc.Create(context.Background(), p, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	_, total, err := svc.List(context.Background(), ListFilter{Gender: "F"}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 female patients, got %d", total)
	}

	if _, _, err := svc.List(context.Background(), ListFilter{Status: "SLEEPING"}, 10, 0); !errs.IsValidation(err) {
		t.Errorf("expected validation error for bad status filter, got %v", err)
	}
}

func TestStatistics(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	cases := []struct {
		gender string
		status string
	}{
		{"M", StatusActive},
		{"F", StatusActive},
		{"F", StatusInactive},
		{"O", StatusActive},
	}
	for _, sp := range cases {
		p := validPatient()
		p.Gender = sp.gender
		p.Status = sp.status
		if _, err := svc.Create(context.Background(), p, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	st, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if st.TotalPatients != 4 {
		t.Errorf("total: got %d, want 4", st.TotalPatients)
	}
	if st.ActivePatients != 3 {
		t.Errorf("active: got %d, want 3", st.ActivePatients)
	}
	if st.InactivePatients != 1 {
		t.Errorf("inactive: got %d, want 1", st.InactivePatients)
	}
	if st.RecentRegistrations != 4 {
		t.Errorf("recent: got %d, want 4", st.RecentRegistrations)
	}
	if st.MalePatients != 1 || st.FemalePatients != 2 || st.OtherGenderPatients != 1 {
		t.Errorf("gender split: got M=%d F=%d O=%d", st.MalePatients, st.FemalePatients, st.OtherGenderPatients)
	}
}
