package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/lab-api/internal/email"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository/memory"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/catalog"
	"github.com/jwalitptl/lab-api/internal/service/doctor"
	"github.com/jwalitptl/lab-api/internal/service/patient"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendInvoice(ctx context.Context, inv email.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

type fixture struct {
	stores   *memory.Stores
	svc      *Service
	mailer   *mockMailer
	patients *patient.Service
	tests    *catalog.TestService
	doctors  *doctor.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := memory.NewStores()
	v := validator.New()
	auditor := audit.NewService(stores.Audit)

	f := &fixture{
		stores:   stores,
		mailer:   &mockMailer{},
		patients: patient.NewService(stores.Patients, v, auditor),
		tests:    catalog.NewTestService(stores.Tests, v, auditor),
		doctors:  doctor.NewService(stores.Doctors, v, auditor),
	}
	f.svc = NewService(Deps{
		Bills:    stores.Bills,
		Tests:    f.tests,
		Patients: f.patients,
		Doctors:  f.doctors,
		Labs:     stores.Labs,
		Mailer:   f.mailer,
		Auditor:  auditor,
	}, v)
	return f
}

func (f *fixture) patient(t *testing.T, labID int64, mail string) *model.Patient {
	t.Helper()
	p, err := f.patients.CreateFrom(context.Background(), labID, &model.CreatePatientRequest{
		Name: "Asha", Age: 30, Gender: model.GenderFemale, Email: mail,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) test(t *testing.T, labID int64, name string, price float64) *model.Test {
	t.Helper()
	tt, err := f.tests.CreateFrom(context.Background(), labID, &model.CreateTestRequest{Name: name, Price: price})
	require.NoError(t, err)
	return tt
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		discount float64
		tax      float64
		want     Totals
	}{
		{"discount then tax", []float64{400, 600}, 10, 5, Totals{Subtotal: 1000, DiscountAmount: 100, TaxAmount: 45, Total: 945}},
		{"no adjustments", []float64{99.99}, 0, 0, Totals{Subtotal: 99.99, Total: 99.99}},
		{"full discount", []float64{250, 250}, 100, 18, Totals{Subtotal: 500, DiscountAmount: 500, Total: 0}},
		{"rounding", []float64{33.33}, 0, 18, Totals{Subtotal: 33.33, TaxAmount: 6, Total: 39.33}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTotals(tt.prices, tt.discount, tt.tax))
		})
	}
}

func TestService_CreateOrdersOneTestPerID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.patient(t, 1, "")
	a := f.test(t, 1, "CBC", 400)
	b := f.test(t, 1, "Lipid Profile", 600)

	detail, err := f.svc.Create(ctx, 1, &model.CreateBillRequest{
		PatientID: p.ID, TestIDs: []int64{a.ID, b.ID}, DiscountPercent: 10, TaxPercent: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 945.0, detail.Total)
	assert.Equal(t, 1000.0, detail.Subtotal)
	assert.Regexp(t, `^INV-\d{8}-[0-9A-F]{8}$`, detail.InvoiceNumber)
	require.Len(t, detail.Tests, 2)

	stored, err := f.svc.Get(ctx, 1, detail.ID)
	require.NoError(t, err)
	require.Len(t, stored.Tests, 2)
	for _, pt := range stored.Tests {
		assert.Equal(t, model.PatientTestPending, pt.Status)
		require.NotNil(t, pt.BillID)
		assert.Equal(t, detail.ID, *pt.BillID)
		assert.Equal(t, p.ID, pt.PatientID)
	}

	// No patient email, no mail.
	f.mailer.AssertNotCalled(t, "SendInvoice", mock.Anything, mock.Anything)
}

func TestService_CreateRejectsForeignReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.patient(t, 1, "")
	own := f.test(t, 1, "CBC", 400)
	foreign := f.test(t, 2, "ESR", 150)
	otherPatient := f.patient(t, 2, "")
	doc, err := f.doctors.CreateFrom(ctx, 2, &model.CreateDoctorRequest{Name: "Dr. B", RegistrationNumber: "R-2"})
	require.NoError(t, err)

	cases := map[string]*model.CreateBillRequest{
		"foreign test":    {PatientID: p.ID, TestIDs: []int64{own.ID, foreign.ID}},
		"foreign patient": {PatientID: otherPatient.ID, TestIDs: []int64{own.ID}},
		"foreign doctor":  {PatientID: p.ID, DoctorID: &doc.ID, TestIDs: []int64{own.ID}},
		"missing test":    {PatientID: p.ID, TestIDs: []int64{own.ID + 100}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, 1, req)
			assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "got %v", err)
		})
	}

	assert.Empty(t, f.stores.Bills.All())
	assert.Empty(t, f.stores.PatientTests.All())
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, 1, "")
	a := f.test(t, 1, "CBC", 400)

	tooMany := make([]int64, 51)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}

	cases := map[string]*model.CreateBillRequest{
		"no tests":        {PatientID: p.ID},
		"duplicate tests": {PatientID: p.ID, TestIDs: []int64{a.ID, a.ID}},
		"too many tests":  {PatientID: p.ID, TestIDs: tooMany},
		"discount > 100":  {PatientID: p.ID, TestIDs: []int64{a.ID}, DiscountPercent: 101},
		"negative tax":    {PatientID: p.ID, TestIDs: []int64{a.ID}, TaxPercent: -1},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), 1, req)
			assert.True(t, apperrors.Is(err, apperrors.ErrValidation), "got %v", err)
		})
	}
}

func TestService_CreateIsAtomic(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, 1, "")
	a := f.test(t, 1, "CBC", 400)
	b := f.test(t, 1, "ESR", 150)
	c := f.test(t, 1, "TSH", 500)

	f.stores.Bills.FailAfter = 2

	_, err := f.svc.Create(context.Background(), 1, &model.CreateBillRequest{
		PatientID: p.ID, TestIDs: []int64{a.ID, b.ID, c.ID},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
	assert.Empty(t, f.stores.Bills.All())
	assert.Empty(t, f.stores.PatientTests.All())
}

func TestService_InvoiceMailFailureKeepsBill(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, 1, "asha@mail.test")
	a := f.test(t, 1, "CBC", 400)

	f.mailer.On("SendInvoice", mock.Anything, mock.MatchedBy(func(inv email.Invoice) bool {
		return inv.To == "asha@mail.test" && len(inv.Lines) == 1 && inv.Total == 400
	})).Return(errors.New("smtp down")).Once()

	detail, err := f.svc.Create(context.Background(), 1, &model.CreateBillRequest{PatientID: p.ID, TestIDs: []int64{a.ID}})
	require.NoError(t, err)
	assert.NotZero(t, detail.ID)
	f.mailer.AssertExpectations(t)
}

func TestService_MarkPaidOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.patient(t, 1, "")
	a := f.test(t, 1, "CBC", 400)

	detail, err := f.svc.Create(ctx, 1, &model.CreateBillRequest{PatientID: p.ID, TestIDs: []int64{a.ID}})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, 2, detail.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	paid, err := f.svc.MarkPaid(ctx, 1, detail.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidAt)

	_, err = f.svc.MarkPaid(ctx, 1, detail.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestService_ListByPatientAndSoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.patient(t, 1, "")
	p2 := f.patient(t, 1, "")
	a := f.test(t, 1, "CBC", 400)

	first, err := f.svc.Create(ctx, 1, &model.CreateBillRequest{PatientID: p1.ID, TestIDs: []int64{a.ID}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, 1, &model.CreateBillRequest{PatientID: p2.ID, TestIDs: []int64{a.ID}})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, 1, model.ListQuery{}.Filter("patient_id", p1.ID))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	require.NoError(t, f.svc.Delete(ctx, 1, first.ID))
	page, err = f.svc.List(ctx, 1, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = f.svc.Restore(ctx, 1, first.ID)
	require.NoError(t, err)
	page, err = f.svc.List(ctx, 1, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
