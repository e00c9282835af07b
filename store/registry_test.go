package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	"github.com/trezcool/masomo-admin/search"
	"github.com/trezcool/masomo-admin/settings"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/storage/kvstore"
	testutil "github.com/trezcool/masomo-admin/tests"
)

func TestRegistry_Follow(t *testing.T) {
	ctx := context.Background()
	c, db := testutil.NewClient(t)
	noor := testutil.CreateSchool(t, db, "مدرسة النور", "NOOR")
	amal := testutil.CreateSchool(t, db, "مدرسة الأمل", "AMAL")
	testutil.CreateAcademicYear(t, db, noor, "2024-2025", true)
	testutil.CreateAcademicYear(t, db, noor, "2025-2026", false)
	testutil.CreateAcademicYear(t, db, amal, "2024-2025", true)

	r := NewRegistry(c, Deps{})
	st := settings.New(kvstore.NewMemoryStore(), logsvc.NewNopLogger())
	require.NoError(t, st.SetSchool(ctx, null.IntFrom(noor.ID)))

	stop := r.Follow(ctx, st)
	defer stop()
	assert.Len(t, r.AcademicYears.Items(), 2, "fetched at subscription")

	require.NoError(t, st.SetSchool(ctx, null.IntFrom(amal.ID)))
	years := r.AcademicYears.Items()
	require.Len(t, years, 1)
	assert.Equal(t, amal.ID, years[0].SchoolID)

	require.NoError(t, st.SetSchool(ctx, null.Int{}))
	assert.Empty(t, r.AcademicYears.Items())
}

func TestRegistry_Stores(t *testing.T) {
	ctx := context.Background()
	c, db := testutil.NewClient(t)
	sch := testutil.CreateSchool(t, db, "مدرسة النور", "NOOR")
	year := testutil.CreateAcademicYear(t, db, sch, "2024-2025", true)
	lvl := testutil.CreateGradeLevel(t, db, "الصف الأول", "G1")
	math := testutil.CreateSubject(t, db, "رياضيات", "MATH")
	teacher := testutil.CreateTeacher(t, db, "أستاذ خالد")
	ahmed := testutil.CreateStudent(t, db, "أحمد علي")
	e := testutil.CreateEnrollment(t, db, ahmed, sch, year, lvl)
	route := testutil.CreateTransportRoute(t, db, sch, "خط الرياض", 10)

	r := NewRegistry(c, Deps{})

	t.Run("teachers", func(t *testing.T) {
		require.NoError(t, r.Teachers.FetchAll(ctx, school.TeacherFilter{}))
		subjects, err := r.Teachers.SyncSubjects(ctx, teacher.ID, []int{math.ID})
		require.NoError(t, err)
		assert.Len(t, subjects, 1)
		cached, ok := r.Teachers.Find(teacher.ID)
		require.True(t, ok)
		assert.Equal(t, []school.Subject{math}, cached.Subjects)

		subjects, err = r.Teachers.FetchSubjects(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, []school.Subject{math}, subjects)
	})

	t.Run("route students", func(t *testing.T) {
		require.NoError(t, r.RouteStudents.Load(ctx, route.ID))
		require.Len(t, r.RouteStudents.State().Available, 1)

		a, err := r.RouteStudents.Assign(ctx, route.ID, school.StudentTransportInput{EnrollmentID: e.ID, PickupPoint: "السوق"})
		require.NoError(t, err)
		st := r.RouteStudents.State()
		assert.Len(t, st.Items, 1)
		assert.Empty(t, st.Available)

		require.NoError(t, r.RouteStudents.Unassign(ctx, route.ID, a.ID))
		st = r.RouteStudents.State()
		assert.Empty(t, st.Items)
		assert.Len(t, st.Available, 1)
	})

	t.Run("ledger", func(t *testing.T) {
		require.NoError(t, r.Ledgers.FetchByEnrollment(ctx, e.ID, school.LedgerFilter{}))
		fee, err := r.Ledgers.Create(ctx, school.LedgerEntryInput{
			EnrollmentID: e.ID, TransactionType: school.TransactionFee, Amount: 1000, TransactionDate: "2024-09-01",
		})
		require.NoError(t, err)
		_, err = r.Ledgers.Create(ctx, school.LedgerEntryInput{
			EnrollmentID: e.ID, TransactionType: school.TransactionPayment, Amount: 400,
			TransactionDate: "2024-09-02", PaymentMethod: school.PaymentCard,
		})
		require.NoError(t, err)
		st := r.Ledgers.State()
		require.Len(t, st.Entries, 2)
		assert.Equal(t, 600.0, st.Entries[1].BalanceAfter)

		summary, err := r.Ledgers.FetchByPaymentMethod(ctx, school.LedgerFilter{EnrollmentID: e.ID})
		require.NoError(t, err)
		assert.Equal(t, []school.PaymentMethodSummary{{PaymentMethod: school.PaymentCard, TotalAmount: 400, Count: 1}}, summary)

		require.NoError(t, r.Ledgers.DeleteWithReason(ctx, fee.ID, "خطأ في الإدخال"))
		require.NoError(t, r.Ledgers.FetchDeletions(ctx, school.LedgerFilter{}))
		st = r.Ledgers.State()
		assert.Len(t, st.Entries, 1)
		require.Len(t, st.Deletions, 1)
		assert.NotNil(t, st.DeletionsPagination)
	})

	t.Run("enrollment logs", func(t *testing.T) {
		_, err := r.Enrollments.Update(ctx, e.ID, school.EnrollmentInput{
			StudentID: ahmed.ID, SchoolID: sch.ID, AcademicYearID: year.ID, GradeLevelID: lvl.ID,
			Status: school.EnrollmentGraduated, EnrollmentType: school.EnrollmentNew, Fees: 1500,
		})
		require.NoError(t, err)

		require.NoError(t, r.EnrollmentLogs.FetchEnrollmentLogs(ctx, e.ID))
		require.NoError(t, r.EnrollmentLogs.FetchLogs(ctx, school.EnrollmentLogFilter{}))
		stats, err := r.EnrollmentLogs.FetchStatistics(ctx, school.EnrollmentLogFilter{EnrollmentID: e.ID})
		require.NoError(t, err)

		st := r.EnrollmentLogs.State()
		require.Len(t, st.EnrollmentLogs, 1)
		assert.Equal(t, school.LogStatusChanged, st.EnrollmentLogs[0].ActionType)
		assert.Len(t, st.Logs, 1)
		assert.NotNil(t, st.Pagination)
		assert.Equal(t, 1, stats.ActionTypes[school.LogStatusChanged])
		require.NotNil(t, st.Statistics)
	})

	t.Run("student search", func(t *testing.T) {
		results := make(chan search.Result[school.Student], 1)
		d := r.StudentSearch(func(res search.Result[school.Student]) { results <- res }, search.WithDelay(time.Millisecond))
		defer d.Close()

		d.Input("أحمد")
		res := <-results
		require.NoError(t, res.Err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, ahmed.ID, res.Items[0].ID)
	})

	r.Reset()
	assert.Empty(t, r.Teachers.Items())
	assert.Empty(t, r.Ledgers.State().Entries)
}

func TestRegistry_GradeLevels(t *testing.T) {
	ctx := context.Background()
	c, db := testutil.NewClient(t)
	sch := testutil.CreateSchool(t, db, "مدرسة النور", "NOOR")
	r := NewRegistry(c, Deps{})

	lvl, err := r.GradeLevels.Create(ctx, school.GradeLevelInput{Name: "الصف العاشر", Code: "G10"})
	require.NoError(t, err)
	items := r.GradeLevels.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "G10", items[0].Code)
	assert.Equal(t, lvl.ID, items[0].ID)

	testutil.CreateClassroom(t, db, lvl, sch, "10 أ")

	err = r.GradeLevels.Delete(ctx, lvl.ID)
	require.Error(t, err)
	apiErr := core.AsAPIError(err)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, core.KindConflict, apiErr.Kind)

	st := r.GradeLevels.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, lvl.ID, st.Items[0].ID)
	assert.Equal(t, "لا يمكن حذف المرحلة الدراسية لأنها مرتبطة بفصول أو مواد أو تسجيلات", st.Error)
}

func TestRegistry_AcademicYearsFilter(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got = req.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		// the backend owns filtering: whatever it returns is what the store shows
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []school.AcademicYear{
				{ID: 1, Name: "2024-2025", SchoolID: 5},
				{ID: 2, Name: "2025-2026", SchoolID: 7},
			},
			"pagination": map[string]int{"current_page": 1, "last_page": 1, "per_page": 15, "total": 2},
		})
	}))
	defer srv.Close()

	c := apiclient.New(core.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, apiclient.WithLogger(logsvc.NewNopLogger()))
	r := NewRegistry(c, Deps{})

	tests := []struct {
		name   string
		filter school.AcademicYearFilter
		want   url.Values
	}{
		{name: "school", filter: school.AcademicYearFilter{SchoolID: 5}, want: url.Values{"school_id": {"5"}}},
		{name: "school and status", filter: school.AcademicYearFilter{SchoolID: 5, Status: "active"}, want: url.Values{"school_id": {"5"}, "status": {"active"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, r.AcademicYears.FetchAll(context.Background(), tt.filter))
			for key := range tt.want {
				assert.Equal(t, tt.want.Get(key), got.Get(key), "query param %s", key)
			}
			assert.Len(t, r.AcademicYears.Items(), 2)
		})
	}
}

func TestRegistry_FollowRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	var (
		failing atomic.Bool
		calls   atomic.Int32
	)
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"boom"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []school.AcademicYear{{ID: 1, Name: "2024-2025", SchoolID: 5}},
		})
	}))
	defer srv.Close()

	c := apiclient.New(core.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, apiclient.WithLogger(logsvc.NewNopLogger()))
	r := NewRegistry(c, Deps{})
	st := settings.New(kvstore.NewMemoryStore(), logsvc.NewNopLogger())
	stop := r.Follow(ctx, st)
	defer stop()

	require.NoError(t, st.SetSchool(ctx, null.IntFrom(5)))
	assert.Empty(t, r.AcademicYears.Items())
	assert.NotEmpty(t, r.AcademicYears.State().Error)

	failing.Store(false)
	require.NoError(t, st.SetSchool(ctx, null.IntFrom(5)))
	assert.Len(t, r.AcademicYears.Items(), 1)
	assert.Equal(t, int32(2), calls.Load())

	require.NoError(t, st.SetSchool(ctx, null.IntFrom(5)))
	assert.Equal(t, int32(2), calls.Load(), "a fetched school is not fetched again")
}
