package lifecycle

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

func mustDate(t *testing.T, s string) day.Date {
	t.Helper()
	d, err := day.Parse(s)
	require.NoError(t, err)
	return d
}

func TestCanTransition(t *testing.T) {
	all := []models.Status{
		models.StatusPending, models.StatusApproved, models.StatusRejected,
		models.StatusCompleted, models.StatusDeleted,
	}
	allowed := map[[2]models.Status]bool{
		{models.StatusPending, models.StatusApproved}:   true,
		{models.StatusPending, models.StatusRejected}:   true,
		{models.StatusApproved, models.StatusCompleted}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]models.Status{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
			if want {
				assert.NoError(t, CheckTransition(from, to))
			} else {
				assert.ErrorIs(t, CheckTransition(from, to), apperr.ErrInvalidTransition)
			}
		}
	}
}

func TestTransitionSequence(t *testing.T) {
	st := models.StatusPending
	require.NoError(t, CheckTransition(st, models.StatusApproved))
	st = models.StatusApproved
	require.NoError(t, CheckTransition(st, models.StatusCompleted))
	st = models.StatusCompleted
	assert.ErrorIs(t, CheckTransition(st, models.StatusPending), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, CheckTransition(st, models.StatusApproved), apperr.ErrInvalidTransition)
}

func TestCheckMutable(t *testing.T) {
	owner := models.Caller{UserID: 1, Role: models.RoleUser, Status: models.UserActive}
	stranger := models.Caller{UserID: 2, Role: models.RoleUser, Status: models.UserActive}
	admin := models.Caller{UserID: 3, Role: models.RoleAdmin, Status: models.UserActive}

	tests := []struct {
		name    string
		caller  models.Caller
		status  models.Status
		wantErr error
	}{
		{name: "owner pending", caller: owner, status: models.StatusPending},
		{name: "owner approved", caller: owner, status: models.StatusApproved, wantErr: apperr.ErrImmutableState},
		{name: "owner completed", caller: owner, status: models.StatusCompleted, wantErr: apperr.ErrImmutableState},
		{name: "stranger pending", caller: stranger, status: models.StatusPending, wantErr: apperr.ErrForbidden},
		{name: "stranger approved", caller: stranger, status: models.StatusApproved, wantErr: apperr.ErrForbidden},
		{name: "admin approved", caller: admin, status: models.StatusApproved},
		{name: "admin completed", caller: admin, status: models.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMutable(tt.caller, 1, tt.status)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		in      json.Number
		upper   int
		want    int
		wantErr bool
	}{
		{name: "lower bound", in: "1", upper: MaxHarvestQuantity, want: 1},
		{name: "upper bound", in: "9999", upper: MaxHarvestQuantity, want: 9999},
		{name: "rental upper bound", in: "100", upper: MaxRentalQuantity, want: 100},
		{name: "rental above bound", in: "101", upper: MaxRentalQuantity, wantErr: true},
		{name: "zero", in: "0", upper: MaxHarvestQuantity, wantErr: true},
		{name: "negative", in: "-5", upper: MaxHarvestQuantity, wantErr: true},
		{name: "fractional", in: "2.5", upper: MaxHarvestQuantity, wantErr: true},
		{name: "too large", in: "10000", upper: MaxHarvestQuantity, wantErr: true},
		{name: "empty", in: "", upper: MaxHarvestQuantity, wantErr: true},
		{name: "not a number", in: "abc", upper: MaxHarvestQuantity, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuantity(tt.in, tt.upper)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckRentalDates(t *testing.T) {
	today := mustDate(t, "2025-06-01")

	tests := []struct {
		name    string
		pickup  string
		ret     string
		wantErr string
	}{
		{name: "valid", pickup: "2025-06-10", ret: "2025-06-12"},
		{name: "return equals pickup", pickup: "2025-06-10", ret: "2025-06-10", wantErr: "return date must be after pickup date"},
		{name: "return before pickup", pickup: "2025-06-10", ret: "2025-06-09", wantErr: "return date must be after pickup date"},
		{name: "pickup today", pickup: "2025-06-01", ret: "2025-06-03", wantErr: "pickup date must be a future date"},
		{name: "pickup in past", pickup: "2025-05-20", ret: "2025-06-03", wantErr: "pickup date must be a future date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRentalDates(mustDate(t, tt.pickup), mustDate(t, tt.ret), today)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestCheckDeliveryDate(t *testing.T) {
	today := mustDate(t, "2025-06-01")

	assert.NoError(t, CheckDeliveryDate(today, today))
	assert.NoError(t, CheckDeliveryDate(mustDate(t, "2025-06-02"), today))
	assert.Error(t, CheckDeliveryDate(mustDate(t, "2025-05-31"), today))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("delivery_date", "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", d.String())

	_, err = ParseDate("delivery_date", "")
	require.Error(t, err)
	assert.Equal(t, "delivery_date is required", err.Error())

	_, err = ParseDate("delivery_date", "10/06/2025")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFilterFromQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, f models.ListFilter)
		wantErr bool
	}{
		{
			name:  "defaults",
			query: "",
			check: func(t *testing.T, f models.ListFilter) {
				assert.Equal(t, DefaultLimit, f.Limit)
				assert.Zero(t, f.Offset)
				assert.Nil(t, f.UserID)
				assert.Nil(t, f.Status)
			},
		},
		{
			name:  "all filters",
			query: "user_id=7&start_date=2025-06-01&end_date=2025-06-30&status=APPROVED&limit=10&offset=20",
			check: func(t *testing.T, f models.ListFilter) {
				require.NotNil(t, f.UserID)
				assert.Equal(t, int64(7), *f.UserID)
				assert.Equal(t, "2025-06-01", f.From.String())
				assert.Equal(t, "2025-06-30", f.To.String())
				assert.Equal(t, models.StatusApproved, *f.Status)
				assert.Equal(t, 10, f.Limit)
				assert.Equal(t, 20, f.Offset)
			},
		},
		{name: "limit zero", query: "limit=0", wantErr: true},
		{name: "limit above max", query: "limit=1001", wantErr: true},
		{name: "limit max", query: "limit=1000", check: func(t *testing.T, f models.ListFilter) { assert.Equal(t, 1000, f.Limit) }},
		{name: "negative offset", query: "offset=-1", wantErr: true},
		{name: "bad status", query: "status=unknown", wantErr: true},
		{name: "bad date", query: "start_date=2025/06/01", wantErr: true},
		{name: "bad user id", query: "user_id=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			f, err := FilterFromQuery(q)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}

func TestScopeFilter(t *testing.T) {
	other := int64(99)
	user := models.Caller{UserID: 5, Role: models.RoleUser}
	admin := models.Caller{UserID: 1, Role: models.RoleAdmin}

	f, err := ScopeFilter(user, models.ListFilter{UserID: &other, Limit: 10})
	require.NoError(t, err)
	require.NotNil(t, f.UserID)
	assert.Equal(t, int64(5), *f.UserID, "обычный пользователь видит только свои заявки")

	f, err = ScopeFilter(admin, models.ListFilter{UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, int64(99), *f.UserID)
	assert.Equal(t, DefaultLimit, f.Limit)

	f, err = ScopeFilter(admin, models.ListFilter{})
	require.NoError(t, err)
	assert.Nil(t, f.UserID)

	from, to := mustDate(t, "2025-06-10"), mustDate(t, "2025-06-01")
	_, err = ScopeFilter(admin, models.ListFilter{From: &from, To: &to})
	assert.Error(t, err)

	_, err = ScopeFilter(admin, models.ListFilter{Limit: 5000})
	assert.Error(t, err)
}
