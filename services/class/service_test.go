package class

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studiobook/pkg/db/pagination"
	"studiobook/pkg/errutil"
	"studiobook/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubAuthz struct {
	grants map[string]bool
}

func (a *stubAuthz) HasVenueAccess(_ context.Context, cooperatorID, venueID string) (bool, error) {
	return a.grants[cooperatorID+"/"+venueID], nil
}

func newClassFixture(t *testing.T, grants ...string) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Class{})

	m := make(map[string]bool, len(grants))
	for _, g := range grants {
		m[g] = true
	}

	svc := NewService(ServiceParams{
		DB:    db,
		Authz: &stubAuthz{grants: m},
	})
	return svc, db
}

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %T: %v", err, err)
	require.Equal(t, code, be.Code)
}

var baseTime = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func seedClass(t *testing.T, db *gorm.DB, id string, mut func(*Class)) *Class {
	t.Helper()
	cls := &Class{
		ID:             id,
		VenueID:        "venue-1",
		Name:           "Class " + id,
		StartTime:      baseTime,
		EndTime:        baseTime.Add(time.Hour),
		SpotsTotal:     10,
		SpotsAvailable: 10,
		IsActive:       true,
	}
	if mut != nil {
		mut(cls)
	}
	require.NoError(t, db.Create(cls).Error)
	return cls
}

func TestListByVenueDeniedLooksLikeMissing(t *testing.T) {
	svc, db := newClassFixture(t)
	seedClass(t, db, "class-1", nil)

	_, err := svc.ListByVenue(context.Background(), "coop-1", "venue-1", ListInput{})
	requireCode(t, err, errutil.StatusNotFound)
}

func TestListByVenueOrdersByStartTime(t *testing.T) {
	svc, db := newClassFixture(t, "coop-1/venue-1")
	seedClass(t, db, "class-late", func(c *Class) { c.StartTime = baseTime.Add(4 * time.Hour) })
	seedClass(t, db, "class-early", func(c *Class) { c.StartTime = baseTime.Add(time.Hour) })
	seedClass(t, db, "class-mid", func(c *Class) { c.StartTime = baseTime.Add(2 * time.Hour) })

	out, err := svc.ListByVenue(context.Background(), "coop-1", "venue-1", ListInput{})
	require.NoError(t, err)
	require.Len(t, out.Data, 3)
	require.EqualValues(t, 3, out.Total)
	require.Equal(t, "class-early", out.Data[0].ID)
	require.Equal(t, "class-mid", out.Data[1].ID)
	require.Equal(t, "class-late", out.Data[2].ID)
}

func TestListByVenueExcludesCancelledAndInactive(t *testing.T) {
	svc, db := newClassFixture(t, "coop-1/venue-1")
	seedClass(t, db, "class-ok", nil)
	seedClass(t, db, "class-cancelled", func(c *Class) { c.IsCancelled = true })
	seedClass(t, db, "class-inactive", func(c *Class) { c.IsActive = false })

	out, err := svc.ListByVenue(context.Background(), "coop-1", "venue-1", ListInput{})
	require.NoError(t, err)
	require.Len(t, out.Data, 1)
	require.Equal(t, "class-ok", out.Data[0].ID)
}

func TestListByVenueFilters(t *testing.T) {
	svc, db := newClassFixture(t, "coop-1/venue-1")
	seedClass(t, db, "class-beginner", func(c *Class) { c.DifficultyLevel = "beginner" })
	seedClass(t, db, "class-advanced", func(c *Class) { c.DifficultyLevel = "advanced" })
	seedClass(t, db, "class-full", func(c *Class) {
		c.DifficultyLevel = "beginner"
		c.SpotsAvailable = 0
	})
	seedClass(t, db, "class-next-week", func(c *Class) {
		c.DifficultyLevel = "beginner"
		c.StartTime = baseTime.Add(7 * 24 * time.Hour)
	})
	seedClass(t, db, "class-other-venue", func(c *Class) { c.VenueID = "venue-2" })

	out, err := svc.ListByVenue(context.Background(), "coop-1", "venue-1", ListInput{
		DifficultyLevel: "beginner",
		OnlyAvailable:   true,
	})
	require.NoError(t, err)
	require.Len(t, out.Data, 2)

	end := baseTime.Add(24 * time.Hour)
	out, err = svc.ListByVenue(context.Background(), "coop-1", "venue-1", ListInput{
		DifficultyLevel: "beginner",
		OnlyAvailable:   true,
		EndDate:         &end,
	})
	require.NoError(t, err)
	require.Len(t, out.Data, 1)
	require.Equal(t, "class-beginner", out.Data[0].ID)
}

func TestListByVenuePagination(t *testing.T) {
	svc, db := newClassFixture(t, "coop-1/venue-1")
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		seedClass(t, db, "class-"+id, func(c *Class) {
			c.StartTime = baseTime.Add(time.Duration(i) * time.Hour)
		})
	}

	out, err := svc.ListByVenue(context.Background(), "coop-1", "venue-1", ListInput{
		Pagination: pagination.Pagination{Page: 2, Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, out.Data, 2)
	require.EqualValues(t, 5, out.Total)
	require.Equal(t, "class-c", out.Data[0].ID)
	require.Equal(t, 2, out.Page)
}

func TestGetClassSuccess(t *testing.T) {
	svc, db := newClassFixture(t, "coop-1/venue-1")
	seedClass(t, db, "class-1", nil)

	cls, err := svc.GetClass(context.Background(), "coop-1", "class-1")
	require.NoError(t, err)
	require.Equal(t, "class-1", cls.ID)
}

func TestGetClassDeniedLooksLikeMissing(t *testing.T) {
	svc, db := newClassFixture(t)
	seedClass(t, db, "class-1", nil)

	_, err := svc.GetClass(context.Background(), "coop-1", "class-1")
	requireCode(t, err, errutil.StatusNotFound)
}

func TestGetClassUnknown(t *testing.T) {
	svc, _ := newClassFixture(t, "coop-1/venue-1")

	_, err := svc.GetClass(context.Background(), "coop-1", "class-ghost")
	requireCode(t, err, errutil.StatusNotFound)
}

func TestGetClassCancelled(t *testing.T) {
	svc, db := newClassFixture(t, "coop-1/venue-1")
	seedClass(t, db, "class-1", func(c *Class) { c.IsCancelled = true })

	_, err := svc.GetClass(context.Background(), "coop-1", "class-1")
	requireCode(t, err, errutil.StatusNotFound)
}

func TestFilterHashIsStable(t *testing.T) {
	start := baseTime
	a := ListInput{StartDate: &start, DifficultyLevel: "beginner"}
	b := ListInput{StartDate: &start, DifficultyLevel: "beginner"}
	c := ListInput{DifficultyLevel: "advanced"}

	require.Equal(t, filterHash(a), filterHash(b))
	require.NotEqual(t, filterHash(a), filterHash(c))
}
