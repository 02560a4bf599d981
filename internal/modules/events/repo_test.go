package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/Muhsin-Gun/event-API/internal/modules/events"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&events.Event{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func seedEvent(t *testing.T, repo *events.Repo, title string, price int, date time.Time) events.Event {
	t.Helper()
	now := time.Now()
	e := events.Event{
		ID:        uuid.NewString(),
		Title:     title,
		Date:      date,
		Location:  "Nairobi",
		Price:     price,
		CreatedBy: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), &e))
	return e
}

func TestEventPricing(t *testing.T) {
	repo := events.NewRepo(setupTestDB(t))
	ctx := context.Background()

	e := seedEvent(t, repo, "Jazz Night", 500, time.Now().Add(48*time.Hour))

	price, title, err := repo.EventPricing(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, 500, price)
	require.Equal(t, "Jazz Night", title)

	free := seedEvent(t, repo, "Open Mic", 0, time.Now().Add(72*time.Hour))
	price, _, err = repo.EventPricing(ctx, free.ID)
	require.NoError(t, err)
	require.Zero(t, price)

	_, _, err = repo.EventPricing(ctx, uuid.NewString())
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	repo := events.NewRepo(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC)
	seedEvent(t, repo, "Jazz Night", 500, base)
	seedEvent(t, repo, "Rock Festival", 1500, base.AddDate(0, 0, 10))
	seedEvent(t, repo, "Jazz Brunch", 800, base.AddDate(0, 1, 0))

	res, err := repo.List(ctx, events.ListParams{Search: "Jazz"})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)

	minPrice := 600
	res, err = repo.List(ctx, events.ListParams{MinPrice: &minPrice})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)

	// "To" covers the whole named day.
	to := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	res, err = repo.List(ctx, events.ListParams{To: &to})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, "Jazz Night", res.Items[0].Title)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := events.NewRepo(setupTestDB(t))
	ctx := context.Background()

	e := seedEvent(t, repo, "Jazz Night", 500, time.Now().Add(48*time.Hour))

	updated, err := repo.Update(ctx, e.ID, events.UpdateParams{
		Title:    "Jazz Night Vol. 2",
		Date:     e.Date,
		Location: "Mombasa",
		Price:    750,
	})
	require.NoError(t, err)
	require.Equal(t, "Jazz Night Vol. 2", updated.Title)
	require.Equal(t, 750, updated.Price)
	require.Equal(t, "Mombasa", updated.Location)

	require.NoError(t, repo.Delete(ctx, e.ID))
	require.ErrorIs(t, repo.Delete(ctx, e.ID), events.ErrNotFound)
	_, err = repo.GetByID(ctx, e.ID)
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestSetPoster(t *testing.T) {
	repo := events.NewRepo(setupTestDB(t))
	ctx := context.Background()

	e := seedEvent(t, repo, "Jazz Night", 500, time.Now().Add(48*time.Hour))
	require.NoError(t, repo.SetPoster(ctx, e.ID, "posters/abc.png", "http://localhost:4000/uploads/posters/abc.png"))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PosterKey)
	require.Equal(t, "posters/abc.png", *got.PosterKey)
}
