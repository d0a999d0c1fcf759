package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"carhub/internal/domain"
	"carhub/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, NewUserRepository(db).Init(ctx))
	require.NoError(t, NewCarRepository(db).Init(ctx))
	require.NoError(t, NewCarImageRepository(db).Init(ctx))
	return db
}

func seedUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	id, err := NewUserRepository(db).Create(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return id
}

func seedCar(t *testing.T, repo repository.CarRepository, ownerID int64, title, description string, tags []string) int64 {
	t.Helper()

	id, err := repo.Create(context.Background(), &domain.Car{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Tags:        tags,
	})
	require.NoError(t, err)
	return id
}

func TestCarRepository_ListByOwnerOrdering(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	repo := NewCarRepository(db)

	var ids []int64
	for _, title := range []string{"first", "second", "third"} {
		ids = append(ids, seedCar(t, repo, owner, title, "", nil))
	}

	cars, err := repo.ListByOwner(context.Background(), owner, "")
	require.NoError(t, err)
	require.Len(t, cars, 3)

	// newest first
	require.Equal(t, ids[2], cars[0].ID)
	require.Equal(t, ids[1], cars[1].ID)
	require.Equal(t, ids[0], cars[2].ID)
}

func TestCarRepository_Search(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	repo := NewCarRepository(db)
	ctx := context.Background()

	byTitle := seedCar(t, repo, alice, "Family Sedan", "", nil)
	byDesc := seedCar(t, repo, alice, "Corolla", "a reliable sedan", nil)
	byTag := seedCar(t, repo, alice, "Camry", "", []string{"Sedan", "Toyota"})
	seedCar(t, repo, alice, "Pickup", "big truck", []string{"Truck"})
	seedCar(t, repo, bob, "Bob's sedan", "", nil)

	cars, err := repo.ListByOwner(ctx, alice, "sedan")
	require.NoError(t, err)

	got := map[int64]bool{}
	for _, car := range cars {
		got[car.ID] = true
	}
	require.Len(t, cars, 3)
	require.True(t, got[byTitle])
	require.True(t, got[byDesc])
	require.True(t, got[byTag])

	// no match anywhere
	cars, err = repo.ListByOwner(ctx, alice, "convertible")
	require.NoError(t, err)
	require.Empty(t, cars)
}

func TestCarRepository_TagsRoundTrip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	repo := NewCarRepository(db)
	ctx := context.Background()

	id := seedCar(t, repo, owner, "Tagged", "", []string{"Sedan", "", "Dealer X"})

	car, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"Sedan", "", "Dealer X"}, car.Tags)

	plain := seedCar(t, repo, owner, "Untagged", "", nil)
	car, err = repo.Get(ctx, plain)
	require.NoError(t, err)
	require.Nil(t, car.Tags)
}

func TestCarRepository_ConditionalUpdate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	repo := NewCarRepository(db)
	ctx := context.Background()

	id := seedCar(t, repo, alice, "Original", "desc", []string{"a"})

	title := "hijacked"
	matched, err := repo.Update(ctx, id, bob, repository.CarUpdate{Title: &title})
	require.NoError(t, err)
	require.False(t, matched)

	car, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Original", car.Title)

	newDesc := "updated desc"
	matched, err = repo.Update(ctx, id, alice, repository.CarUpdate{Description: &newDesc})
	require.NoError(t, err)
	require.True(t, matched)

	car, err = repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Original", car.Title)
	require.Equal(t, "updated desc", car.Description)
	require.Equal(t, []string{"a"}, car.Tags)
}

func TestCarRepository_ConditionalDelete(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	repo := NewCarRepository(db)
	ctx := context.Background()

	id := seedCar(t, repo, alice, "Keep me", "", nil)

	matched, err := repo.Delete(ctx, id, bob)
	require.NoError(t, err)
	require.False(t, matched)

	exists, err := repo.Exists(ctx, id)
	require.NoError(t, err)
	require.True(t, exists)

	matched, err = repo.Delete(ctx, id, alice)
	require.NoError(t, err)
	require.True(t, matched)

	exists, err = repo.Exists(ctx, id)
	require.NoError(t, err)
	require.False(t, exists)

	matched, err = repo.Delete(ctx, id, alice)
	require.NoError(t, err)
	require.False(t, matched)
}

func TestCarImageRepository_ReplaceAndLookup(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	carRepo := NewCarRepository(db)
	imageRepo := NewCarImageRepository(db)
	ctx := context.Background()

	carID := seedCar(t, carRepo, owner, "Pictured", "", nil)

	images := []domain.CarImage{
		{URL: "https://cdn.test/a.jpg", PublicID: "a"},
		{URL: "https://cdn.test/b.jpg", PublicID: "b"},
	}
	require.NoError(t, imageRepo.ReplaceForCar(ctx, carID, images))

	listed, err := imageRepo.ListByCar(ctx, carID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "a", listed[0].PublicID)
	require.Equal(t, "b", listed[1].PublicID)
	require.Equal(t, 0, listed[0].Position)
	require.Equal(t, 1, listed[1].Position)

	img, err := imageRepo.GetByPublicID(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, carID, img.CarID)

	_, err = imageRepo.GetByPublicID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// replace drops rows not in the new set
	require.NoError(t, imageRepo.ReplaceForCar(ctx, carID, []domain.CarImage{
		{URL: "https://cdn.test/c.jpg", PublicID: "c"},
	}))
	listed, err = imageRepo.ListByCar(ctx, carID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "c", listed[0].PublicID)

	require.NoError(t, imageRepo.DeleteByPublicID(ctx, "c"))
	listed, err = imageRepo.ListByCar(ctx, carID)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestCarImageRepository_CascadeOnCarDelete(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	carRepo := NewCarRepository(db)
	imageRepo := NewCarImageRepository(db)
	ctx := context.Background()

	carID := seedCar(t, carRepo, owner, "Doomed", "", nil)
	require.NoError(t, imageRepo.ReplaceForCar(ctx, carID, []domain.CarImage{
		{URL: "https://cdn.test/a.jpg", PublicID: "a"},
	}))

	matched, err := carRepo.Delete(ctx, carID, owner)
	require.NoError(t, err)
	require.True(t, matched)

	listed, err := imageRepo.ListByCar(ctx, carID)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "y"})
	require.ErrorIs(t, err, domain.ErrUserExists)

	// case-sensitive uniqueness: a different casing is a different user
	_, err = repo.Create(ctx, &domain.User{Username: "Alice", PasswordHash: "z"})
	require.NoError(t, err)

	user, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	_, err = repo.GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
