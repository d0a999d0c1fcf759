package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carhub/internal/domain"
	"carhub/internal/repository"
)

const createCarsTable = `
CREATE TABLE IF NOT EXISTS cars (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type CarRepository struct {
	db *sql.DB
}

func NewCarRepository(db *sql.DB) repository.CarRepository {
	return &CarRepository{db: db}
}

func (r *CarRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCarsTable); err != nil {
		return fmt.Errorf("create cars table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cars_owner ON cars(owner_id)`); err != nil {
		return fmt.Errorf("create cars owner index: %w", err)
	}
	return nil
}

func (r *CarRepository) Create(ctx context.Context, car *domain.Car) (int64, error) {
	now := time.Now().UTC()
	car.CreatedAt = now
	car.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO cars (owner_id, title, description, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		car.OwnerID,
		car.Title,
		car.Description,
		joinTags(car.Tags),
		car.CreatedAt,
		car.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert car: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("car last insert id: %w", err)
	}
	car.ID = id
	return id, nil
}

func (r *CarRepository) Get(ctx context.Context, id int64) (*domain.Car, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, title, description, tags, created_at, updated_at
FROM cars
WHERE id = ?`,
		id,
	)
	return scanCar(row)
}

func (r *CarRepository) ListByOwner(ctx context.Context, ownerID int64, search string) ([]domain.Car, error) {
	query := `
SELECT id, owner_id, title, description, tags, created_at, updated_at
FROM cars
WHERE owner_id = ?`
	args := []any{ownerID}

	if strings.TrimSpace(search) != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query += ` AND (lower(title) LIKE ? OR lower(description) LIKE ? OR lower(tags) LIKE ?)`
		args = append(args, pattern, pattern, pattern)
	}

	// id breaks ties for cars created within the same timestamp tick
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var cars []domain.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, *car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars: %w", err)
	}
	return cars, nil
}

func (r *CarRepository) Update(ctx context.Context, id, ownerID int64, fields repository.CarUpdate) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if fields.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *fields.Title)
	}
	if fields.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *fields.Description)
	}
	if fields.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, joinTags(*fields.Tags))
	}

	args = append(args, id, ownerID)
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE cars SET %s WHERE id = ? AND owner_id = ?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("update car: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update car rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *CarRepository) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete car: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete car rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *CarRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM cars WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("car exists: %w", err)
	}
	return true, nil
}

func scanCar(row interface {
	Scan(dest ...any) error
}) (*domain.Car, error) {
	var (
		car  domain.Car
		tags string
	)
	if err := row.Scan(
		&car.ID,
		&car.OwnerID,
		&car.Title,
		&car.Description,
		&tags,
		&car.CreatedAt,
		&car.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan car: %w", err)
	}
	car.Tags = splitTags(tags)
	return &car, nil
}

// Tags are stored as a comma-joined column. Tag values come from splitting
// client input on commas, so they can never contain one themselves.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(stored string) []string {
	if stored == "" {
		return nil
	}
	return strings.Split(stored, ",")
}
