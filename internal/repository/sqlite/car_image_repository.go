package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carhub/internal/domain"
	"carhub/internal/repository"
)

const createCarImagesTable = `
CREATE TABLE IF NOT EXISTS car_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	car_id INTEGER NOT NULL REFERENCES cars(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	public_id TEXT NOT NULL UNIQUE,
	position INTEGER NOT NULL DEFAULT 0
);
`

type CarImageRepository struct {
	db *sql.DB
}

func NewCarImageRepository(db *sql.DB) repository.CarImageRepository {
	return &CarImageRepository{db: db}
}

func (r *CarImageRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCarImagesTable); err != nil {
		return fmt.Errorf("create car_images table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_car_images_car ON car_images(car_id)`); err != nil {
		return fmt.Errorf("create car_images car index: %w", err)
	}
	return nil
}

func (r *CarImageRepository) ReplaceForCar(ctx context.Context, carID int64, images []domain.CarImage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace images: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM car_images WHERE car_id = ?`, carID); err != nil {
		return fmt.Errorf("clear car images: %w", err)
	}

	for i := range images {
		images[i].CarID = carID
		images[i].Position = i
		res, err := tx.ExecContext(ctx, `
INSERT INTO car_images (car_id, url, public_id, position)
VALUES (?, ?, ?, ?)`,
			carID,
			images[i].URL,
			images[i].PublicID,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert car image: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("car image last insert id: %w", err)
		}
		images[i].ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace images: %w", err)
	}
	return nil
}

func (r *CarImageRepository) ListByCar(ctx context.Context, carID int64) ([]domain.CarImage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, car_id, url, public_id, position
FROM car_images
WHERE car_id = ?
ORDER BY position ASC`,
		carID,
	)
	if err != nil {
		return nil, fmt.Errorf("list car images: %w", err)
	}
	defer rows.Close()

	var images []domain.CarImage
	for rows.Next() {
		var img domain.CarImage
		if err := rows.Scan(&img.ID, &img.CarID, &img.URL, &img.PublicID, &img.Position); err != nil {
			return nil, fmt.Errorf("scan car image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate car images: %w", err)
	}
	return images, nil
}

func (r *CarImageRepository) GetByPublicID(ctx context.Context, publicID string) (*domain.CarImage, error) {
	var img domain.CarImage
	err := r.db.QueryRowContext(ctx, `
SELECT id, car_id, url, public_id, position
FROM car_images
WHERE public_id = ?`,
		publicID,
	).Scan(&img.ID, &img.CarID, &img.URL, &img.PublicID, &img.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get car image: %w", err)
	}
	return &img, nil
}

func (r *CarImageRepository) DeleteByPublicID(ctx context.Context, publicID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM car_images WHERE public_id = ?`, publicID); err != nil {
		return fmt.Errorf("delete car image: %w", err)
	}
	return nil
}
