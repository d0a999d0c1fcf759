package repository

import (
	"context"

	"carhub/internal/domain"
)

// CarUpdate carries the fields of a partial car update. Nil pointers mean
// "leave unchanged".
type CarUpdate struct {
	Title       *string
	Description *string
	Tags        *[]string
}

// CarRepository exposes persistence operations for Car records. Update and
// Delete are owner-conditional single statements; they report whether a row
// matched so callers can distinguish NotFound from Forbidden via Exists.
type CarRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, car *domain.Car) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID int64, search string) ([]domain.Car, error)
	Update(ctx context.Context, id, ownerID int64, fields CarUpdate) (bool, error)
	Delete(ctx context.Context, id, ownerID int64) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// CarImageRepository manages image metadata attached to cars.
type CarImageRepository interface {
	Init(ctx context.Context) error
	ReplaceForCar(ctx context.Context, carID int64, images []domain.CarImage) error
	ListByCar(ctx context.Context, carID int64) ([]domain.CarImage, error)
	GetByPublicID(ctx context.Context, publicID string) (*domain.CarImage, error)
	DeleteByPublicID(ctx context.Context, publicID string) error
}
