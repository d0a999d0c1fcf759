package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"carhub/internal/domain"
	"carhub/internal/repository"
	"carhub/internal/storage"
)

// MaxImagesPerCar bounds how many image files a single car may carry.
const MaxImagesPerCar = 10

// ErrTooManyImages is returned when a create or update exceeds MaxImagesPerCar.
var ErrTooManyImages = fmt.Errorf("%w: at most %d images per car", domain.ErrValidation, MaxImagesPerCar)

// Upload is a pending image file. Open is called at most once per upload.
type Upload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// CreateCarInput carries the fields of a new car. Tags is the raw
// comma-separated client value.
type CreateCarInput struct {
	Title       string
	Description string
	Tags        string
	Files       []Upload
}

// UpdateCarInput carries a partial update. Nil pointers leave the field
// untouched; a non-empty Files list replaces the whole image set.
type UpdateCarInput struct {
	Title       *string
	Description *string
	Tags        *string
	Files       []Upload
}

// CarService owns car CRUD, owner isolation and image orchestration.
type CarService interface {
	Create(ctx context.Context, ownerID int64, input CreateCarInput) (*domain.Car, error)
	List(ctx context.Context, ownerID int64, search string) ([]domain.Car, error)
	Get(ctx context.Context, ownerID, carID int64) (*domain.Car, error)
	Update(ctx context.Context, ownerID, carID int64, input UpdateCarInput) (*domain.Car, error)
	Delete(ctx context.Context, ownerID, carID int64) error
	DeleteImage(ctx context.Context, ownerID int64, publicID string) error
}

type carService struct {
	cars   repository.CarRepository
	images repository.CarImageRepository
	media  storage.Service
	logger *logrus.Logger
}

func NewCarService(cars repository.CarRepository, images repository.CarImageRepository, media storage.Service, logger *logrus.Logger) CarService {
	return &carService{
		cars:   cars,
		images: images,
		media:  media,
		logger: logger,
	}
}

func (s *carService) Create(ctx context.Context, ownerID int64, input CreateCarInput) (*domain.Car, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(input.Files) > MaxImagesPerCar {
		return nil, ErrTooManyImages
	}

	uploaded, err := s.uploadAll(ctx, input.Files)
	if err != nil {
		return nil, err
	}

	car := &domain.Car{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Tags:        ParseTags(input.Tags),
	}

	if _, err := s.cars.Create(ctx, car); err != nil {
		s.cleanupMedia(ctx, uploaded)
		return nil, err
	}

	if len(uploaded) > 0 {
		if err := s.images.ReplaceForCar(ctx, car.ID, uploaded); err != nil {
			s.cleanupMedia(ctx, uploaded)
			if _, delErr := s.cars.Delete(ctx, car.ID, ownerID); delErr != nil {
				s.logger.Warnf("remove car %d after image persist failure: %v", car.ID, delErr)
			}
			return nil, err
		}
	}

	car.Images = uploaded
	return car, nil
}

func (s *carService) List(ctx context.Context, ownerID int64, search string) ([]domain.Car, error) {
	cars, err := s.cars.ListByOwner(ctx, ownerID, search)
	if err != nil {
		return nil, err
	}

	for i := range cars {
		images, err := s.images.ListByCar(ctx, cars[i].ID)
		if err != nil {
			return nil, err
		}
		cars[i].Images = images
	}
	return cars, nil
}

func (s *carService) Get(ctx context.Context, ownerID, carID int64) (*domain.Car, error) {
	car, err := s.cars.Get(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}

	images, err := s.images.ListByCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	car.Images = images
	return car, nil
}

func (s *carService) Update(ctx context.Context, ownerID, carID int64, input UpdateCarInput) (*domain.Car, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
	}
	if len(input.Files) > MaxImagesPerCar {
		return nil, ErrTooManyImages
	}

	fields := repository.CarUpdate{
		Title:       input.Title,
		Description: input.Description,
	}
	if input.Tags != nil {
		tags := ParseTags(*input.Tags)
		fields.Tags = &tags
	}

	// the conditional write doubles as the ownership check
	matched, err := s.cars.Update(ctx, carID, ownerID, fields)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, s.missingOrForbidden(ctx, carID)
	}

	if len(input.Files) > 0 {
		old, err := s.images.ListByCar(ctx, carID)
		if err != nil {
			return nil, err
		}

		uploaded, err := s.uploadAll(ctx, input.Files)
		if err != nil {
			return nil, err
		}
		if err := s.images.ReplaceForCar(ctx, carID, uploaded); err != nil {
			s.cleanupMedia(ctx, uploaded)
			return nil, err
		}
		s.cleanupMedia(ctx, old)
	}

	return s.Get(ctx, ownerID, carID)
}

func (s *carService) Delete(ctx context.Context, ownerID, carID int64) error {
	// snapshot image handles before the cascade removes the rows
	images, err := s.images.ListByCar(ctx, carID)
	if err != nil {
		return err
	}

	matched, err := s.cars.Delete(ctx, carID, ownerID)
	if err != nil {
		return err
	}
	if !matched {
		return s.missingOrForbidden(ctx, carID)
	}

	s.cleanupMedia(ctx, images)
	return nil
}

func (s *carService) DeleteImage(ctx context.Context, ownerID int64, publicID string) error {
	img, err := s.images.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}

	car, err := s.cars.Get(ctx, img.CarID)
	if err != nil {
		return err
	}
	if car.OwnerID != ownerID {
		return domain.ErrForbidden
	}

	if err := s.media.Delete(ctx, publicID); err != nil {
		return fmt.Errorf("delete media %s: %w", publicID, err)
	}
	return s.images.DeleteByPublicID(ctx, publicID)
}

// uploadAll pushes every file through the media adapter. On failure the
// objects stored so far are deleted best-effort before the error returns.
func (s *carService) uploadAll(ctx context.Context, files []Upload) ([]domain.CarImage, error) {
	var uploaded []domain.CarImage
	for _, file := range files {
		r, err := file.Open()
		if err != nil {
			s.cleanupMedia(ctx, uploaded)
			return nil, fmt.Errorf("open upload %s: %w", file.Filename, err)
		}

		obj, err := s.media.Upload(ctx, r, storage.UploadOptions{
			Filename:    file.Filename,
			ContentType: file.ContentType,
		})
		closeErr := r.Close()
		if err != nil {
			s.cleanupMedia(ctx, uploaded)
			return nil, err
		}
		if closeErr != nil {
			s.logger.Warnf("close upload %s: %v", file.Filename, closeErr)
		}

		uploaded = append(uploaded, domain.CarImage{
			URL:      obj.URL,
			PublicID: obj.PublicID,
		})
	}
	return uploaded, nil
}

func (s *carService) cleanupMedia(ctx context.Context, images []domain.CarImage) {
	for _, img := range images {
		if err := s.media.Delete(ctx, img.PublicID); err != nil {
			s.logger.Warnf("delete media object %s: %v", img.PublicID, err)
		}
	}
}

func (s *carService) missingOrForbidden(ctx context.Context, carID int64) error {
	exists, err := s.cars.Exists(ctx, carID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrForbidden
}

// ParseTags splits the raw comma-separated client value and trims each
// segment. Interior empty segments survive ("a,,b" keeps three entries);
// an entirely blank value means no tags.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
