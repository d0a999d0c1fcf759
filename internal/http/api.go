package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"carhub/internal/auth"
	"carhub/internal/domain"
	"carhub/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users       service.UserService
	cars        service.CarService
	tokenSecret []byte
	tokenTTL    time.Duration
	uploadsDir  string
	logger      *logrus.Logger
}

func NewHandler(users service.UserService, cars service.CarService, tokenSecret string, tokenTTL time.Duration, uploadsDir string, logger *logrus.Logger) *Handler {
	return &Handler{
		users:       users,
		cars:        cars,
		tokenSecret: []byte(tokenSecret),
		tokenTTL:    tokenTTL,
		uploadsDir:  uploadsDir,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	if h.uploadsDir != "" {
		router.Static("/uploads", h.uploadsDir)
	}

	api := router.Group("/api")
	{
		api.POST("/users/signup", h.signup)
		api.POST("/users/login", h.login)

		cars := api.Group("/cars", authRequired(h.tokenSecret))
		{
			cars.POST("", h.createCar)
			cars.GET("", h.listCars)
			cars.DELETE("/image/:public_id", h.deleteImage)
			cars.GET("/:id", h.getCar)
			cars.PUT("/:id", h.updateCar)
			cars.DELETE("/:id", h.deleteCar)
		}

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, h.tokenSecret, h.tokenTTL)
	if err != nil {
		h.logger.Errorf("sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user), "token": token})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, h.tokenSecret, h.tokenTTL)
	if err != nil {
		h.logger.Errorf("sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user), "token": token})
}

func (h *Handler) createCar(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid multipart form"})
		return
	}

	files := form.File["images"]
	if len(files) > service.MaxImagesPerCar {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Too many images"})
		return
	}

	input := service.CreateCarInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Tags:        c.PostForm("tags"),
		Files:       fileUploads(files),
	}

	car, err := h.cars.Create(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, carToResponse(*car))
}

func (h *Handler) listCars(c *gin.Context) {
	cars, err := h.cars.List(c.Request.Context(), currentUserID(c), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]CarResponse, len(cars))
	for i := range cars {
		resp[i] = carToResponse(cars[i])
	}
	c.JSON(http.StatusOK, gin.H{"cars": resp})
}

func (h *Handler) getCar(c *gin.Context) {
	id, ok := carID(c)
	if !ok {
		return
	}

	car, err := h.cars.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := carToResponse(*car)
	c.JSON(http.StatusOK, gin.H{"car": resp, "images": resp.Images})
}

func (h *Handler) updateCar(c *gin.Context) {
	id, ok := carID(c)
	if !ok {
		return
	}

	var input service.UpdateCarInput
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Tags        *string `json:"tags"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
			return
		}
		input.Title = req.Title
		input.Description = req.Description
		input.Tags = req.Tags
	} else {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid multipart form"})
			return
		}

		files := form.File["images"]
		if len(files) > service.MaxImagesPerCar {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Too many images"})
			return
		}

		input.Title = formValue(form, "title")
		input.Description = formValue(form, "description")
		input.Tags = formValue(form, "tags")
		input.Files = fileUploads(files)
	}

	car, err := h.cars.Update(c.Request.Context(), currentUserID(c), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"car": carToResponse(*car)})
}

func (h *Handler) deleteCar(c *gin.Context) {
	id, ok := carID(c)
	if !ok {
		return
	}

	if err := h.cars.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Car removed"})
}

func (h *Handler) deleteImage(c *gin.Context) {
	publicID := c.Param("public_id")

	if err := h.cars.DeleteImage(c.Request.Context(), currentUserID(c), publicID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Image removed"})
}

// carID parses the :id route param. A malformed id reads as a car that
// cannot exist, so it reports 404 like an unknown one.
func carID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"msg": "Car not found"})
		return 0, false
	}
	return id, true
}

func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func fileUploads(files []*multipart.FileHeader) []service.Upload {
	uploads := make([]service.Upload, len(files))
	for i, fh := range files {
		fh := fh
		uploads[i] = service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		}
	}
	return uploads
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	case errors.Is(err, domain.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "User already exists"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid Credentials"})
	case errors.Is(err, domain.ErrForbidden):
		// the observed API reuses 401 for wrong-owner access
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "User not authorized"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "Car not found"})
	default:
		h.logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
	}
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type CarResponse struct {
	ID          int64           `json:"id"`
	User        int64           `json:"user"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Images      []ImageResponse `json:"images"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type ImageResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func carToResponse(car domain.Car) CarResponse {
	resp := CarResponse{
		ID:          car.ID,
		User:        car.OwnerID,
		Title:       car.Title,
		Description: car.Description,
		Tags:        car.Tags,
		Images:      make([]ImageResponse, len(car.Images)),
		CreatedAt:   car.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   car.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	for i := range car.Images {
		resp.Images[i] = ImageResponse{
			URL:      car.Images[i].URL,
			PublicID: car.Images[i].PublicID,
		}
	}
	return resp
}
