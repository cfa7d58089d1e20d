package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"storefront/internal/adapter/http/dto"
	"storefront/internal/adapter/http/middleware"
	"storefront/internal/core/domain"
	"storefront/internal/core/ports"
	"storefront/pkg/apperror"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	formFieldProduct = "product"
	formFieldImages  = "images"

	// multipartMemory is how much of a listing upload is buffered in memory
	// before spilling to temp files.
	multipartMemory = 8 << 20
)

// ProductHandler handles seller listing endpoints.
type ProductHandler struct {
	listingSvc ports.ListingService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(listingSvc ports.ListingService) *ProductHandler {
	return &ProductHandler{listingSvc: listingSvc}
}

// CreateListing handles POST /api/v1/products. The body is multipart: a
// "product" JSON field and one to five "images" files.
func (h *ProductHandler) CreateListing(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.Validation("request body too large"))
			return
		}
		response.Error(c, apperror.Validation("expected multipart/form-data body"))
		return
	}
	form := c.Request.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	fields := form.Value[formFieldProduct]
	if len(fields) != 1 {
		response.Error(c, apperror.Validation("exactly one product field is required"))
		return
	}
	var meta dto.ProductMetadata
	if err := dto.DecodeStrict([]byte(fields[0]), &meta); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&meta)

	media, err := readMedia(form.File[formFieldImages])
	if err != nil {
		response.Error(c, err)
		return
	}

	product, err := h.listingSvc.CreateListing(c.Request.Context(), ports.CreateListingRequest{
		UserID: userID,
		Product: ports.ListingDraft{
			Name:        meta.Name,
			Description: meta.Description,
			Category:    meta.Category,
			Brand:       meta.Brand,
			Tags:        meta.Tags,
			Price:       decimal.RequireFromString(meta.Price),
			Stock:       meta.Stock,
		},
		Media: media,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, product.ID.String())
	response.Created(c, gin.H{"product": product})
}

// readMedia loads uploaded files. Count and type checks belong to the
// listing service; this only bounds how many files are read.
func readMedia(headers []*multipart.FileHeader) ([]domain.MediaFile, error) {
	if len(headers) > domain.MaxMediaFiles {
		return nil, apperror.ErrInvalidMedia(fmt.Sprintf("at most %d images are allowed", domain.MaxMediaFiles))
	}

	files := make([]domain.MediaFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			return nil, apperror.ErrInvalidMedia(fmt.Sprintf("cannot read %s", fh.Filename))
		}
		files = append(files, domain.MediaFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
