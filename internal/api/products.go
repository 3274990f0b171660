package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

const maxUploadBytes = 10 << 20

func (a *API) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := a.service.ListProducts(r.URL.Query().Get("category"))
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, products)
	}
}

// ListCategory requires the category query parameter.
func (a *API) ListCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == "" {
			returnJson(w, http.StatusBadRequest, map[string][]string{
				"category": {"This query parameter is required."},
			})
			return
		}
		products, err := a.service.ListProducts(category)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, products)
	}
}

func (a *API) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		product, err := a.service.GetProduct(id)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, product)
	}
}

func (a *API) CreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeProduct(r, service.ProductInput{})
		if err != nil {
			returnError(w, r, err)
			return
		}
		product, err := a.service.CreateProduct(currentUser(r), in)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusCreated, product)
	}
}

// UpdateProduct overlays the fields present in the request onto the stored
// product.
func (a *API) UpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		user := currentUser(r)
		if !user.IsAdmin() {
			returnError(w, r, service.ErrForbidden)
			return
		}

		existing, err := a.service.GetProduct(id)
		if err != nil {
			returnError(w, r, err)
			return
		}
		in, err := decodeProduct(r, service.ProductInput{
			Name:        existing.Name,
			Brand:       existing.Brand,
			Gender:      existing.Gender,
			Category:    existing.Category,
			Price:       existing.Price,
			Description: existing.Description,
		})
		if err != nil {
			returnError(w, r, err)
			return
		}

		product, err := a.service.UpdateProduct(user, id, in)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, product)
	}
}

func (a *API) DeleteProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := a.service.DeleteProduct(currentUser(r), id); err != nil {
			returnError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) GetImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentType, data, err := a.service.Image(mux.Vars(r)["name"])
		if err != nil {
			returnError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// productFields is the JSON form of a product write. Absent fields keep
// their current value.
type productFields struct {
	Name        *string    `json:"name"`
	Brand       *string    `json:"brand"`
	Gender      *string    `json:"gender"`
	Category    *string    `json:"category"`
	Price       *api.Price `json:"price"`
	Description *string    `json:"description"`
}

// decodeProduct reads a product write from a JSON or multipart body and
// overlays it onto base.
func decodeProduct(r *http.Request, base service.ProductInput) (service.ProductInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return decodeProductForm(r, base)
	}

	fields := productFields{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		if errors.Is(err, api.ErrInvalidPrice) {
			return base, fieldErr("price", "A valid number is required.")
		}
		return base, fieldErr("non_field_errors", fmt.Sprintf("JSON parse error - %v", err))
	}
	setString(&base.Name, fields.Name)
	setString(&base.Brand, fields.Brand)
	setString(&base.Gender, fields.Gender)
	setString(&base.Category, fields.Category)
	setString(&base.Description, fields.Description)
	if fields.Price != nil {
		base.Price = *fields.Price
	}
	return base, nil
}

func decodeProductForm(r *http.Request, base service.ProductInput) (service.ProductInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return base, fieldErr("non_field_errors", fmt.Sprintf("Multipart form parse error - %v", err))
	}
	values := r.MultipartForm.Value

	formString := func(dst *string, key string) {
		if v, ok := values[key]; ok && len(v) > 0 {
			*dst = v[0]
		}
	}
	formString(&base.Name, "name")
	formString(&base.Brand, "brand")
	formString(&base.Gender, "gender")
	formString(&base.Category, "category")
	formString(&base.Description, "description")

	if v, ok := values["price"]; ok && len(v) > 0 {
		price, err := api.ParsePrice(v[0])
		if err != nil {
			return base, fieldErr("price", "A valid number is required.")
		}
		base.Price = price
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return base, fieldErr("image", "The submitted data was not a file.")
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return base, fieldErr("image", "The submitted file could not be read.")
		}
		base.Image = &service.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return base, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func fieldErr(field string, msg string) error {
	return &service.ValidationError{Fields: map[string][]string{field: {msg}}}
}
