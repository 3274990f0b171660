package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

// ProductInput is the writable part of a product, plus an optional image
// upload.
type ProductInput struct {
	Name        string
	Brand       string
	Gender      string
	Category    string
	Price       api.Price
	Description string
	Image       *ImageUpload
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s *Service) ListProducts(
	category string,
) (
	[]api.Product,
	error,
) {
	products, err := s.products.ListProducts(strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return products, nil
}

func (s *Service) GetProduct(
	id int64,
) (
	*api.Product,
	error,
) {
	p, err := s.products.GetProduct(id)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (s *Service) CreateProduct(
	actor *api.User,
	in ProductInput,
) (
	*api.Product,
	error,
) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	p := &api.Product{
		Name:        in.Name,
		Brand:       in.Brand,
		Gender:      in.Gender,
		Category:    in.Category,
		Price:       in.Price,
		Description: in.Description,
	}
	if in.Image != nil {
		name, err := s.storeImage(in.Image)
		if err != nil {
			return nil, err
		}
		p.Image = name
	}

	created, err := s.products.InsertProduct(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return created, nil
}

// UpdateProduct replaces a product's fields. The image is kept unless a new
// one is uploaded.
func (s *Service) UpdateProduct(
	actor *api.User,
	id int64,
	in ProductInput,
) (
	*api.Product,
	error,
) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	p, err := s.products.GetProduct(id)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("product %d", id))
	}
	p.Name = in.Name
	p.Brand = in.Brand
	p.Gender = in.Gender
	p.Category = in.Category
	p.Price = in.Price
	p.Description = in.Description
	if in.Image != nil {
		name, err := s.storeImage(in.Image)
		if err != nil {
			return nil, err
		}
		p.Image = name
	}

	if err := s.products.UpdateProduct(p); err != nil {
		return nil, storeErr(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (s *Service) DeleteProduct(
	actor *api.User,
	id int64,
) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	deleted, err := s.products.DeleteProduct(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return nil
}

// Image returns an uploaded product image by the name it is served under.
func (s *Service) Image(
	name string,
) (
	string,
	[]byte,
	error,
) {
	contentType, data, err := s.products.GetImage(name)
	if err != nil {
		return "", nil, storeErr(err, "image "+name)
	}
	return contentType, data, nil
}

// storeImage saves an upload under a fresh name that keeps the original
// extension.
func (s *Service) storeImage(img *ImageUpload) (string, error) {
	if len(img.Data) == 0 {
		return "", fieldError("image", "The submitted file is empty.")
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(img.Filename))
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.products.InsertImage(name, contentType, img.Data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return name, nil
}

func validateProduct(in ProductInput) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		v.add("name", "This field may not be blank.")
	}
	if in.Price < 0 {
		v.add("price", "Ensure this value is greater than or equal to 0.")
	}
	return v.orNil()
}

// LoadCatalog reads product seed files from dir. Each regular file holds a
// JSON array of products.
func LoadCatalog(
	dir string,
) (
	[]api.Product,
	error,
) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory '%s': %w", dir, err)
	}

	var products []api.Product
	for _, file := range files {
		if !file.Type().IsRegular() {
			continue
		}
		loaded, err := loadCatalogFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		products = append(products, loaded...)
	}

	slog.Info("loaded catalog", "products", len(products), "dir", dir)
	return products, nil
}

func loadCatalogFile(
	path string,
) (
	[]api.Product,
	error,
) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog file: %w", err)
	}

	var products []api.Product
	if err := json.Unmarshal(file, &products); err != nil {
		return nil, fmt.Errorf("failed to parse json of '%s': %w", path, err)
	}
	return products, nil
}

// SeedProducts inserts products directly, bypassing authorization.
func (s *Service) SeedProducts(
	products []api.Product,
) error {
	for i := range products {
		if _, err := s.products.InsertProduct(&products[i]); err != nil {
			return fmt.Errorf("%w: seed product %q: %v", ErrInternal, products[i].Name, err)
		}
	}
	return nil
}
