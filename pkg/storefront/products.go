package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
	"git.sr.ht/~jakintosh/storefront/pkg/client"
)

const DefaultTopSelling = 3

// Products reads the catalog. Writes need an admin session.
type Products struct {
	shop *Shop
}

// Image is a product picture to upload alongside a product write.
type Image struct {
	Filename string
	Data     []byte
}

// ProductDraft is a product write. On update, empty strings and a zero
// price leave the stored value alone.
type ProductDraft struct {
	Name        string
	Brand       string
	Gender      string
	Category    string
	Price       api.Price
	Description string
	Image       *Image
}

// List returns the whole catalog, or one category of it.
func (p *Products) List(ctx context.Context, category string) ([]api.Product, error) {
	products := []api.Product{}
	category = strings.TrimSpace(category)
	if category == "" {
		err := p.shop.get(ctx, api.RouteProducts, &products)
		return products, err
	}

	err := p.shop.get(ctx, api.RouteCategory, &products,
		client.WithQuery(url.Values{"category": {category}}))
	return products, err
}

func (p *Products) Get(ctx context.Context, id int64) (*api.Product, error) {
	product := new(api.Product)
	if err := p.shop.get(ctx, api.ProductPath(id), product); err != nil {
		return nil, err
	}
	return product, nil
}

func (p *Products) Create(ctx context.Context, draft ProductDraft) (*api.Product, error) {
	product := new(api.Product)
	err := p.shop.call(ctx, http.MethodPost, api.RouteProducts, draft.body(true), product)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Update changes the fields set in draft and keeps the rest.
func (p *Products) Update(ctx context.Context, id int64, draft ProductDraft) (*api.Product, error) {
	product := new(api.Product)
	err := p.shop.call(ctx, http.MethodPatch, api.ProductPath(id), draft.body(false), product)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (p *Products) Delete(ctx context.Context, id int64) error {
	return p.shop.call(ctx, http.MethodDelete, api.ProductPath(id), nil, nil)
}

// body encodes the draft as multipart when it carries an image and as JSON
// otherwise. With all set, empty fields are sent too.
func (d ProductDraft) body(all bool) any {
	fields := map[string]string{}
	put := func(key, value string) {
		if all || value != "" {
			fields[key] = value
		}
	}
	put("name", d.Name)
	put("brand", d.Brand)
	put("gender", d.Gender)
	put("category", d.Category)
	put("description", d.Description)
	if all || d.Price != 0 {
		fields["price"] = d.Price.String()
	}

	if d.Image == nil {
		return fields
	}
	form := client.NewForm()
	for _, key := range []string{"name", "brand", "gender", "category", "price", "description"} {
		if value, ok := fields[key]; ok {
			form.Set(key, value)
		}
	}
	return form.AddFile("image", d.Image.Filename, d.Image.Data)
}

// TopSelling returns the best selling products. Before anything has sold it
// falls back to the first products of the catalog.
func (p *Products) TopSelling(ctx context.Context, limit int) ([]api.Product, error) {
	if limit < 1 {
		limit = DefaultTopSelling
	}
	products := []api.Product{}
	err := p.shop.get(ctx, api.RouteTopSelling, &products,
		client.WithQuery(url.Values{"limit": {strconv.Itoa(limit)}}))
	if err != nil {
		return nil, err
	}
	if len(products) > 0 {
		return products, nil
	}

	all, err := p.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return all[:min(limit, len(all))], nil
}
