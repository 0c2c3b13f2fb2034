package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/ratelimit"
)

const (
	// PlatformShopify is the platform name of the Shopify storefront adapter
	PlatformShopify = "shopify"

	shopifyPageSize = 250
	shopifyMaxPages = 20
)

type shopifyProductsResponse struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	BodyHTML    string           `json:"body_html"`
	ProductType string           `json:"product_type"`
	Tags        []string         `json:"tags"`
	Variants    []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	Title     string `json:"title"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
	Grams     int    `json:"grams"`
}

type shopifyAdapter struct {
	http    adapter.HTTPClient
	limiter ratelimit.Limiter
}

// NewShopifyAdapter creates an adapter for the public Shopify products.json feed
func NewShopifyAdapter(httpClient adapter.HTTPClient, limiter ratelimit.Limiter) Adapter {
	return &shopifyAdapter{http: httpClient, limiter: limiter}
}

// Fetch pages through products.json until an empty page
func (a *shopifyAdapter) Fetch(ctx context.Context, shop Shop) ([]RawCandidate, error) {
	base, err := url.Parse(strings.TrimRight(shop.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url for %s: %w", shop.Name, err)
	}

	var candidates []RawCandidate
	for page := 1; page <= shopifyMaxPages; page++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx, base.Host); err != nil {
				return nil, err
			}
		}

		pageURL := fmt.Sprintf("%s/products.json?limit=%d&page=%d", base.String(), shopifyPageSize, page)
		var resp shopifyProductsResponse
		if err := a.http.Get(ctx, pageURL, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch %s page %d: %w", shop.Name, page, err)
		}

		if len(resp.Products) == 0 {
			break
		}

		for _, p := range resp.Products {
			c, ok := toCandidate(shop, base, p)
			if !ok {
				logger.DebugCtx(ctx, "Skipping product without a usable variant",
					zap.String("shop", shop.Name),
					zap.String("product", p.Title))
				continue
			}
			candidates = append(candidates, c)
		}

		if len(resp.Products) < shopifyPageSize {
			break
		}
	}

	return candidates, nil
}

func toCandidate(shop Shop, base *url.URL, p shopifyProduct) (RawCandidate, bool) {
	if len(p.Variants) == 0 {
		return RawCandidate{}, false
	}

	// Prefer the first purchasable variant for price and size
	variant := p.Variants[0]
	inStock := false
	for _, v := range p.Variants {
		if v.Available {
			variant = v
			inStock = true
			break
		}
	}

	price, err := decimal.NewFromString(variant.Price)
	if err != nil {
		return RawCandidate{}, false
	}

	weight := variant.Title
	if _, ok := domain.ParseWeightGrams(weight); !ok && variant.Grams > 0 {
		weight = fmt.Sprintf("%dg", variant.Grams)
	}

	currency := shop.Currency
	if currency == "" {
		currency = "USD"
	}

	return RawCandidate{
		Shop:        shop.Name,
		Name:        strings.TrimSpace(p.Title),
		Price:       price,
		Currency:    currency,
		InStock:     inStock,
		Description: StripHTML(p.BodyHTML),
		URL:         base.JoinPath("products", p.Handle).String(),
		WeightLabel: weight,
		ProductType: p.ProductType,
		Tags:        p.Tags,
	}, true
}
