// internal/service/catalog/infrastructure/upstream_http_adapter.go
package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"dealwire/internal/pkg/httpclient"
	"dealwire/internal/service/catalog/domain"
)

// UpstreamHTTPAdapter 访问上游商品数据 API。
// 非 2xx 由 httpclient 翻译成 *StatusError，上层据此决定重试策略。
type UpstreamHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewUpstreamHTTPAdapter(client *httpclient.Client, baseURL, apiKey string) *UpstreamHTTPAdapter {
	return &UpstreamHTTPAdapter{client: client, baseURL: baseURL, apiKey: apiKey}
}

type upstreamProductPayload struct {
	ASIN        string  `json:"asin"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	ListPrice   float64 `json:"listPrice"`
	Currency    string  `json:"currency"`
	SalesRank   int     `json:"salesRank"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
}

func (a *UpstreamHTTPAdapter) FetchProduct(ctx context.Context, asin string) (*domain.Product, error) {
	reqURL := fmt.Sprintf("%s/products/%s", a.baseURL, url.PathEscape(asin))
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+a.apiKey)

	var payload upstreamProductPayload
	if err := a.client.GetJSON(ctx, reqURL, headers, &payload); err != nil {
		return nil, err
	}

	return &domain.Product{
		ASIN:        payload.ASIN,
		Title:       payload.Title,
		Price:       payload.Price,
		ListPrice:   payload.ListPrice,
		Currency:    payload.Currency,
		SalesRank:   payload.SalesRank,
		Rating:      payload.Rating,
		ReviewCount: payload.ReviewCount,
		Category:    payload.Category,
		ImageURL:    payload.ImageURL,
	}, nil
}
