// Package catalog is a query builder and paginated product fetcher against
// the Copernicus Data Space Ecosystem OData API.
package catalog

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/semaphore"

	"satcoverage/internal/logger"
)

const defaultBaseURL = "https://catalogue.dataspace.copernicus.eu/odata/v1/Products"

// Record is one raw catalog entry.
type Record struct {
	ID                string
	Name              string
	ContentLength     int64
	SensingStart      time.Time
	FootprintWKT      string
	CloudCoverPercent float64
	ProductType       string
}

// Query describes the AOI/date/cloud/product-type search parameters passed
// out to the catalog.
type Query struct {
	AOIWKT         string
	Start          time.Time
	End            time.Time
	MaxCloudCover  float64
	ProductType    string // e.g. "S2MSI2A"
	CollectionName string // default "SENTINEL-2"
}

// Client is a bearer-token-authenticated OData client. Concurrent requests
// are bounded by a semaphore so paginated fetches across jobs stay inside
// the service's rate expectations.
type Client struct {
	http    *resty.Client
	sem     *semaphore.Weighted
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the OData endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithMaxConcurrentRequests overrides the default concurrency bound of 4.
func WithMaxConcurrentRequests(n int64) Option {
	return func(c *Client) { c.sem = semaphore.NewWeighted(n) }
}

// New builds a Client authenticated with a bearer token obtained via
// Authenticate or supplied directly from CDSE_ACCESS_TOKEN.
func New(bearerToken string, opts ...Option) *Client {
	c := &Client{
		http:    resty.New().SetHeader("Authorization", "Bearer "+bearerToken).SetTimeout(30 * time.Second),
		sem:     semaphore.NewWeighted(4),
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch runs q against the catalog, following @odata.nextLink pagination
// until exhausted, and returns every record found.
func (c *Client) Fetch(ctx context.Context, q Query) ([]Record, error) {
	filter := buildFilter(q)
	url := fmt.Sprintf("%s?$filter=%s&$orderby=%s&$top=100", c.baseURL,
		neturl.QueryEscape(filter), neturl.QueryEscape("ContentDate/Start desc"))

	var out []Record
	for url != "" {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("catalog: acquire request slot: %w", err)
		}
		page, next, err := c.fetchPage(ctx, url)
		c.sem.Release(1)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		url = next
	}
	logger.Info("catalog", fmt.Sprintf("fetched %d products", len(out)))
	return out, nil
}

type odataResponse struct {
	Value []odataProduct `json:"value"`
	Next  string         `json:"@odata.nextLink"`
}

type odataProduct struct {
	ID            string `json:"Id"`
	Name          string `json:"Name"`
	ContentLength int64  `json:"ContentLength"`
	ContentDate   struct {
		Start time.Time `json:"Start"`
	} `json:"ContentDate"`
	Footprint  string                 `json:"GeoFootprint"`
	Attributes map[string]interface{} `json:"Attributes"`
}

func (c *Client) fetchPage(ctx context.Context, url string) ([]Record, string, error) {
	var body odataResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&body).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("catalog: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("catalog: unexpected status %d: %s", resp.StatusCode(), resp.String())
	}

	records := make([]Record, 0, len(body.Value))
	for _, p := range body.Value {
		records = append(records, Record{
			ID:                p.ID,
			Name:              p.Name,
			ContentLength:     p.ContentLength,
			SensingStart:      p.ContentDate.Start,
			FootprintWKT:      p.Footprint,
			CloudCoverPercent: attributeFloat(p.Attributes, "cloudCover"),
			ProductType:       attributeString(p.Attributes, "productType"),
		})
	}
	return records, body.Next, nil
}

func attributeFloat(attrs map[string]interface{}, key string) float64 {
	v, ok := attrs[key].(map[string]interface{})
	if !ok {
		return 0
	}
	f, _ := v["Value"].(float64)
	return f
}

func attributeString(attrs map[string]interface{}, key string) string {
	v, ok := attrs[key].(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := v["Value"].(string)
	return s
}

func buildFilter(q Query) string {
	collection := q.CollectionName
	if collection == "" {
		collection = "SENTINEL-2"
	}
	clauses := []string{
		fmt.Sprintf("Collection/Name eq '%s'", collection),
		fmt.Sprintf("OData.CSC.Intersects(area=geography'SRID=4326;%s')", q.AOIWKT),
		fmt.Sprintf("ContentDate/Start ge %s", q.Start.Format("2006-01-02T15:04:05.000Z")),
		fmt.Sprintf("ContentDate/Start le %s", q.End.Format("2006-01-02T15:04:05.000Z")),
		fmt.Sprintf("Attributes/OData.CSC.DoubleAttribute/any(a:a/Name eq 'cloudCover' and a/Value le %g)", q.MaxCloudCover),
	}
	if q.ProductType != "" {
		clauses = append(clauses, fmt.Sprintf("Attributes/OData.CSC.StringAttribute/any(a:a/Name eq 'productType' and a/Value eq '%s')", q.ProductType))
	}
	return strings.Join(clauses, " and ")
}
