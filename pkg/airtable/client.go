package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// DefaultBaseURL — адрес REST API табличного хранилища
const DefaultBaseURL = "https://api.airtable.com/v0"

// UpstreamError возвращается, когда ответ хранилища содержит поле error
type UpstreamError struct {
	StatusCode int
	Payload    json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("airtable error (status %d): %s", e.StatusCode, string(e.Payload))
}

// Unwrap позволяет сравнивать ошибку с apperrors.ErrUpstream через errors.Is
func (e *UpstreamError) Unwrap() error {
	return apperrors.ErrUpstream
}

// Record — запись таблицы в формате API хранилища
type Record struct {
	ID          string          `json:"id,omitempty"`
	CreatedTime string          `json:"createdTime,omitempty"`
	Fields      json.RawMessage `json:"fields"`
}

// DecodeFields разбирает поля записи в структуру dst
func (r *Record) DecodeFields(dst interface{}) error {
	if len(r.Fields) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Fields, dst); err != nil {
		return fmt.Errorf("failed to decode fields of record %s: %w", r.ID, err)
	}
	return nil
}

// Sort описывает сортировку по одному полю
type Sort struct {
	Field     string
	Direction string // "asc" или "desc"
}

// ListParams содержит параметры выборки записей
type ListParams struct {
	FilterByFormula string
	Sort            []Sort
	Fields          []string
	MaxRecords      int
	PageSize        int
}

// Config содержит настройки клиента
type Config struct {
	APIKey  string
	BaseID  string
	BaseURL string
	Timeout time.Duration
}

// Client выполняет аутентифицированные запросы к табличному хранилищу
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient создает нового клиента хранилища
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("airtable api key is required")
	}
	if cfg.BaseID == "" {
		return nil, fmt.Errorf("airtable base id is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(cfg.BaseID),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

type recordsRequest struct {
	Records  []Record `json:"records"`
	Typecast bool     `json:"typecast,omitempty"`
}

// List возвращает все записи таблицы, удовлетворяющие параметрам.
// Если ответ разбит на страницы, клиент проходит по курсору offset до конца.
func (c *Client) List(ctx context.Context, table string, params ListParams) ([]Record, error) {
	query := params.values()
	var records []Record
	for {
		var page listResponse
		if err := c.do(ctx, http.MethodGet, table, query, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Offset == "" || (params.MaxRecords > 0 && len(records) >= params.MaxRecords) {
			break
		}
		query.Set("offset", page.Offset)
	}
	return records, nil
}

// Create создает запись и возвращает её в том виде, в каком её сохранило хранилище
func (c *Client) Create(ctx context.Context, table string, fields interface{}) (*Record, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	var resp listResponse
	body := recordsRequest{Records: []Record{{Fields: raw}}, Typecast: true}
	if err := c.do(ctx, http.MethodPost, table, nil, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Records) == 0 {
		return nil, fmt.Errorf("airtable returned no records for create in %s", table)
	}
	return &resp.Records[0], nil
}

// Update частично обновляет поля записи (PATCH)
func (c *Client) Update(ctx context.Context, table, id string, fields interface{}) (*Record, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	var resp listResponse
	body := recordsRequest{Records: []Record{{ID: id, Fields: raw}}, Typecast: true}
	if err := c.do(ctx, http.MethodPatch, table, nil, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Records) == 0 {
		return nil, fmt.Errorf("airtable returned no records for update of %s in %s", id, table)
	}
	return &resp.Records[0], nil
}

// envelope используется для обнаружения поля error в любом ответе
type envelope struct {
	Error json.RawMessage `json:"error"`
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + "/" + url.PathEscape(table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("airtable %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read airtable response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode airtable response (status %d): %w", resp.StatusCode, err)
	}
	if len(env.Error) > 0 && string(env.Error) != "null" {
		return &UpstreamError{StatusCode: resp.StatusCode, Payload: env.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode airtable response: %w", err)
	}
	return nil
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.FilterByFormula != "" {
		q.Set("filterByFormula", p.FilterByFormula)
	}
	for i, s := range p.Sort {
		q.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		direction := s.Direction
		if direction == "" {
			direction = "asc"
		}
		q.Set(fmt.Sprintf("sort[%d][direction]", i), direction)
	}
	for _, f := range p.Fields {
		q.Add("fields[]", f)
	}
	if p.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(p.MaxRecords))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	return q
}
