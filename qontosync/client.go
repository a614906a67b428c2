package qontosync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is a configuration error: the Qonto API token is
// absent, so no sync can even start.
var ErrMissingCredentials = errors.New("qonto api credentials are not configured")

// Client talks to the Qonto third-party API. Authentication is the
// login:secret-key token Qonto issues per organization.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
}

func NewClient() (*Client, error) {
	login := strings.TrimSpace(os.Getenv("QONTO_API_LOGIN"))
	secretKey := strings.TrimSpace(os.Getenv("QONTO_API_SECRET_KEY"))
	if login == "" || secretKey == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := strings.TrimSpace(os.Getenv("QONTO_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://thirdparty.qonto.com"
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: login + ":" + secretKey,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type listEnvelope struct {
	Clients          []json.RawMessage `json:"clients"`
	ClientInvoices   []json.RawMessage `json:"client_invoices"`
	SupplierInvoices []json.RawMessage `json:"supplier_invoices"`
	Meta             PageMeta          `json:"meta"`
}

func (c *Client) FetchClients(ctx context.Context, page, perPage int) ([]json.RawMessage, PageMeta, error) {
	env, err := c.getList(ctx, "/v2/clients", page, perPage)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return env.Clients, env.Meta, nil
}

func (c *Client) FetchClientInvoices(ctx context.Context, page, perPage int) ([]json.RawMessage, PageMeta, error) {
	env, err := c.getList(ctx, "/v2/client_invoices", page, perPage)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return env.ClientInvoices, env.Meta, nil
}

func (c *Client) FetchSupplierInvoices(ctx context.Context, page, perPage int) ([]json.RawMessage, PageMeta, error) {
	env, err := c.getList(ctx, "/v2/supplier_invoices", page, perPage)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return env.SupplierInvoices, env.Meta, nil
}

func (c *Client) getList(ctx context.Context, path string, page, perPage int) (listEnvelope, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.get(ctx, path+"?"+params.Encode())
	if err != nil {
		return listEnvelope{}, err
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return listEnvelope{}, fmt.Errorf("qonto list response: %w", err)
	}
	return env, nil
}

// ResolveAttachment exchanges an opaque attachment id for a time-limited
// signed download URL.
func (c *Client) ResolveAttachment(ctx context.Context, attachmentId string) (*Attachment, error) {
	body, err := c.get(ctx, "/v2/attachments/"+url.PathEscape(attachmentId))
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Attachment Attachment `json:"attachment"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("qonto attachment response: %w", err)
	}
	if strings.TrimSpace(envelope.Attachment.URL) == "" {
		return nil, errors.New("attachment url missing in response")
	}
	return &envelope.Attachment, nil
}

// DownloadAttachment fetches the document behind a signed URL, for the
// inline-base64 submission fallback.
func (c *Client) DownloadAttachment(ctx context.Context, signedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("attachment download error %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qonto api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
