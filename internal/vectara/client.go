// Package vectara implements the client for the remote corpus index API:
// document submission, delete-by-id and raw multipart file upload, with the
// configured reindex policy applied on conflicts.
package vectara

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LadyD56/vectara-ingest/pkg/models"
)

// Config holds corpus connection configuration.
type Config struct {
	Endpoint   string // host, or a full base URL for testing
	CustomerID string
	CorpusID   int
	APIKey     string
	Timeout    time.Duration
	Reindex    bool
}

// Client talks to the remote corpus. The embedded http.Client is long-lived
// and safe for concurrent reuse; transient transport failures are retried
// with bounded exponential backoff.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

const maxRetries = 3

// New creates a new corpus client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) baseURL() string {
	if strings.Contains(c.cfg.Endpoint, "://") {
		return strings.TrimSuffix(c.cfg.Endpoint, "/")
	}
	return "https://" + c.cfg.Endpoint
}

// post submits a request, retrying transport failures and 5xx responses.
// The returned body is fully read.
func (c *Client) post(ctx context.Context, reqURL, contentType string, body []byte) (int, []byte, error) {
	var status int
	var respBody []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-api-key", c.cfg.APIKey)
		req.Header.Set("customer-id", c.cfg.CustomerID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, string(b))
		}

		status, respBody = resp.StatusCode, b
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return 0, nil, err
	}
	return status, respBody, nil
}

type indexRequest struct {
	CustomerID string          `json:"customer_id"`
	CorpusID   int             `json:"corpus_id"`
	Document   models.Document `json:"document"`
}

type deleteRequest struct {
	CustomerID string `json:"customer_id"`
	CorpusID   int    `json:"corpus_id"`
	DocumentID string `json:"document_id"`
}

type statusResponse struct {
	Status struct {
		Code         string `json:"code"`
		StatusDetail string `json:"statusDetail"`
	} `json:"status"`
}

// IndexDocument uploads a document to the corpus. On an "already exists"
// conflict the configured reindex policy applies: delete the existing
// document and resubmit once, or skip. Returns true on success.
func (c *Client) IndexDocument(ctx context.Context, doc models.Document) bool {
	payload, err := json.Marshal(indexRequest{
		CustomerID: c.cfg.CustomerID,
		CorpusID:   c.cfg.CorpusID,
		Document:   doc,
	})
	if err != nil {
		slog.Info("cannot serialize index request, skipping", "doc_id", doc.DocumentID, "error", err)
		return false
	}

	indexURL := c.baseURL() + "/v1/index"
	status, body, err := c.post(ctx, indexURL, "application/json", payload)
	if err != nil {
		slog.Info("index request failed", "doc_id", doc.DocumentID, "error", err)
		return false
	}
	if status != http.StatusOK {
		slog.Error("index upload failed", "doc_id", doc.DocumentID, "status", status, "body", string(body))
		return false
	}

	var result statusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		slog.Info("indexing returned an unreadable response", "doc_id", doc.DocumentID, "body", string(body))
		return false
	}

	code := result.Status.Code
	alreadyExists := strings.Contains(code, "ALREADY_EXISTS") ||
		(strings.Contains(code, "CONFLICT") && strings.Contains(result.Status.StatusDetail, "Indexing doesn't support updating documents"))
	if alreadyExists {
		if !c.cfg.Reindex {
			slog.Info("document already exists, skipping", "doc_id", doc.DocumentID)
			return false
		}
		slog.Info("document already exists, re-indexing", "doc_id", doc.DocumentID)
		c.DeleteDocument(ctx, doc.DocumentID)
		// The resubmission outcome is not re-validated.
		if _, _, err := c.post(ctx, indexURL, "application/json", payload); err != nil {
			slog.Info("re-index submission failed", "doc_id", doc.DocumentID, "error", err)
		}
		return true
	}

	if strings.Contains(code, "OK") {
		return true
	}

	slog.Info("indexing document failed", "doc_id", doc.DocumentID, "response", string(body))
	return false
}

// DeleteDocument removes a document from the corpus by id. Returns true on
// success.
func (c *Client) DeleteDocument(ctx context.Context, docID string) bool {
	payload, err := json.Marshal(deleteRequest{
		CustomerID: c.cfg.CustomerID,
		CorpusID:   c.cfg.CorpusID,
		DocumentID: docID,
	})
	if err != nil {
		slog.Error("cannot serialize delete request", "doc_id", docID, "error", err)
		return false
	}

	status, body, err := c.post(ctx, c.baseURL()+"/v1/delete-doc", "application/json", payload)
	if err != nil {
		slog.Error("delete request failed", "doc_id", docID, "error", err)
		return false
	}
	if status != http.StatusOK {
		slog.Error("delete request failed", "doc_id", docID, "status", status, "body", string(body))
		return false
	}
	return true
}

// UploadFile uploads a local file's bytes plus a metadata sidecar directly to
// the corpus, bypassing extraction. On HTTP 409 the reindex policy applies,
// with the existing document id parsed out of the conflict response. Returns
// true on success.
func (c *Client) UploadFile(ctx context.Context, path, uri string, metadata map[string]any) bool {
	if _, err := os.Stat(path); err != nil {
		slog.Error("file does not exist", "path", path)
		return false
	}

	body, contentType, err := multipartBody(path, uri, metadata)
	if err != nil {
		slog.Error("cannot build upload request", "path", path, "error", err)
		return false
	}

	uploadURL := fmt.Sprintf("%s/upload?c=%s&o=%d&d=True",
		c.baseURL(), url.QueryEscape(c.cfg.CustomerID), c.cfg.CorpusID)
	status, respBody, err := c.post(ctx, uploadURL, contentType, body)
	if err != nil {
		slog.Error("upload failed", "uri", uri, "error", err)
		return false
	}

	switch {
	case status == http.StatusConflict:
		if !c.cfg.Reindex {
			return false
		}
		if docID := conflictDocID(respBody); docID != "" {
			c.DeleteDocument(ctx, docID)
		}
		retryURL := fmt.Sprintf("%s/upload?c=%s&o=%d",
			c.baseURL(), url.QueryEscape(c.cfg.CustomerID), c.cfg.CorpusID)
		retryStatus, retryBody, err := c.post(ctx, retryURL, contentType, body)
		switch {
		case err != nil:
			slog.Info("upload retry failed", "uri", uri, "error", err)
		case retryStatus == http.StatusOK:
			slog.Info("upload successful (reindex)", "uri", uri)
		default:
			slog.Info("upload retry failed", "uri", uri, "status", retryStatus, "body", string(retryBody))
		}
		// The reindex resubmission outcome is not re-validated.
		return true
	case status != http.StatusOK:
		slog.Error("upload failed", "uri", uri, "status", status, "body", string(respBody))
		return false
	}

	slog.Info("upload successful", "uri", uri)
	return true
}

// conflictDocID parses the existing document id out of a 409 response body of
// the form {"details": "... document id 'X' ..."}.
func conflictDocID(body []byte) string {
	var resp struct {
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	_, after, found := strings.Cut(resp.Details, "document id")
	if !found {
		return ""
	}
	parts := strings.SplitN(after, "'", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

func multipartBody(path, uri string, metadata map[string]any) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", uri)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if err := w.WriteField("doc_metadata", string(meta)); err != nil {
		return nil, "", fmt.Errorf("failed to write metadata part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
