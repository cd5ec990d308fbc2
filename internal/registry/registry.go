package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdfchat/internal/api"
	"pdfchat/internal/model"
)

var ErrNotPDF = errors.New("only PDF files allowed")

// Client talks to the document registry endpoints: listing, upload,
// reprocess trigger, and the connectivity probe.
type Client struct {
	api *api.Client
}

func NewClient(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// List fetches the caller's documents with their processing status.
func (c *Client) List(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := c.api.GetJSON(ctx, "/api/my_pdfs/", &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Find is a pure lookup inside a previously fetched snapshot; polling
// uses it on every tick instead of a per-document endpoint.
func Find(id int64, snapshot []model.Document) (model.Document, bool) {
	for _, doc := range snapshot {
		if doc.ID == id {
			return doc, true
		}
	}
	return model.Document{}, false
}

// UploadResult is the upload acknowledgement, including the URLs the
// server minted for the new document.
type UploadResult struct {
	Message   string `json:"message"`
	PDFID     int64  `json:"pdf_id"`
	FileURL   string `json:"file_url"`
	ChunksURL string `json:"chunks_url"`
	AskURL    string `json:"ask_url"`
}

// Upload sends a local PDF as multipart field "file". Processing starts
// asynchronously on the server; the new document lists as pending.
func (c *Client) Upload(ctx context.Context, filePath string) (*UploadResult, error) {
	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return nil, ErrNotPDF
	}

	var result UploadResult
	if err := c.api.PostMultipartFile(ctx, "/api/upload_pdf/", "file", filePath, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type reprocessResponse struct {
	Message string `json:"message"`
}

// Reprocess issues the one-shot reprocessing request. It does not
// retry; the caller decides whether to follow up with polling.
func (c *Client) Reprocess(ctx context.Context, documentID int64) (string, error) {
	var resp reprocessResponse
	err := c.api.PostJSON(ctx, fmt.Sprintf("/api/pdf/%d/process/", documentID), struct{}{}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Message == "" {
		resp.Message = "Reprocess completed"
	}
	return resp.Message, nil
}

type pingResponse struct {
	Message string `json:"message"`
}

// Ping hits the unauthenticated probe endpoint.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var resp pingResponse
	if err := c.api.GetJSON(ctx, "/api/test", &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
