// Package documents provides document analysis through the document
// intelligence API. Analysis is asynchronous: submitting a document returns
// an operation location, which is polled until the analysis reaches a
// terminal status.
package documents

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// apiVersion pins the document intelligence endpoint version.
const apiVersion = "2024-11-30"

// Prebuilt analysis models.
const (
	ModelPrebuiltRead         = "prebuilt-read"
	ModelPrebuiltLayout       = "prebuilt-layout"
	ModelPrebuiltInvoice      = "prebuilt-invoice"
	ModelPrebuiltReceipt      = "prebuilt-receipt"
	ModelPrebuiltIDDocument   = "prebuilt-idDocument"
	ModelPrebuiltBusinessCard = "prebuilt-businessCard"
)

// Client exposes the document analysis API.
type Client struct {
	core *foundry.Client
}

// NewClient wraps a transport client.
func NewClient(core *foundry.Client) *Client {
	return &Client{core: core}
}

// Feature selects an optional analysis add-on.
type Feature string

const (
	FeatureOCRHighResolution Feature = "ocrHighResolution"
	FeatureLanguages         Feature = "languages"
	FeatureBarcodes          Feature = "barcodes"
	FeatureFormulas          Feature = "formulas"
	FeatureKeyValuePairs     Feature = "keyValuePairs"
	FeatureStyleFont         Feature = "styleFont"
)

// AnalyzeRequest submits one document for analysis. ModelID is required,
// and exactly one of URLSource and Base64Source must be set.
type AnalyzeRequest struct {
	ModelID string

	// URLSource is a publicly reachable document URL.
	URLSource string

	// Base64Source is the document content, base64-encoded.
	Base64Source string

	// Pages restricts analysis to page ranges, e.g. "1-3,5".
	Pages string

	// Locale hints the document language, e.g. "en-US".
	Locale string

	Features []Feature
}

func (r *AnalyzeRequest) validate() error {
	if r.ModelID == "" {
		return &foundry.ValidationError{Field: "model_id", Message: "model id is required"}
	}
	if r.URLSource == "" && r.Base64Source == "" {
		return &foundry.ValidationError{Field: "source", Message: "either url source or base64 source is required"}
	}
	if r.URLSource != "" && r.Base64Source != "" {
		return &foundry.ValidationError{Field: "source", Message: "url source and base64 source are mutually exclusive"}
	}
	return nil
}

func (r *AnalyzeRequest) query() url.Values {
	q := url.Values{}
	q.Set("api-version", apiVersion)
	if r.Pages != "" {
		q.Set("pages", r.Pages)
	}
	if r.Locale != "" {
		q.Set("locale", r.Locale)
	}
	if len(r.Features) > 0 {
		features := make([]string, len(r.Features))
		for i, f := range r.Features {
			features[i] = string(f)
		}
		q.Set("features", strings.Join(features, ","))
	}
	return q
}

// analyzeBody is the wire body: only the document source travels in it.
type analyzeBody struct {
	URLSource    string `json:"urlSource,omitempty"`
	Base64Source string `json:"base64Source,omitempty"`
}

// Operation identifies a running analysis.
type Operation struct {
	// Location is the absolute URL to poll for results, from the
	// Operation-Location response header.
	Location string
}

// Status is the lifecycle state of an analysis operation.
type Status string

const (
	StatusNotStarted Status = "notStarted"
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the operation has finished.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// OperationResult is one poll of an analysis operation.
type OperationResult struct {
	Status Status          `json:"status"`
	Error  *OperationError `json:"error,omitempty"`
	Result *AnalyzeResult  `json:"analyzeResult,omitempty"`
}

// OperationError is the failure detail of an operation.
type OperationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalyzeResult is the extracted document content.
type AnalyzeResult struct {
	APIVersion    string          `json:"apiVersion"`
	ModelID       string          `json:"modelId"`
	Content       string          `json:"content,omitempty"`
	Pages         []Page          `json:"pages,omitempty"`
	Tables        []Table         `json:"tables,omitempty"`
	KeyValuePairs []KeyValuePair  `json:"keyValuePairs,omitempty"`
	Documents     []TypedDocument `json:"documents,omitempty"`
}

// Page is one analyzed page.
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Angle      float64 `json:"angle,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Words      []Word  `json:"words,omitempty"`
	Lines      []Line  `json:"lines,omitempty"`
}

// Word is one recognized word.
type Word struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// Line is one recognized line of text.
type Line struct {
	Content string `json:"content"`
}

// Table is one recognized table.
type Table struct {
	RowCount    int         `json:"rowCount"`
	ColumnCount int         `json:"columnCount"`
	Cells       []TableCell `json:"cells"`
}

// TableCell is one table cell.
type TableCell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// KeyValuePair is one extracted key/value association.
type KeyValuePair struct {
	Key        *KeyValueElement `json:"key,omitempty"`
	Value      *KeyValueElement `json:"value,omitempty"`
	Confidence float64          `json:"confidence"`
}

// KeyValueElement is the key or value side of a pair.
type KeyValueElement struct {
	Content string `json:"content"`
}

// TypedDocument is one document classified by a prebuilt model.
type TypedDocument struct {
	DocType    string           `json:"docType"`
	Confidence float64          `json:"confidence"`
	Fields     map[string]Field `json:"fields,omitempty"`
}

// Field is one extracted typed field.
type Field struct {
	Type       string  `json:"type"`
	Content    string  `json:"content,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// BeginAnalyze submits a document for analysis and returns the operation
// to poll. The service acknowledges with 202 Accepted and an
// Operation-Location header.
func (c *Client) BeginAnalyze(ctx context.Context, req AnalyzeRequest) (*Operation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/documentintelligence/documentModels/%s:analyze?%s",
		url.PathEscape(req.ModelID), req.query().Encode())
	body := analyzeBody{URLSource: req.URLSource, Base64Source: req.Base64Source}

	resp, err := c.core.Do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return nil, &foundry.APIError{
			StatusCode: resp.StatusCode,
			Code:       "MissingHeader",
			Message:    "Operation-Location header missing from response",
		}
	}
	return &Operation{Location: location}, nil
}

// GetResult fetches the current state of an analysis operation.
func (c *Client) GetResult(ctx context.Context, op *Operation) (*OperationResult, error) {
	if op == nil || op.Location == "" {
		return nil, &foundry.ValidationError{Field: "operation", Message: "operation location is required"}
	}

	// Operation-Location is absolute; reduce it to a path relative to the
	// configured endpoint.
	parsed, err := url.Parse(op.Location)
	if err != nil {
		return nil, &foundry.EndpointError{Endpoint: op.Location, Cause: err}
	}
	path := parsed.Path
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	resp, err := c.core.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out OperationResult
	if err := foundry.DecodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// defaultPollInterval spaces the status checks of WaitForResult.
const defaultPollInterval = time.Second

// WaitForResult polls an operation until it reaches a terminal status or
// ctx is cancelled. An interval of zero uses one second.
func (c *Client) WaitForResult(ctx context.Context, op *Operation, interval time.Duration) (*OperationResult, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	for {
		result, err := c.GetResult(ctx, op)
		if err != nil {
			return nil, err
		}
		if result.Status.Terminal() {
			return result, nil
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
