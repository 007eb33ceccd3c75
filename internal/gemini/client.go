// Package gemini adapts the Google GenAI SDK to the planner's Model interface.
package gemini

import (
	"context"
	"fmt"
	"time"

	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/logger"
	"go-attack-planner/internal/planner"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-3-pro-preview"

// contentGenerator is the subset of *genai.Models used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures the client.
type Options struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
}

// Client calls a Gemini model for structured JSON output.
type Client struct {
	models contentGenerator
	model  string
}

// NewClient creates a client for the Gemini API.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, apperrors.NewConfigurationError("Missing GEMINI_API_KEY (set it in .env.local).", nil)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to create GenAI client", err)
	}

	return &Client{models: client.Models, model: opts.Model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// GenerateStructured sends the prompt and images in one user turn and asks
// for a JSON response constrained by call.Schema.
func (c *Client) GenerateStructured(ctx context.Context, call planner.StructuredCall) (string, error) {
	contents, err := buildContents(call)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(call.Schema),
	}

	startTime := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", err
	}

	logger.WithFields(logrus.Fields{
		"model":              c.model,
		"candidates":         len(resp.Candidates),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Gemini response received")

	return resp.Text(), nil
}

func buildContents(call planner.StructuredCall) ([]*genai.Content, error) {
	parts := make([]*genai.Part, 0, len(call.Images)+1)
	parts = append(parts, genai.NewPartFromText(call.Prompt))

	// Images from imaging.Encode carry their raw bytes; only hand-built
	// values are decoded here.
	for i, img := range call.Images {
		data, err := img.Bytes()
		if err != nil {
			return nil, fmt.Errorf("image %d is not valid base64: %w", i, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeTypeOf(img)))
	}

	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

func mimeTypeOf(img imaging.EncodedImage) string {
	if img.MIMEType == "" {
		return "application/octet-stream"
	}
	return img.MIMEType
}

func toGenaiSchema(s *planner.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:             toGenaiType(s.Type),
		Description:      s.Description,
		Required:         append([]string(nil), s.Required...),
		PropertyOrdering: append([]string(nil), s.PropertyOrder...),
		Items:            toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func toGenaiType(t planner.SchemaType) genai.Type {
	switch t {
	case planner.TypeObject:
		return genai.TypeObject
	case planner.TypeArray:
		return genai.TypeArray
	case planner.TypeString:
		return genai.TypeString
	default:
		return genai.TypeUnspecified
	}
}
