// Package vision provides image analysis through the computer vision API.
package vision

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// apiVersion pins the image analysis endpoint version.
const apiVersion = "2024-02-01"

const analyzePath = "/computervision/imageanalysis:analyze"

// Client exposes the image analysis API.
type Client struct {
	core *foundry.Client
}

// NewClient wraps a transport client.
func NewClient(core *foundry.Client) *Client {
	return &Client{core: core}
}

// Feature selects a visual feature to extract.
type Feature string

const (
	FeatureTags          Feature = "tags"
	FeatureCaption       Feature = "caption"
	FeatureDenseCaptions Feature = "denseCaptions"
	FeatureObjects       Feature = "objects"
	FeatureRead          Feature = "read"
	FeatureSmartCrops    Feature = "smartCrops"
	FeaturePeople        Feature = "people"
)

// AnalyzeRequest configures one image analysis. ImageURL and at least one
// feature are required. Features, language, and model selection travel as
// query parameters; the body carries only the image URL.
type AnalyzeRequest struct {
	ImageURL string
	Features []Feature

	// Language selects the output language for text results, e.g. "en".
	Language string

	// ModelVersion pins a specific analysis model version.
	ModelVersion string

	// SmartCropAspectRatios lists aspect ratios for crop suggestions,
	// each between 0.75 and 1.8.
	SmartCropAspectRatios []float64

	// GenderNeutralCaption requests neutral wording in captions.
	GenderNeutralCaption bool
}

func (r *AnalyzeRequest) query() url.Values {
	q := url.Values{}
	features := make([]string, len(r.Features))
	for i, f := range r.Features {
		features[i] = string(f)
	}
	q.Set("features", strings.Join(features, ","))
	q.Set("api-version", apiVersion)
	if r.Language != "" {
		q.Set("language", r.Language)
	}
	if r.ModelVersion != "" {
		q.Set("model-version", r.ModelVersion)
	}
	if len(r.SmartCropAspectRatios) > 0 {
		ratios := make([]string, len(r.SmartCropAspectRatios))
		for i, ratio := range r.SmartCropAspectRatios {
			ratios[i] = fmt.Sprintf("%g", ratio)
		}
		q.Set("smartcrops-aspect-ratios", strings.Join(ratios, ","))
	}
	if r.GenderNeutralCaption {
		q.Set("gender-neutral-caption", "true")
	}
	return q
}

// AnalyzeResult is the typed analysis outcome. Result sections are present
// only for the requested features.
type AnalyzeResult struct {
	ModelVersion  string         `json:"modelVersion"`
	Metadata      ImageMetadata  `json:"metadata"`
	Caption       *Caption       `json:"captionResult,omitempty"`
	Tags          *Tags          `json:"tagsResult,omitempty"`
	Objects       *Objects       `json:"objectsResult,omitempty"`
	Read          *Read          `json:"readResult,omitempty"`
	DenseCaptions *DenseCaptions `json:"denseCaptionsResult,omitempty"`
	SmartCrops    *SmartCrops    `json:"smartCropsResult,omitempty"`
	People        *People        `json:"peopleResult,omitempty"`
}

// ImageMetadata records the analyzed image's dimensions.
type ImageMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Caption is a one-sentence image description.
type Caption struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Tags lists recognized content tags.
type Tags struct {
	Values []Tag `json:"values"`
}

// Tag is one recognized concept.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Objects lists detected objects with bounding boxes.
type Objects struct {
	Values []DetectedObject `json:"values"`
}

// DetectedObject is one located object.
type DetectedObject struct {
	ID          string      `json:"id,omitempty"`
	BoundingBox BoundingBox `json:"boundingBox"`
	Tags        []Tag       `json:"tags"`
}

// BoundingBox is a pixel-coordinate rectangle.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Read holds extracted text blocks.
type Read struct {
	Blocks []TextBlock `json:"blocks"`
}

// TextBlock groups recognized text lines.
type TextBlock struct {
	Lines []TextLine `json:"lines"`
}

// TextLine is one recognized line of text.
type TextLine struct {
	Text            string  `json:"text"`
	BoundingPolygon []Point `json:"boundingPolygon"`
	Words           []Word  `json:"words"`
}

// Word is one recognized word.
type Word struct {
	Text            string  `json:"text"`
	BoundingPolygon []Point `json:"boundingPolygon"`
	Confidence      float64 `json:"confidence"`
}

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DenseCaptions lists region-level captions.
type DenseCaptions struct {
	Values []DenseCaption `json:"values"`
}

// DenseCaption describes one image region.
type DenseCaption struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// SmartCrops lists suggested crop regions.
type SmartCrops struct {
	Values []SmartCrop `json:"values"`
}

// SmartCrop is one crop suggestion.
type SmartCrop struct {
	AspectRatio float64     `json:"aspectRatio"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// People lists detected people.
type People struct {
	Values []Person `json:"values"`
}

// Person is one detected person.
type Person struct {
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// Analyze runs image analysis for the requested features.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if req.ImageURL == "" {
		return nil, &foundry.ValidationError{Field: "image_url", Message: "image url is required"}
	}
	if len(req.Features) == 0 {
		return nil, &foundry.ValidationError{Field: "features", Message: "at least one feature is required"}
	}

	body := struct {
		URL string `json:"url"`
	}{URL: req.ImageURL}

	path := analyzePath + "?" + req.query().Encode()
	resp, err := c.core.Do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var out AnalyzeResult
	if err := foundry.DecodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
