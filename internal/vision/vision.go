package vision

import (
	"context"

	"github.com/lithammer/dedent"
)

// Detection is a single object the vision model reports seeing in an image.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0..1
}

// Inferrer sends an encoded image plus a text prompt to a vision-language
// model and returns the raw model output.
type Inferrer interface {
	Infer(ctx context.Context, imageB64, prompt string) (string, error)
}

// DefaultQuestion is used by the free-form endpoint when the caller does not
// supply one.
const DefaultQuestion = "What is in this image?"

// DetectionPrompt instructs the model to list objects as strict JSON. Models
// still occasionally wrap the output in markdown or prose; ExtractDetections
// handles that.
var DetectionPrompt = dedent.Dedent(`
	Analyze this image and list every distinct object you can identify in it.

	Respond with a JSON array where each element has these fields:
	- label: a short name for the object
	- confidence: how certain you are, as a number between 0 and 1

	Example response:
	[{"label": "cat", "confidence": 0.97}, {"label": "windowsill", "confidence": 0.82}]

	Respond ONLY with the JSON array, no markdown or other text.`)
