package tryon

// SafetyCategory represents a content safety category.
type SafetyCategory string

const (
	SafetyCategoryHarassment       SafetyCategory = "HARM_CATEGORY_HARASSMENT"
	SafetyCategoryHateSpeech       SafetyCategory = "HARM_CATEGORY_HATE_SPEECH"
	SafetyCategorySexuallyExplicit SafetyCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	SafetyCategoryDangerousContent SafetyCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// SafetyThreshold represents the blocking threshold for safety filters.
type SafetyThreshold string

const (
	SafetyThresholdBlockNone      SafetyThreshold = "BLOCK_NONE"
	SafetyThresholdBlockLowAndUp  SafetyThreshold = "BLOCK_LOW_AND_ABOVE"
	SafetyThresholdBlockMedAndUp  SafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	SafetyThresholdBlockHighAndUp SafetyThreshold = "BLOCK_ONLY_HIGH"
)

// SafetySetting configures content filtering for a specific category.
type SafetySetting struct {
	Category  SafetyCategory
	Threshold SafetyThreshold
}

// GeneratedImage is a single image returned by the provider.
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// GenerateResult is the raw outcome of one provider call.
// Images may be empty even when the call succeeded.
type GenerateResult struct {
	Images []GeneratedImage

	// Text contains any text the model returned alongside (or instead of) the image
	Text string

	UsageMetadata *UsageMetadata
}

// FirstImage returns the first image, or nil when the provider returned none.
func (r *GenerateResult) FirstImage() *GeneratedImage {
	if r == nil || len(r.Images) == 0 {
		return nil
	}
	return &r.Images[0]
}

// UsageMetadata contains usage information for billing and monitoring.
type UsageMetadata struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}

// GenerationResult is what the Manager hands back for a model or composite generation.
type GenerationResult struct {
	// Image is nil when the upstream call succeeded without an image payload.
	// Callers must check Empty and treat it as a failure of their own.
	Image *GeneratedImage

	// Angle is set for composites.
	Angle ViewAngle

	// Text is any accompanying model text, useful when the image is missing.
	Text string

	// Attempts is the number of upstream calls made.
	Attempts int
}

// Empty reports whether the result carries no image.
func (r *GenerationResult) Empty() bool {
	return r == nil || r.Image == nil || len(r.Image.Data) == 0
}

// ClothingAnalysis is the classifier's structured view of a garment.
type ClothingAnalysis struct {
	GarmentType     string   `json:"garmentType"`
	Features        []string `json:"features"`
	SuggestedGender string   `json:"suggestedGender"`
}

// Description renders the analysis as a short phrase for composite prompts.
func (a *ClothingAnalysis) Description() string {
	if a == nil {
		return ""
	}
	desc := a.GarmentType
	for i, f := range a.Features {
		if i == 0 {
			desc += " with "
		} else {
			desc += ", "
		}
		desc += f
	}
	return desc
}
