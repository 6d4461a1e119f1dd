package tryon

import (
	"fmt"
	"strings"
)

// ViewInstruction returns the camera instruction for an angle.
func ViewInstruction(a ViewAngle) string {
	switch a {
	case ViewSide:
		return "Show the model from a 90-degree profile view, turned to the side so the garment's side silhouette is visible."
	case ViewBack:
		return "Show the model from a 180-degree rear view, facing away from the camera so the back of the garment is visible."
	default:
		return "Show the model forward-facing, looking straight at the camera so the front of the garment is fully visible."
	}
}

// CompositeInstruction builds the text part sent with the two images of a composite.
// The model image is sent first, the clothing image second.
func CompositeInstruction(req GenerationRequest) string {
	var b strings.Builder
	b.WriteString("The first image is a fashion model. The second image is a clothing item.\n")
	fmt.Fprintf(&b, "Model: %s\n", strings.TrimSpace(req.ModelDescription))
	fmt.Fprintf(&b, "Clothing: %s\n", strings.TrimSpace(req.ClothingDescription))
	b.WriteString("Dress the model in the clothing item. Keep the model's face, body, and the background unchanged, ")
	b.WriteString("and reproduce the garment's color, pattern, texture and fit faithfully.\n")
	b.WriteString(ViewInstruction(req.Angle))
	b.WriteString("\nReturn a single photorealistic full-body image.")
	return b.String()
}

// ModelPrompt builds the text-to-image prompt for the synthetic model.
func ModelPrompt(description string) string {
	return fmt.Sprintf("Generate a photorealistic full-body studio photo of %s. "+
		"The model wears plain, form-fitting neutral underclothes so garments can be added later. "+
		"Even soft lighting, the whole body in frame, no text or watermark.",
		strings.TrimSpace(description))
}

// AnalysisPrompt is the instruction sent with the clothing image to the classifier.
const AnalysisPrompt = `Analyze the clothing item in this image.
Return JSON with:
- garmentType: the kind of garment (e.g. "t-shirt", "dress", "jeans")
- features: notable visual features such as color, pattern, material, neckline, sleeve length
- suggestedGender: "male", "female" or "unisex"`
