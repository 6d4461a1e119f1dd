package tryon

import (
	"fmt"
	"strings"
)

// ViewAngle is the camera perspective of a composite.
type ViewAngle string

const (
	ViewFront ViewAngle = "front"
	ViewSide  ViewAngle = "side"
	ViewBack  ViewAngle = "back"
)

// AllViewAngles lists the supported angles in display order.
func AllViewAngles() []ViewAngle {
	return []ViewAngle{ViewFront, ViewSide, ViewBack}
}

// Valid reports whether a is one of the supported angles.
func (a ViewAngle) Valid() bool {
	switch a {
	case ViewFront, ViewSide, ViewBack:
		return true
	}
	return false
}

func (a ViewAngle) String() string {
	return string(a)
}

// ParseViewAngle parses a case-insensitive angle name. Empty input means front.
func ParseViewAngle(s string) (ViewAngle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ViewFront, nil
	}
	a := ViewAngle(s)
	if !a.Valid() {
		return "", &InputError{Field: "viewAngle", Err: fmt.Errorf("%w: %q", ErrInvalidViewAngle, s)}
	}
	return a, nil
}

// GenerationRequest asks for the clothing to be composited onto the model
// from one view angle. It is passed by value and not modified downstream.
type GenerationRequest struct {
	Clothing            InputImage
	Model               InputImage
	ClothingDescription string
	ModelDescription    string
	Angle               ViewAngle
}

// WithAngle returns a copy of the request for another angle.
func (r GenerationRequest) WithAngle(a ViewAngle) GenerationRequest {
	r.Angle = a
	return r
}

// ModelRequest asks for a synthetic human model image from a description.
type ModelRequest struct {
	Description string
}

// ModelProfile holds the wizard's model options.
type ModelProfile struct {
	Gender     string `json:"gender"`
	AgeRange   string `json:"ageRange"`
	BodyType   string `json:"bodyType"`
	SkinTone   string `json:"skinTone"`
	Pose       string `json:"pose"`
	Background string `json:"background"`
}

// Describe assembles the free-text model description from the profile.
func (p ModelProfile) Describe() string {
	var parts []string
	subject := strings.TrimSpace(strings.Join(nonEmpty(p.AgeRange, p.Gender), " "))
	if subject == "" {
		subject = "adult"
	}
	parts = append(parts, "a "+subject+" fashion model")
	if p.BodyType != "" {
		parts = append(parts, "with a "+p.BodyType+" build")
	}
	if p.SkinTone != "" {
		parts = append(parts, p.SkinTone+" skin tone")
	}
	if p.Pose != "" {
		parts = append(parts, "standing in a "+p.Pose+" pose")
	} else {
		parts = append(parts, "standing in a neutral pose")
	}
	bg := p.Background
	if bg == "" {
		bg = "plain light grey studio"
	}
	parts = append(parts, "against a "+bg+" background")
	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
