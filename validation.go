package tryon

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrInputRequired    = errors.New("value is required")
	ErrInvalidViewAngle = errors.New("unsupported view angle")
	ErrInvalidMIMEType  = errors.New("invalid or unsupported MIME type")
	ErrImageTooLarge    = errors.New("image data exceeds maximum size")
)

// MaxImageSize is the maximum allowed image size in bytes (20MB)
const MaxImageSize = 20 * 1024 * 1024

// ValidMIMETypes contains the supported image MIME types
var ValidMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// ValidateInputImage validates one image reference. field names it in the error.
func ValidateInputImage(field string, img InputImage) error {
	if img.IsEmpty() {
		return &InputError{Field: field, Err: ErrInputRequired}
	}

	if len(img.Data) > 0 {
		if len(img.Data) > MaxImageSize {
			return &InputError{Field: field, Err: fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), MaxImageSize)}
		}

		if !ValidMIMETypes[img.MIMEType] {
			return &InputError{Field: field, Err: fmt.Errorf("%w: %q", ErrInvalidMIMEType, img.MIMEType)}
		}
	}

	return nil
}

// ValidateGenerationRequest checks that every field of a composite request is set.
func ValidateGenerationRequest(req GenerationRequest) error {
	if err := ValidateInputImage("clothingImage", req.Clothing); err != nil {
		return err
	}
	if err := ValidateInputImage("modelImage", req.Model); err != nil {
		return err
	}
	if strings.TrimSpace(req.ClothingDescription) == "" {
		return &InputError{Field: "clothingDescription", Err: ErrInputRequired}
	}
	if strings.TrimSpace(req.ModelDescription) == "" {
		return &InputError{Field: "modelDescription", Err: ErrInputRequired}
	}
	if !req.Angle.Valid() {
		return &InputError{Field: "viewAngle", Err: fmt.Errorf("%w: %q", ErrInvalidViewAngle, req.Angle)}
	}
	return nil
}

// ValidateModelRequest checks the text-only model request.
func ValidateModelRequest(req ModelRequest) error {
	if strings.TrimSpace(req.Description) == "" {
		return &InputError{Field: "modelDescription", Err: ErrInputRequired}
	}
	return nil
}
