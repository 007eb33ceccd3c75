package validation

import (
	"testing"

	apperrors "go-attack-planner/internal/errors"
)

func TestValidate_ValidReferences(t *testing.T) {
	validator := NewReferenceValidator()

	validRefs := []string{
		"http://example.com/army.jpg",
		"https://cdn.example.com/path/to/base.png",
		"http://192.168.1.1/base.webp",
		"azblob://screens/army.png",
		"azblob://screens/2024/base.png",
	}

	for _, ref := range validRefs {
		if _, err := validator.Validate(ref); err != nil {
			t.Errorf("Expected valid reference %s to pass validation, got error: %v", ref, err)
		}
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		ref     string
		message string
	}{
		{"", "Image reference cannot be empty"},
		{"   ", "Image reference cannot be empty"},
		{"ftp://example.com/army.png", "Image reference scheme not allowed"},
		{"file://local/path/army.png", "Image reference scheme not allowed"},
		{"not-a-url", "Image reference scheme not allowed"},
		{"http://", "Image reference must have a valid host"},
		{"http:///path", "Image reference must have a valid host"},
		{"azblob://screens", "Blob reference must name a blob"},
		{"azblob://screens/", "Blob reference must name a blob"},
		{"://missing-scheme", "Invalid image reference format"},
	}

	validator := NewReferenceValidator()
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := validator.Validate(tt.ref)
			if err == nil {
				t.Fatalf("Expected %q to fail validation", tt.ref)
			}

			appErr, ok := err.(*apperrors.AppError)
			if !ok {
				t.Fatalf("Expected AppError, got: %T", err)
			}
			if appErr.Type != apperrors.ErrorTypeInput {
				t.Errorf("Expected input error, got %s", appErr.Type)
			}
			if appErr.Message != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, appErr.Message)
			}
		})
	}
}

func TestValidate_RestrictedSchemesAndHosts(t *testing.T) {
	validator := NewReferenceValidatorWithOptions([]string{"https"}, []string{"trusted.com"})

	if _, err := validator.Validate("https://trusted.com/base.png"); err != nil {
		t.Errorf("Expected trusted host to pass, got: %v", err)
	}

	if _, err := validator.Validate("https://untrusted.com/base.png"); err == nil {
		t.Error("Expected untrusted host to fail validation")
	} else if appErr, ok := err.(*apperrors.AppError); ok && appErr.Message != "Image reference host not allowed" {
		t.Errorf("Unexpected message: %s", appErr.Message)
	}

	if _, err := validator.Validate("azblob://screens/army.png"); err == nil {
		t.Error("Expected azblob to be rejected when only https is allowed")
	}
}

func TestIsSchemeAllowed(t *testing.T) {
	validator := NewReferenceValidator()

	for _, scheme := range []string{"http", "https", "azblob", "HTTPS"} {
		if !validator.isSchemeAllowed(scheme) {
			t.Errorf("Expected %s scheme to be allowed", scheme)
		}
	}
	for _, scheme := range []string{"ftp", "file", "data"} {
		if validator.isSchemeAllowed(scheme) {
			t.Errorf("Expected %s scheme to be disallowed", scheme)
		}
	}
}
