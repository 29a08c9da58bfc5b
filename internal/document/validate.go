package document

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// MaxSizeBytes is the upload size ceiling (5 MiB).
const MaxSizeBytes = 5 << 20

// AllowedMimeTypes lists the accepted content types.
var AllowedMimeTypes = []string{
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var (
	ErrFileTooLarge    = errors.New("File size should be less than 5MB")
	ErrUnsupportedType = errors.New("File type not supported. Please upload PDF, TXT, or DOC files.")
)

var validate = validator.New()

// Validate checks size and type policy. It does no I/O and never reads Content.
// Size is reported ahead of type when both fail.
func Validate(f File) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var typeErr error
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "SizeBytes":
			return ErrFileTooLarge
		case "MimeType":
			typeErr = ErrUnsupportedType
		}
	}
	if typeErr != nil {
		return typeErr
	}
	return err
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrUnsupportedType)
}
