// Package businessflow contains the storefront use cases: catalog resolution, leads, the order wizard and the admin panel
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Catalog errors
	ErrCityNotFound    = errors.New("city not found")
	ErrServiceNotFound = errors.New("service not found")
	ErrCityUnavailable = errors.New("city is not available")
	ErrInvalidCityName = errors.New("city name does not produce a slug")
	ErrInvalidCategory = errors.New("invalid category")

	// Lead errors
	ErrLeadValidation      = errors.New("lead validation failed")
	ErrLeadNotFound        = errors.New("lead not found")
	ErrLeadJournalDisabled = errors.New("lead journal is disabled")

	// Wizard errors
	ErrWizardNotFound   = errors.New("wizard not found")
	ErrWizardValidation = errors.New("wizard step validation failed")
	ErrWizardNotReady   = errors.New("wizard is not on the summary step")
	ErrConsentRequired  = errors.New("consent is required")
	ErrTariffNotOffered = errors.New("tariff is not offered for the selected category")

	// Admin errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("admin session not found")
	ErrSessionExpired     = errors.New("admin session expired")
	ErrEmptySelection     = errors.New("no tariffs selected")

	// Import errors
	ErrImportNotFound      = errors.New("import not found")
	ErrImportFileInvalid   = errors.New("import file is invalid")
	ErrImportEmpty         = errors.New("import file has no usable rows")
	ErrImportAlreadyFinish = errors.New("import already finished")

	// Infrastructure errors
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrCacheNotAvailable   = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ValidationError carries a field→message map for inline display
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %d field(s)", e.Err, len(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(err error, fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields, Err: err}
}

// ValidationFields returns the field map of a ValidationError anywhere in err's chain
func ValidationFields(err error) (map[string]string, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Fields, true
	}
	return nil, false
}

func IsCityNotFound(err error) bool {
	return errors.Is(err, ErrCityNotFound)
}

func IsServiceNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}

func IsCityUnavailable(err error) bool {
	return errors.Is(err, ErrCityUnavailable)
}

func IsInvalidCityName(err error) bool {
	return errors.Is(err, ErrInvalidCityName)
}

func IsInvalidCategory(err error) bool {
	return errors.Is(err, ErrInvalidCategory)
}

func IsLeadValidation(err error) bool {
	return errors.Is(err, ErrLeadValidation)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsLeadJournalDisabled(err error) bool {
	return errors.Is(err, ErrLeadJournalDisabled)
}

func IsWizardNotFound(err error) bool {
	return errors.Is(err, ErrWizardNotFound)
}

func IsWizardValidation(err error) bool {
	return errors.Is(err, ErrWizardValidation)
}

func IsWizardNotReady(err error) bool {
	return errors.Is(err, ErrWizardNotReady)
}

func IsConsentRequired(err error) bool {
	return errors.Is(err, ErrConsentRequired)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func IsEmptySelection(err error) bool {
	return errors.Is(err, ErrEmptySelection)
}

func IsImportNotFound(err error) bool {
	return errors.Is(err, ErrImportNotFound)
}

func IsImportFileInvalid(err error) bool {
	return errors.Is(err, ErrImportFileInvalid)
}

func IsImportEmpty(err error) bool {
	return errors.Is(err, ErrImportEmpty)
}

func IsImportAlreadyFinished(err error) bool {
	return errors.Is(err, ErrImportAlreadyFinish)
}

func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
