package aif

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeNilAIM               = "AIM_NIL"
	ErrCodeAIMDestroyed         = "AIM_DESTROYED"
	ErrCodeInvalidTransition    = "AIM_INVALID_TRANSITION"
	ErrCodeLifecycleFailed      = "AIM_LIFECYCLE_FAILED"
	ErrCodeAIMNotFound          = "AIM_NOT_FOUND"
	ErrCodeAIMNotInCatalog      = "AIM_NOT_IN_CATALOG"
	ErrCodeCreationSkipped      = "AIM_CREATION_SKIPPED"
	ErrCodeNilStore             = "STORE_NIL"
	ErrCodeStoreClosed          = "STORE_CLOSED"
	ErrCodeInvalidIdentity      = "STORE_INVALID_IDENTITY"
	ErrCodeInvalidChannel       = "STORE_INVALID_CHANNEL"
	ErrCodeCapacityExceeded     = "STORE_CAPACITY_EXCEEDED"
	ErrCodeDuplicateRegistry    = "STORE_DUPLICATE_REGISTRATION"
	ErrCodeNotRegistered        = "STORE_NOT_REGISTERED"
	ErrCodeMessageTooLarge      = "STORE_MESSAGE_TOO_LARGE"
	ErrCodeNoMessage            = "STORE_NO_MESSAGE"
	ErrCodeMalformedPayload     = "STORE_MALFORMED_PAYLOAD"
	ErrCodeMalformedMetadata    = "METADATA_MALFORMED"
	ErrCodeDocumentNotFound     = "METADATA_NOT_FOUND"
	ErrCodeUnresolvedBinding    = "TOPOLOGY_UNRESOLVED"
	ErrCodeWorkflowNotFound     = "AIW_NOT_FOUND"
	ErrCodeWorkflowNotInCatalog = "AIW_NOT_IN_CATALOG"
	ErrCodeBringUpFailed        = "AIW_BRING_UP_FAILED"
	ErrCodeCatalogSealed        = "CATALOG_SEALED"
	ErrCodeDuplicateEntry       = "CATALOG_DUPLICATE_ENTRY"
	ErrCodeInvalidConfig        = "CONFIG_INVALID"
)

var (
	ErrNilAIM = apperrors.New("aim is nil", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeNilAIM)
	ErrAIMDestroyed = apperrors.New("aim has been destroyed", apperrors.CategoryConflict).
			WithTextCode(ErrCodeAIMDestroyed)
	ErrInvalidTransition = apperrors.New("invalid lifecycle transition", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidTransition)
	ErrLifecycleFailed = apperrors.New("aim lifecycle callback failed", apperrors.CategoryHandler).
				WithTextCode(ErrCodeLifecycleFailed)
	ErrAIMNotFound = apperrors.New("aim not found", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeAIMNotFound)
	ErrAIMNotInCatalog = apperrors.New("aim not registered in catalog", apperrors.CategoryValidation).
				WithTextCode(ErrCodeAIMNotInCatalog)
	ErrCreationSkipped = apperrors.New("aim creation skipped", apperrors.CategoryValidation).
				WithTextCode(ErrCodeCreationSkipped)

	ErrNilStore = apperrors.New("message store is nil", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeNilStore)
	ErrStoreClosed = apperrors.New("message store destroyed", apperrors.CategoryConflict).
			WithTextCode(ErrCodeStoreClosed)
	ErrInvalidIdentity = apperrors.New("subscriber identity is empty", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidIdentity)
	ErrInvalidChannel = apperrors.New("channel is not valid", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidChannel)
	ErrCapacityExceeded = apperrors.New("subscriber table is full", apperrors.CategoryConflict).
				WithTextCode(ErrCodeCapacityExceeded)
	ErrDuplicateRegistration = apperrors.New("subscriber already registered on channel", apperrors.CategoryConflict).
					WithTextCode(ErrCodeDuplicateRegistry)
	ErrNotRegistered = apperrors.New("subscriber not registered on channel", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeNotRegistered)
	ErrMessageTooLarge = apperrors.New("message exceeds topic size", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeMessageTooLarge)
	ErrNoMessage = apperrors.New("no pending message", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeNoMessage)
	ErrMalformedPayload = apperrors.New("malformed message payload", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeMalformedPayload)

	ErrMalformedMetadata = apperrors.New("malformed metadata document", apperrors.CategoryValidation).
				WithTextCode(ErrCodeMalformedMetadata)
	ErrDocumentNotFound = apperrors.New("metadata document not found", apperrors.CategoryExternal).
				WithTextCode(ErrCodeDocumentNotFound)
	ErrUnresolvedBinding = apperrors.New("unresolved topology binding", apperrors.CategoryValidation).
				WithTextCode(ErrCodeUnresolvedBinding)

	ErrWorkflowNotFound = apperrors.New("workflow not found", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeWorkflowNotFound)
	ErrWorkflowNotInCatalog = apperrors.New("workflow not registered in catalog", apperrors.CategoryValidation).
				WithTextCode(ErrCodeWorkflowNotInCatalog)
	ErrBringUpFailed = apperrors.New("workflow bring-up failed", apperrors.CategoryHandler).
				WithTextCode(ErrCodeBringUpFailed)

	ErrCatalogSealed = apperrors.New("catalog already initialized", apperrors.CategoryConflict).
				WithTextCode(ErrCodeCatalogSealed)
	ErrDuplicateEntry = apperrors.New("catalog entry already registered", apperrors.CategoryConflict).
				WithTextCode(ErrCodeDuplicateEntry)
	ErrInvalidConfig = apperrors.New("invalid configuration", apperrors.CategoryValidation).
				WithTextCode(ErrCodeInvalidConfig)
)

// CloneError copies a sentinel and attaches call-site detail.
func CloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrBringUpFailed
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode returns the text code of the first go-errors value in the chain.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// HasCode reports whether any error in the chain carries code.
// Joined errors are walked as well.
func HasCode(err error, code string) bool {
	if err == nil || code == "" {
		return false
	}
	var ge *apperrors.Error
	if stderrors.As(err, &ge) && ge.TextCode == code {
		return true
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(e.Unwrap(), code)
	}
	if ge != nil && ge.Source != nil && ge.Source != err {
		return HasCode(ge.Source, code)
	}
	return false
}
