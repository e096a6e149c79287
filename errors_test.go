package formview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrorsErr(t *testing.T) {
	errs := FieldErrors{}
	assert.NoError(t, errs.Err(ErrorTypeValidation))

	errs.Set("b", MsgFieldRequired)
	errs.Set("a", MsgReferenceNotFound)
	err := errs.Err(ErrorTypeReference)
	require.Error(t, err)

	ve, ok := AsValidationError(fmt.Errorf("create: %w", err))
	require.True(t, ok)
	assert.True(t, ve.IsReferenceError())
	assert.Equal(t, []string{"a", "b"}, ve.Errors.Keys())
	assert.Equal(t, "[reference:VALIDATION_FAILED] a: Referenced submission not found; b: This field is required", ve.Error())

	errs.Set("c", "later")
	assert.NotContains(t, ve.Errors, "c")
}

func TestFieldErrorsMergeKeepsExisting(t *testing.T) {
	errs := FieldErrors{"a": "first"}
	errs.Merge(FieldErrors{"a": "second", "b": "other"})
	assert.Equal(t, FieldErrors{"a": "first", "b": "other"}, errs)
}

func TestErrorClassification(t *testing.T) {
	notFound := NewNotFoundError(ErrCodeFormNotFound, "Form", "x")
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", notFound)))
	assert.Equal(t, "[not_found:FORM_NOT_FOUND] Form not found", notFound.Error())

	cfg := NewConfigurationError(ErrCodeInvalidViewConfig, "no columns")
	assert.True(t, IsConfigurationError(cfg))
	assert.False(t, IsValidationError(cfg))

	cause := errors.New("boom")
	internal := NewInternalError("load failed", cause)
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(nil))

	mismatch := NewError(ErrorTypeValidation, ErrCodeSubmissionMismatch, MsgSubmissionFormMismatch)
	assert.True(t, IsValidationError(mismatch))
	assert.Equal(t, "[validation:SUBMISSION_FORM_MISMATCH] field 'x': "+MsgSubmissionFormMismatch, mismatch.WithField("x").Error())
}
