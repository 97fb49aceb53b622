package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncTypePayload struct {
	SyncType string `json:"sync_type" binding:"required,synctype"`
}

func TestSetupValidator_SyncTypeTag(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	assert.NoError(t, v.Struct(syncTypePayload{SyncType: "PRODUCT"}))
	assert.NoError(t, v.Struct(syncTypePayload{SyncType: "PROPERTY"}))
	assert.NoError(t, v.Struct(syncTypePayload{SyncType: "PARENT"}))
	assert.Error(t, v.Struct(syncTypePayload{SyncType: "EVERYTHING"}))
	assert.Error(t, v.Struct(syncTypePayload{}))
}

func TestSetupValidator_UsesJSONFieldNames(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	err := v.Struct(syncTypePayload{SyncType: "EVERYTHING"})
	require.Error(t, err)

	validationErrors, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	require.Len(t, validationErrors, 1)
	assert.Equal(t, "sync_type", validationErrors[0].Field())
}
