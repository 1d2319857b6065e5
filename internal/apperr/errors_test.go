package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", Validation("caption", "too long"), ErrValidation},
		{"not found", NotFound("social page", 7), ErrNotFound},
		{"platform", PlatformAPI("tiktok", 400, `{"error":"bad"}`), ErrPlatformAPI},
		{"auth", Auth("pinterest", "token expired"), ErrAuth},
		{"encryption", Encryption("decrypt", errors.New("message authentication failed")), ErrEncryption},
		{"not supported", NotSupported("tiktok", "getBoards"), ErrNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("publish: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestPlatformAPIErrorKeepsDetail(t *testing.T) {
	err := fmt.Errorf("wrap: %w", PlatformAPI("linkedin", 422, "invalid author"))

	var apiErr *PlatformAPIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "linkedin", apiErr.Platform)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "invalid author", apiErr.Detail)
	assert.Equal(t, "linkedin api error (status 422): invalid author", apiErr.Error())
}

func TestEncryptionErrorUnwraps(t *testing.T) {
	cause := errors.New("bad tag")
	err := Encryption("decrypt", cause)

	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrAuth)
}
