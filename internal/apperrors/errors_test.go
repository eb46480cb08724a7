package apperrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamError_Is(t *testing.T) {
	gen := Generation("complete", 502, New("bad gateway"))
	pub := Publication("create pull request", 0, New("timeout"))

	assert.True(t, Is(gen, ErrGeneration))
	assert.False(t, Is(gen, ErrPublication))
	assert.True(t, Is(pub, ErrPublication))
	assert.False(t, Is(pub, ErrGeneration))

	wrapped := fmt.Errorf("generate %q: %w", "some-slug", gen)
	assert.True(t, Is(wrapped, ErrGeneration))
	assert.True(t, IsUpstream(wrapped))
	assert.Contains(t, gen.Error(), "status 502")
}

func TestStoreError_Is(t *testing.T) {
	err := Store("get", "idea:foo", New("connection refused"))
	assert.True(t, Is(err, ErrStoreUnavailable))
	assert.Contains(t, err.Error(), "idea:foo")
	assert.Nil(t, Store("get", "idea:foo", nil))
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", NewValidationError(CodeInvalidTag, "tags", "bad tag", "x"), true},
		{"wrapped not found", fmt.Errorf("set status: %w", ErrNotFound), true},
		{"rate limited", ErrRateLimited, true},
		{"store", Store("put", "k", New("boom")), false},
		{"upstream", Generation("complete", 0, New("boom")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUserFacing(tt.err))
		})
	}
}
