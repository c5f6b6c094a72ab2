package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndHasCode(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		base := New(CodeNotFound, "vendor not found")
		err := fmt.Errorf("load vendor: %w", base)
		assert.True(t, HasCode(err, CodeNotFound))
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("inner codes are visible through outer codes", func(t *testing.T) {
		cause := errors.New("connection reset")
		inner := Wrap(cause, CodeUnavailable, "store unavailable")
		outer := Wrap(inner, CodeInternal, "run failed")

		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeUnavailable))
		assert.False(t, HasCode(outer, CodeConflict))
		require.ErrorIs(t, outer, cause)
		assert.Equal(t, "run failed: store unavailable: connection reset", outer.Error())
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}
