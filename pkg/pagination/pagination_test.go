package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-5))
	require.Equal(t, 42, NormalizeLimit(42))
	require.Equal(t, MaxLimit, NormalizeLimit(500))
	require.Equal(t, DefaultLimit+1, LimitWithBuffer(0))
}

func TestHasMore(t *testing.T) {
	require.True(t, HasMore(21, 20))
	require.False(t, HasMore(20, 20))
	require.False(t, HasMore(0, 20))
}

func TestCursorRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.New()

	encoded := EncodeCursor(Cursor{CreatedAt: now, ID: id})
	parsed, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	require.True(t, parsed.CreatedAt.Equal(now))
	require.Equal(t, id, parsed.ID)
}

func TestParseCursorEmpty(t *testing.T) {
	parsed, err := ParseCursor("   ")
	require.NoError(t, err)
	require.Nil(t, parsed)
}

func TestParseCursorInvalid(t *testing.T) {
	_, err := ParseCursor("not-base64!!")
	require.Error(t, err)

	_, err = ParseCursor("bm8tcGlwZQ==") // "no-pipe"
	require.Error(t, err)
}
