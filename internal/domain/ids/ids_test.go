package ids

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testULID = "01HYX3KQW7ERTV9XNBM2P8QJZF"

func TestNewULIDReturnsValid(t *testing.T) {
	value, err := NewULID()

	require.NoError(t, err)
	created, err := ULIDTime(value)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), created, time.Minute)
}

func TestNewULIDIsMonotonicAcrossCalls(t *testing.T) {
	first, err := NewULID()
	require.NoError(t, err)
	second, err := NewULID()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestULIDTime(t *testing.T) {
	_, err := ULIDTime(" " + testULID + " ")
	require.NoError(t, err)
	_, err = ULIDTime(strings.ToLower(testULID))
	require.NoError(t, err)

	_, err = ULIDTime("not-a-ulid")
	require.ErrorIs(t, err, ErrInvalidULID)
}

func TestValidateEventID(t *testing.T) {
	valid := []string{"42", "65f1c0ffee0123456789abcd", testULID, "evt_01:a.b-c"}
	for _, id := range valid {
		require.NoError(t, ValidateEventID(id), id)
	}

	require.ErrorIs(t, ValidateEventID(""), ErrEmptyEventID)
	require.ErrorIs(t, ValidateEventID("   "), ErrEmptyEventID)
	require.ErrorIs(t, ValidateEventID("../admin"), ErrInvalidEventID)
	require.ErrorIs(t, ValidateEventID("a b"), ErrInvalidEventID)
	require.ErrorIs(t, ValidateEventID("id?x=1"), ErrInvalidEventID)
	require.ErrorIs(t, ValidateEventID(strings.Repeat("a", 129)), ErrInvalidEventID)
}

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.NotEqual(t, id, NewRequestID())
}
