package repository

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// Reads after the spot lock must observe rows the previous holder
// committed, which REPEATABLE READ does not guarantee once the unit of
// work has already read before locking.
func TestTxOptions_readCommitted(t *testing.T) {
	require.NotNil(t, txOptions)
	require.Equal(t, sql.LevelReadCommitted, txOptions.Isolation)
	require.False(t, txOptions.ReadOnly)
}
