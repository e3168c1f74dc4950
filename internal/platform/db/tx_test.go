package db

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestReadCommittedTakesPerStatementSnapshots(t *testing.T) {
	// Lock-then-read sequences rely on the read after the owner lock seeing
	// the previous lock holder's commit. Only read committed gives each
	// statement a fresh snapshot; repeatable read pins the snapshot before
	// the lock wait and the post-lock read would be stale.
	assert.Equal(t, pgx.ReadCommitted, ReadCommitted.IsoLevel)
	assert.Empty(t, ReadCommitted.AccessMode, "read-write transactions")
}
