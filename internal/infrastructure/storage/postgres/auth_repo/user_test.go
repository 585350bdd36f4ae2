package auth_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"navgate/internal/domain/auth"
	"navgate/internal/infrastructure/storage/postgres"
)

// Every column the repository selects must have a backing field on the
// model; a column without one cannot be scanned.
func TestUserColumnsMatchModel(t *testing.T) {
	known := map[string]bool{}
	for _, col := range postgres.ExtractDBColumns[auth.User]() {
		known[col] = true
	}

	for _, col := range userColumns {
		assert.True(t, known[col], "users column %q has no field on auth.User", col)
	}
}
