package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fjod/go_bookstore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateCommand_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bookstore.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("MIGRATIONS_PATH", "../../internal/repository/migrations")

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.Execute())

	repo, err := repository.NewRepository(&repository.Credentials{
		Driver:     repository.DriverSQLite,
		SQLitePath: dbPath,
	})
	require.NoError(t, err)
	defer repo.Close()

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestServeCommand_RequiresGatewayKeys(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("STORAGE_BUCKET", "")
	t.Setenv("BREVO_KEY", "")

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
}
