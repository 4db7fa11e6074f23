package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditexport/internal/repository"
)

func TestOwnerPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOwnerPostgres(db)
	cols := []string{"id", "name", "street", "postal_code", "city", "country", "contact", "comment"}

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM owners WHERE id = ?").
			WithArgs("org-1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("org-1", "Org GmbH", "Main 1", "10115", "Berlin", "DE", "tax@org.example", ""))

		o, err := repo.FindByID(context.Background(), "org-1")

		require.NoError(t, err)
		assert.Equal(t, "Org GmbH", o.Name)
		assert.Equal(t, "Berlin", o.City)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM owners WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		o, err := repo.FindByID(context.Background(), "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, o)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
