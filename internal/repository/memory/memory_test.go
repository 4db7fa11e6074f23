package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

var base = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func newJob(id, owner string, created time.Time) *model.ExportJob {
	return &model.ExportJob{
		ID:        id,
		OwnerID:   owner,
		Status:    model.StatusPending,
		CreatedAt: created,
		ExpiresAt: created.AddDate(0, 0, 30),
	}
}

func TestExportMemory_CreateFind(t *testing.T) {
	m := NewExportMemory()
	ctx := context.Background()

	_, err := m.Create(ctx, newJob("a", "org-1", base))
	require.NoError(t, err)
	_, err = m.Create(ctx, newJob("a", "org-1", base))
	assert.Error(t, err)

	got, err := m.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)

	_, err = m.FindByID(ctx, "b")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExportMemory_UpdateGuardsTransitions(t *testing.T) {
	m := NewExportMemory()
	ctx := context.Background()
	_, err := m.Create(ctx, newJob("a", "org-1", base))
	require.NoError(t, err)

	_, err = m.Update(ctx, "a", repository.JobUpdate{Status: model.StatusReady})
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	_, err = m.Update(ctx, "a", repository.JobUpdate{Status: model.StatusProcessing})
	require.NoError(t, err)

	size := int64(42)
	done := base.Add(time.Minute)
	md := &model.ExportMetadata{FileSize: size, TableRowCounts: map[string]int{"accounts": 1}}
	got, err := m.Update(ctx, "a", repository.JobUpdate{Status: model.StatusReady, CompletedAt: &done, FileSize: &size, Metadata: md})
	require.NoError(t, err)
	assert.Equal(t, size, got.FileSize)

	// Stored state is isolated from caller mutation.
	md.TableRowCounts["accounts"] = 99
	got.Metadata.TableRowCounts["accounts"] = 98
	again, err := m.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Metadata.TableRowCounts["accounts"])

	_, err = m.Update(ctx, "missing", repository.JobUpdate{Status: model.StatusDeleted})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExportMemory_ListByOwner(t *testing.T) {
	m := NewExportMemory()
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		_, err := m.Create(ctx, newJob(id, "org-1", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := m.Create(ctx, newJob("x", "org-2", base))
	require.NoError(t, err)

	res, err := m.ListByOwner(ctx, "org-1", repository.PageQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "c", res.Items[0].ID)
	assert.Equal(t, "b", res.Items[1].ID)

	res, err = m.ListByOwner(ctx, "", repository.PageQuery{Limit: 10, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Len(t, res.Items, 1)
}

func TestExportMemory_FindExpired(t *testing.T) {
	m := NewExportMemory()
	ctx := context.Background()
	_, _ = m.Create(ctx, newJob("old", "org-1", base.AddDate(0, 0, -40)))
	_, _ = m.Create(ctx, newJob("edge", "org-1", base.AddDate(0, 0, -30)))
	_, _ = m.Create(ctx, newJob("new", "org-1", base))

	expired, err := m.FindExpired(ctx, base)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, "old", expired[0].ID)
	assert.Equal(t, "edge", expired[1].ID)
}

func TestExportMemory_FindByStatus(t *testing.T) {
	m := NewExportMemory()
	ctx := context.Background()
	_, _ = m.Create(ctx, newJob("late", "org-1", base.Add(time.Hour)))
	_, _ = m.Create(ctx, newJob("early", "org-2", base))
	_, _ = m.Create(ctx, newJob("done", "org-1", base))
	_, err := m.Update(ctx, "done", repository.JobUpdate{Status: model.StatusFailed})
	require.NoError(t, err)
	_, err = m.Update(ctx, "late", repository.JobUpdate{Status: model.StatusProcessing})
	require.NoError(t, err)

	jobs, err := m.FindByStatus(ctx, model.StatusPending, model.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "early", jobs[0].ID)
	assert.Equal(t, "late", jobs[1].ID)

	jobs, err = m.FindByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestLedgerMemory_PeriodFilter(t *testing.T) {
	l := NewLedgerMemory()
	p := model.Period{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)}
	l.Put("org-1", Ledger{
		Transactions: []model.Transaction{
			{ID: "before", BookingDate: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
			{ID: "first", BookingDate: p.Start},
			{ID: "last", BookingDate: time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC)},
			{ID: "after", BookingDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	})

	txs, err := l.Transactions(context.Background(), "org-1", p)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "first", txs[0].ID)
	assert.Equal(t, "last", txs[1].ID)

	accounts, err := l.Accounts(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestDocumentMemory_ListForExport(t *testing.T) {
	d := NewDocumentMemory()
	ctx := context.Background()
	p := model.Period{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)}
	in := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, doc := range []model.Document{
		{ID: "1", OwnerID: "org-1", Category: model.CategoryReceipts, CreatedAt: in},
		{ID: "2", OwnerID: "org-1", Category: model.CategoryInvoices, CreatedAt: in},
		{ID: "3", OwnerID: "org-1", Category: model.CategoryContracts, CreatedAt: in},
		{ID: "4", OwnerID: "org-2", Category: model.CategoryInvoices, CreatedAt: in},
		{ID: "5", OwnerID: "org-1", Category: model.CategoryInvoices, CreatedAt: in.AddDate(2, 0, 0)},
	} {
		doc := doc
		_, err := d.Create(ctx, &doc)
		require.NoError(t, err)
	}

	docs, err := d.ListForExport(ctx, "org-1", p, []model.DocumentCategory{model.CategoryInvoices, model.CategoryReceipts})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2", docs[0].ID)
	assert.Equal(t, "1", docs[1].ID)

	require.NoError(t, d.Delete(ctx, "2"))
	require.NoError(t, d.Delete(ctx, "2"))
	_, err = d.FindByID(ctx, "2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
