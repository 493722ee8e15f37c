package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSnapshotListingFeed_ReadsArrays(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "complexes.json", `[
		{"source_id": "n-1", "name": "래미안 원베일리", "latitude": "37.5066", "longitude": "127.0037"}
	]`)
	writeSnapshot(t, dir, "listings.json", `[
		{"source_id": "l-1", "complex_source_id": "n-1", "deal_type": "매매", "price_sale": "420,000"}
	]`)

	feed := NewSnapshotListingFeed(dir, "naver")
	assert.Equal(t, "naver", feed.SourceType())

	complexes, err := feed.Complexes(context.Background())
	require.NoError(t, err)
	require.Len(t, complexes, 1)
	assert.Equal(t, "래미안 원베일리", complexes[0].Name)

	listings, err := feed.Listings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "n-1", listings[0].ComplexSourceID)
}

func TestSnapshotListingFeed_MissingFile(t *testing.T) {
	feed := NewSnapshotListingFeed(t.TempDir(), "naver")
	_, err := feed.Complexes(context.Background())
	assert.Error(t, err)
}

func TestSnapshotTransactionFeed(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "transactions.json", `[
		{"source_id": "t-1", "region_name": "서울특별시 서초구", "apartment_name": "래미안 원베일리",
		 "deal_type": "매매", "deal_year": "2026", "deal_month": "6", "deal_day": "15"}
	]`)

	feed := NewSnapshotTransactionFeed(dir, "molit")
	transactions, err := feed.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "2026", transactions[0].DealYear)
}

func TestSnapshotFeed_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "transactions.json", `{not json`)

	feed := NewSnapshotTransactionFeed(dir, "molit")
	_, err := feed.Transactions(context.Background())
	assert.Error(t, err)
}
