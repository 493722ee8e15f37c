package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotListingFeed reads crawler output from JSON snapshot files in a
// directory: complexes.json and listings.json, each a flat array of records.
type SnapshotListingFeed struct {
	dir        string
	sourceType string
}

// NewSnapshotListingFeed creates a snapshot-backed listing feed.
func NewSnapshotListingFeed(dir, sourceType string) *SnapshotListingFeed {
	return &SnapshotListingFeed{dir: dir, sourceType: sourceType}
}

// SourceType returns the tag written into source mappings.
func (f *SnapshotListingFeed) SourceType() string { return f.sourceType }

// Complexes reads the complex snapshot array.
func (f *SnapshotListingFeed) Complexes(ctx context.Context) ([]ComplexRecord, error) {
	var records []ComplexRecord
	if err := readSnapshot(filepath.Join(f.dir, "complexes.json"), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Listings reads the listing snapshot array.
func (f *SnapshotListingFeed) Listings(ctx context.Context) ([]ListingRecord, error) {
	var records []ListingRecord
	if err := readSnapshot(filepath.Join(f.dir, "listings.json"), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SnapshotTransactionFeed reads government feed output from transactions.json.
type SnapshotTransactionFeed struct {
	dir        string
	sourceType string
}

// NewSnapshotTransactionFeed creates a snapshot-backed transaction feed.
func NewSnapshotTransactionFeed(dir, sourceType string) *SnapshotTransactionFeed {
	return &SnapshotTransactionFeed{dir: dir, sourceType: sourceType}
}

// SourceType returns the tag written into source mappings.
func (f *SnapshotTransactionFeed) SourceType() string { return f.sourceType }

// Transactions reads the transaction snapshot array.
func (f *SnapshotTransactionFeed) Transactions(ctx context.Context) ([]TransactionRecord, error) {
	var records []TransactionRecord
	if err := readSnapshot(filepath.Join(f.dir, "transactions.json"), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func readSnapshot(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return nil
}
