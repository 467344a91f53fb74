package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// CSVLookup refreshes the reference table from the staged CSV: it reads the
// object, parses it and hands the rows to the store in one reload.
type CSVLookup struct {
	source ObjectReader
	key    string
	store  LookupLoader
}

// NewCSVLookup creates a refresher that reads key from source.
func NewCSVLookup(source ObjectReader, key string, store LookupLoader) *CSVLookup {
	return &CSVLookup{source: source, key: key, store: store}
}

// Refresh rebuilds the reference table and returns the number of rows loaded.
func (l *CSVLookup) Refresh(ctx context.Context) (int, error) {
	rc, err := l.source.Open(ctx, l.key)
	if err != nil {
		return 0, fmt.Errorf("open lookup source %s: %w", l.key, err)
	}
	defer rc.Close()

	records, err := domain.ParseLookupCSV(rc)
	if err != nil {
		return 0, fmt.Errorf("parse lookup source %s: %w", l.key, err)
	}
	if err := l.store.ReloadLookup(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ServerSideImporter loads an S3 object into the reference table without the
// bytes passing through this process.
type ServerSideImporter interface {
	ImportLookupFromS3(ctx context.Context, bucket, key, region string) error
}

// S3ImportLookup refreshes the reference table with the database's own S3
// import.
type S3ImportLookup struct {
	importer ServerSideImporter
	bucket   string
	key      string
	region   string
}

// NewS3ImportLookup creates a server-side refresher for s3://bucket/key.
func NewS3ImportLookup(importer ServerSideImporter, bucket, key, region string) *S3ImportLookup {
	return &S3ImportLookup{importer: importer, bucket: bucket, key: key, region: region}
}

// Refresh imports the object. The database does not report a row count, so
// the result is always -1 on success.
func (l *S3ImportLookup) Refresh(ctx context.Context) (int, error) {
	if err := l.importer.ImportLookupFromS3(ctx, l.bucket, l.key, l.region); err != nil {
		return 0, err
	}
	return -1, nil
}
