package decoder

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"
)

// Decoder decodes CSV listings files.
type Decoder struct{}

// Decode decodes listings from csvFile. Rows with missing trailing cells are accepted.
func (d Decoder) Decode(ctx context.Context, csvFile io.Reader) ([]models.Listing, error) {
	reader := csv.NewReader(csvFile)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	record, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("can't read header: %w", err)
	}

	head := newHeader(record)
	if len(head) == 0 {
		return nil, ErrMissingHeader
	}

	var listings []models.Listing
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("can't read row %d: %w", len(listings)+1, err)
		}
		if isBlank(record) {
			continue
		}

		listings = append(listings, head.toListing(len(listings), record))
	}

	if len(listings) == 0 {
		return nil, ErrEmptyFile
	}

	return listings, nil
}

// DecodeFile decodes listings file at path into a source identified by the file's SHA-256 digest.
func (d Decoder) DecodeFile(ctx context.Context, path string) (*models.ListingSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open listings file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	listings, err := d.Decode(ctx, io.TeeReader(file, hash))
	if err != nil {
		return nil, err
	}

	// drain what csv reader left unread so the digest covers the whole file.
	if _, err := io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("can't read listings file: %w", err)
	}

	return models.NewListingSource(listings, hex.EncodeToString(hash.Sum(nil))), nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}

	return true
}
