package incidents

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ImportSummary reports the outcome of one dataset load.
type ImportSummary struct {
	Parsed   int
	Skipped  int
	Inserted int
}

// ImporterParams carries the dependencies for the importer.
type ImporterParams struct {
	Repo Repository
	Tx   txRunner
}

// Importer replaces the incident dataset from a CSV export. The whole load
// runs in one transaction so readers never observe a half-imported table.
type Importer struct {
	repo Repository
	tx   txRunner
}

func NewImporter(params ImporterParams) (*Importer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("importer requires a repository")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("importer requires a tx runner")
	}
	return &Importer{repo: params.Repo, tx: params.Tx}, nil
}

// Expected CSV column order. A header row is detected and skipped.
const (
	colPostalCode = iota
	colBlock
	colLocation
	colDateReported
	colIncidentSummary
	colSourceURL
	minColumns = 5
)

// ImportCSV parses the reader and replaces all incident rows.
func (i *Importer) ImportCSV(ctx context.Context, r io.Reader) (ImportSummary, error) {
	rows, summary, err := parseCSV(r)
	if err != nil {
		return ImportSummary{}, err
	}

	err = i.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := i.repo.WithTx(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clearing incidents: %w", err)
		}
		if err := repo.InsertBatch(ctx, rows); err != nil {
			return fmt.Errorf("inserting incidents: %w", err)
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}

	summary.Inserted = len(rows)
	return summary, nil
}

func parseCSV(r io.Reader) ([]models.Incident, ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []models.Incident
	var summary ImportSummary
	first := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ImportSummary{}, fmt.Errorf("reading csv: %w", err)
		}

		if first {
			first = false
			if looksLikeHeader(record) {
				continue
			}
		}

		if len(record) < minColumns {
			summary.Skipped++
			continue
		}

		postalCode := strings.TrimSpace(record[colPostalCode])
		if postalCode == "" {
			summary.Skipped++
			continue
		}

		location := strings.TrimSpace(field(record, colLocation))
		rows = append(rows, models.Incident{
			PostalCode:         postalCode,
			Block:              strings.TrimSpace(field(record, colBlock)),
			Location:           location,
			LocationNormalized: NormalizeAddress(location),
			DateReported:       strings.TrimSpace(field(record, colDateReported)),
			IncidentSummary:    strings.TrimSpace(field(record, colIncidentSummary)),
			SourceURL:          strings.TrimSpace(field(record, colSourceURL)),
		})
		summary.Parsed++
	}

	return rows, summary, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return record[idx]
}

func looksLikeHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	head := strings.ToLower(strings.TrimSpace(record[0]))
	return head == "postal_code" || head == "postalcode" || head == "postal code"
}
