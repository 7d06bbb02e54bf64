package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"domusreport/server/internal/models"
)

// Loader reads the price reference table from a CSV file and keeps it in
// memory until the TTL expires. Concurrent cache misses may both trigger a
// reload; that is harmless because loading performs no writes.
type Loader struct {
	logger *logrus.Logger
	path   string
	ttl    time.Duration

	mu       sync.RWMutex
	records  []models.ReferenceRecord
	loadedAt time.Time

	now func() time.Time
}

// NewLoader creates a loader for the reference table at path.
func NewLoader(logger *logrus.Logger, path string, ttl time.Duration) *Loader {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Loader{
		logger: logger,
		path:   path,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Load returns all reference records. A call within the TTL window returns
// the cached slice without re-reading the file. A missing file is a valid
// "no data" state and yields an empty slice; a file that exists but cannot
// be parsed is an error.
func (l *Loader) Load() ([]models.ReferenceRecord, error) {
	l.mu.RLock()
	if l.records != nil && l.now().Sub(l.loadedAt) < l.ttl {
		records := l.records
		l.mu.RUnlock()
		return records, nil
	}
	l.mu.RUnlock()

	return l.reload()
}

// Invalidate drops the cached dataset so the next Load re-reads the file.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.records = nil
	l.loadedAt = time.Time{}
	l.mu.Unlock()
}

func (l *Loader) reload() ([]models.ReferenceRecord, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.WithField("path", l.path).Warn("Reference dataset not found, continuing without data")
			l.store([]models.ReferenceRecord{})
			return []models.ReferenceRecord{}, nil
		}
		return nil, fmt.Errorf("failed to open reference dataset: %w", err)
	}
	defer file.Close()

	records, err := parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference dataset %s: %w", l.path, err)
	}

	l.logger.WithFields(logrus.Fields{
		"path":    l.path,
		"records": len(records),
	}).Info("Loaded reference dataset")

	l.store(records)
	return records, nil
}

func (l *Loader) store(records []models.ReferenceRecord) {
	l.mu.Lock()
	l.records = records
	l.loadedAt = l.now()
	l.mu.Unlock()
}

// parse reads CSV rows with columns: city, zone, postal_code, property_kind,
// category, min_price_sqm, avg_price_sqm, max_price_sqm, year, half, source.
// A header row is detected and skipped.
func parse(r io.Reader) ([]models.ReferenceRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var records []models.ReferenceRecord
	for i, row := range rows {
		if len(row) < 11 {
			return nil, fmt.Errorf("row %d: expected 11 columns, got %d", i+1, len(row))
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "city") {
			continue
		}

		minPrice, err := parsePrice(row[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid min price: %w", i+1, err)
		}
		avgPrice, err := parsePrice(row[6])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid avg price: %w", i+1, err)
		}
		maxPrice, err := parsePrice(row[7])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid max price: %w", i+1, err)
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[8]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid year: %w", i+1, err)
		}
		half, err := strconv.Atoi(strings.TrimSpace(row[9]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid half: %w", i+1, err)
		}

		records = append(records, models.ReferenceRecord{
			City:           strings.TrimSpace(row[0]),
			Zone:           strings.TrimSpace(row[1]),
			PostalCode:     strings.TrimSpace(row[2]),
			Kind:           models.PropertyKind(strings.ToLower(strings.TrimSpace(row[3]))),
			Category:       strings.TrimSpace(row[4]),
			MinPricePerSqm: minPrice,
			AvgPricePerSqm: avgPrice,
			MaxPricePerSqm: maxPrice,
			Period:         models.Period{Year: year, Half: half},
			Source:         strings.TrimSpace(row[10]),
		})
	}

	return records, nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative price %f", v)
	}
	return v, nil
}
