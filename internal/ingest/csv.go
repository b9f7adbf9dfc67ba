package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// Column names are matched after lowercasing and stripping separators,
// so "Move Date", "move_date" and "MOVE-DATE" all resolve to the same
// column.
var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

func parseMoveDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ReadSales parses a sales history CSV into observations. The file must
// carry move_date, product_code and qty_sold columns (matched loosely,
// extra columns are ignored). Rows with blank product codes are
// skipped; rows with unparseable dates or quantities are skipped with a
// warning so one bad export line does not sink the whole load. Negative
// quantities are rejected outright since they indicate a returns feed
// that was not cleaned upstream.
func ReadSales(r io.Reader) ([]domain.SalesObservation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx, codeIdx, qtyIdx := -1, -1, -1
	for i, h := range header {
		switch normalizeColumnName(h) {
		case "movedate", "date":
			dateIdx = i
		case "productcode", "sku":
			codeIdx = i
		case "qtysold", "qty", "quantity":
			qtyIdx = i
		}
	}
	for _, missing := range []struct {
		idx  int
		name string
	}{
		{dateIdx, "move_date"},
		{codeIdx, "product_code"},
		{qtyIdx, "qty_sold"},
	} {
		if missing.idx == -1 {
			return nil, fmt.Errorf("column %s: %w", missing.name, domain.ErrMissingColumn)
		}
	}

	var (
		observations []domain.SalesObservation
		line         = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping malformed csv row")
			continue
		}
		if codeIdx >= len(record) || dateIdx >= len(record) || qtyIdx >= len(record) {
			continue
		}

		code := strings.TrimSpace(record[codeIdx])
		if code == "" {
			continue
		}

		moveDate, err := parseMoveDate(record[dateIdx])
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping row with bad date")
			continue
		}

		rawQty := strings.ReplaceAll(strings.TrimSpace(record[qtyIdx]), ",", "")
		qty, err := strconv.ParseFloat(rawQty, 64)
		if err != nil {
			log.Warn().Int("line", line).Str("qty", rawQty).Msg("skipping row with bad quantity")
			continue
		}
		if qty < 0 {
			return nil, fmt.Errorf("line %d: negative quantity %.2f for %s", line, qty, code)
		}

		observations = append(observations, domain.SalesObservation{
			ProductCode: code,
			MoveDate:    moveDate,
			QtySold:     qty,
		})
	}

	return observations, nil
}

// ReadInventory parses a stock snapshot CSV. Required columns are
// product_code and available_stock; location and snapshot_date are
// optional and default to "" and the current day.
func ReadInventory(r io.Reader, now time.Time) ([]domain.InventorySnapshot, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	codeIdx, stockIdx, locIdx, dateIdx := -1, -1, -1, -1
	for i, h := range header {
		switch normalizeColumnName(h) {
		case "productcode", "sku":
			codeIdx = i
		case "availablestock", "stock", "qtyonhand":
			stockIdx = i
		case "location", "store":
			locIdx = i
		case "snapshotdate", "date":
			dateIdx = i
		}
	}
	if codeIdx == -1 {
		return nil, fmt.Errorf("column product_code: %w", domain.ErrMissingColumn)
	}
	if stockIdx == -1 {
		return nil, fmt.Errorf("column available_stock: %w", domain.ErrMissingColumn)
	}

	var snapshots []domain.InventorySnapshot
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if codeIdx >= len(record) || stockIdx >= len(record) {
			continue
		}

		code := strings.TrimSpace(record[codeIdx])
		if code == "" {
			continue
		}
		stock, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(record[stockIdx]), ",", ""), 64)
		if err != nil {
			continue
		}

		snap := domain.InventorySnapshot{
			ProductCode:    code,
			AvailableStock: stock,
			SnapshotDate:   now.UTC().Truncate(24 * time.Hour),
		}
		if locIdx != -1 && locIdx < len(record) {
			snap.Location = strings.TrimSpace(record[locIdx])
		}
		if dateIdx != -1 && dateIdx < len(record) {
			if d, err := parseMoveDate(record[dateIdx]); err == nil {
				snap.SnapshotDate = d
			}
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}
