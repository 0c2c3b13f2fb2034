package store

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
)

// csvColumns is the column order written to new sheets
var csvColumns = []string{
	"id",
	"shop",
	"name",
	"price",
	"currency",
	"weight_grams",
	"weight_label",
	"stock_status",
	"description",
	"url",
	"roasted_at",
	"last_synced_at",
	"status",
	"last_error",
	"last_selected_at",
	"enrichment",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow keeps the item plus any columns this version does not know about
type csvRow struct {
	item  domain.Item
	extra map[string]string
}

// csvStore is a flat single-table store that mirrors a spreadsheet.
// Columns are located by header name; every write rewrites the file atomically.
type csvStore struct {
	mu     sync.Mutex
	path   string
	fs     adapter.FileSystem
	header []string
	rows   []*csvRow
	keys   map[string]int // item key -> index in rows
	ids    map[uint64]int // item id -> index in rows
	nextID uint64
}

// NewCSVStore opens or creates a CSV catalog at path
func NewCSVStore(path string, fs adapter.FileSystem) (Store, error) {
	s := &csvStore{
		path:   path,
		fs:     fs,
		keys:   make(map[string]int),
		ids:    make(map[uint64]int),
		nextID: 1,
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *csvStore) load() error {
	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.header = append([]string(nil), csvColumns...)
			return s.flush()
		}
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	br := bufio.NewReader(f)
	if first, _ := br.Peek(3); len(first) == 3 && first[0] == utf8BOM[0] && first[1] == utf8BOM[1] && first[2] == utf8BOM[2] {
		_, _ = br.Discard(3)
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.header = append([]string(nil), csvColumns...)
			return nil
		}
		return fmt.Errorf("failed to read catalog header: %w", err)
	}
	s.header = mergeHeader(header)

	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read catalog line %d: %w", line, err)
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				fields[strings.TrimSpace(name)] = record[i]
			}
		}

		row, err := parseCSVRow(fields)
		if err != nil {
			return fmt.Errorf("catalog line %d: %w", line, err)
		}
		if row.item.ID == 0 {
			row.item.ID = s.nextID
		}
		if _, dup := s.ids[row.item.ID]; dup {
			return fmt.Errorf("catalog line %d: duplicate id %d", line, row.item.ID)
		}
		if row.item.ID >= s.nextID {
			s.nextID = row.item.ID + 1
		}

		s.rows = append(s.rows, row)
		s.ids[row.item.ID] = len(s.rows) - 1
		s.keys[row.item.Key()] = len(s.rows) - 1
	}

	return nil
}

// mergeHeader keeps the existing column order and appends any missing known columns
func mergeHeader(header []string) []string {
	out := make([]string, 0, len(header)+len(csvColumns))
	seen := make(map[string]bool)
	for _, h := range header {
		h = strings.TrimSpace(h)
		out = append(out, h)
		seen[h] = true
	}
	for _, c := range csvColumns {
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

func parseCSVRow(fields map[string]string) (*csvRow, error) {
	row := &csvRow{extra: make(map[string]string)}
	known := make(map[string]bool, len(csvColumns))
	for _, c := range csvColumns {
		known[c] = true
	}
	for k, v := range fields {
		if !known[k] {
			row.extra[k] = v
		}
	}

	item := &row.item
	var err error
	if v := fields["id"]; v != "" {
		if item.ID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", v, err)
		}
	}
	item.Shop = fields["shop"]
	item.Name = fields["name"]
	if v := fields["price"]; v != "" {
		if item.Price.Amount, err = decimal.NewFromString(strings.TrimPrefix(v, "$")); err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", v, err)
		}
	}
	item.Price.Currency = fields["currency"]
	if v := fields["weight_grams"]; v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", v, err)
		}
		item.WeightGrams = &w
	}
	item.WeightLabel = fields["weight_label"]
	item.StockStatus = domain.StockStatus(fields["stock_status"])
	if item.StockStatus == "" {
		item.StockStatus = domain.StockInStock
	}
	item.Description = fields["description"]
	item.URL = fields["url"]
	if item.RoastedAt, err = parseOptionalTime(fields["roasted_at"]); err != nil {
		return nil, err
	}
	if t, err := parseOptionalTime(fields["last_synced_at"]); err != nil {
		return nil, err
	} else if t != nil {
		item.LastSyncedAt = *t
	}
	item.Status = domain.Status(fields["status"])
	if item.Status == "" {
		item.Status = domain.StatusPending
	}
	if v := fields["last_error"]; v != "" {
		item.LastError = &v
	}
	if item.LastSelectedAt, err = parseOptionalTime(fields["last_selected_at"]); err != nil {
		return nil, err
	}
	if item.Enrichment, err = decodeEnrichment([]byte(fields["enrichment"])); err != nil {
		return nil, err
	}

	return row, nil
}

func parseOptionalTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", v, err)
	}
	return &t, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *csvStore) encodeRow(row *csvRow) ([]string, error) {
	item := row.item
	enrichment, err := encodeEnrichment(item.Enrichment)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"id":               strconv.FormatUint(item.ID, 10),
		"shop":             item.Shop,
		"name":             item.Name,
		"price":            item.Price.Amount.StringFixed(2),
		"currency":         item.Price.Currency,
		"weight_label":     item.WeightLabel,
		"stock_status":     string(item.StockStatus),
		"description":      item.Description,
		"url":              item.URL,
		"roasted_at":       formatOptionalTime(item.RoastedAt),
		"last_synced_at":   formatOptionalTime(&item.LastSyncedAt),
		"status":           string(item.Status),
		"last_error":       domain.StringValue(item.LastError),
		"last_selected_at": formatOptionalTime(item.LastSelectedAt),
		"enrichment":       string(enrichment),
	}
	if item.WeightGrams != nil {
		fields["weight_grams"] = strconv.FormatFloat(*item.WeightGrams, 'f', -1, 64)
	}

	record := make([]string, len(s.header))
	for i, name := range s.header {
		if v, ok := fields[name]; ok {
			record[i] = v
		} else {
			record[i] = row.extra[name]
		}
	}
	return record, nil
}

// flush rewrites the whole sheet to a temp file, fsyncs it and renames it into place
func (s *csvStore) flush() error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	f, err := s.fs.CreateTemp(dir, ".catalog-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog: %w", err)
	}
	tmp := f.Name()
	cleanup := func() {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
	}

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(utf8BOM); err != nil {
		cleanup()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	w := csv.NewWriter(bw)
	if err := w.Write(s.header); err != nil {
		cleanup()
		return fmt.Errorf("failed to write catalog header: %w", err)
	}
	for _, row := range s.rows {
		record, err := s.encodeRow(row)
		if err != nil {
			cleanup()
			return err
		}
		if err := w.Write(record); err != nil {
			cleanup()
			return fmt.Errorf("failed to write catalog row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to close catalog: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}

// ListAll returns every item in scan order
func (s *csvStore) ListAll(ctx context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.Item, 0, len(s.rows))
	for _, row := range s.rows {
		items = append(items, row.item)
	}
	return items, nil
}

// FindByKey retrieves an item by its normalized shop and name
func (s *csvStore) FindByKey(ctx context.Context, shop, name string) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.keys[domain.ItemKey(shop, name)]
	if !ok {
		return nil, nil
	}
	item := s.rows[idx].item
	return &item, nil
}

// GetByID retrieves an item by its ID
func (s *csvStore) GetByID(ctx context.Context, id uint64) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.ids[id]
	if !ok {
		return nil, nil
	}
	item := s.rows[idx].item
	return &item, nil
}

// ListItems returns a filtered page of items and the total match count
func (s *csvStore) ListItems(ctx context.Context, filter ItemFilter) ([]domain.Item, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shop := domain.Normalize(filter.Shop)
	var matched []domain.Item
	for _, row := range s.rows {
		if filter.Status != nil && row.item.Status != *filter.Status {
			continue
		}
		if shop != "" && domain.Normalize(row.item.Shop) != shop {
			continue
		}
		matched = append(matched, row.item)
	}

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []domain.Item{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// Append adds a new row and assigns its ID
func (s *csvStore) Append(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := item.Key()
	if _, ok := s.keys[key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrItemExists, key)
	}

	row := &csvRow{item: *item, extra: map[string]string{}}
	row.item.ID = s.nextID
	s.rows = append(s.rows, row)

	if err := s.flush(); err != nil {
		s.rows = s.rows[:len(s.rows)-1]
		return err
	}

	s.nextID++
	s.keys[key] = len(s.rows) - 1
	s.ids[row.item.ID] = len(s.rows) - 1
	item.ID = row.item.ID
	return nil
}

// UpdateFields applies the non-nil fields of patch to one row
func (s *csvStore) UpdateFields(ctx context.Context, id uint64, patch ItemPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.ids[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrItemNotFound, id)
	}

	previous := s.rows[idx].item
	applyPatch(&s.rows[idx].item, patch)
	if err := s.flush(); err != nil {
		s.rows[idx].item = previous
		return err
	}
	return nil
}

func applyPatch(item *domain.Item, patch ItemPatch) {
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.StockStatus != nil {
		item.StockStatus = *patch.StockStatus
	}
	if patch.LastSyncedAt != nil {
		item.LastSyncedAt = patch.LastSyncedAt.UTC()
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}
	if patch.Enrichment != nil {
		e := *patch.Enrichment
		item.Enrichment = &e
	}
	if patch.WeightGrams != nil && item.WeightGrams == nil {
		w := *patch.WeightGrams
		item.WeightGrams = &w
	}
	if patch.LastError != nil {
		if *patch.LastError == "" {
			item.LastError = nil
		} else {
			e := *patch.LastError
			item.LastError = &e
		}
	}
	if patch.LastSelectedAt != nil {
		t := patch.LastSelectedAt.UTC()
		item.LastSelectedAt = &t
	}
}

// ResetStatus moves rows in the given statuses back to Pending
func (s *csvStore) ResetStatus(ctx context.Context, from []domain.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = resettable(from)
	if len(from) == 0 {
		return 0, nil
	}

	previous := make(map[int]domain.Item)
	for i, row := range s.rows {
		for _, st := range from {
			if row.item.Status == st {
				previous[i] = row.item
				row.item.Status = domain.StatusPending
				row.item.LastError = nil
				row.item.Enrichment = nil
				break
			}
		}
	}
	if len(previous) == 0 {
		return 0, nil
	}

	if err := s.flush(); err != nil {
		for i, item := range previous {
			s.rows[i].item = item
		}
		return 0, err
	}
	return int64(len(previous)), nil
}

// Stats returns catalog counters
func (s *csvStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := newStats()
	for _, row := range s.rows {
		stats.Total++
		stats.ByStatus[row.item.Status]++
		switch row.item.StockStatus {
		case domain.StockInStock:
			stats.InStock++
		case domain.StockSoldOut:
			stats.SoldOut++
		}
	}
	return stats, nil
}
