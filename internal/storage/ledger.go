package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/clockface-studio/photoclock/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Ledger persists cart orders to a single Parquet or JSONL file. The file
// is rewritten on every append.
type Ledger struct {
	path   string
	mu     sync.Mutex
	orders []models.Order
}

// OpenLedger loads the orders already recorded at path. A missing file is
// an empty ledger.
func OpenLedger(path string) (*Ledger, error) {
	if err := checkFormat(path); err != nil {
		return nil, err
	}
	l := &Ledger{path: path}

	orders, err := l.load()
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	l.orders = orders
	return l, nil
}

func checkFormat(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".jsonl":
		return nil
	default:
		return fmt.Errorf("unsupported ledger format: %s (supported: .parquet, .jsonl)", filepath.Ext(path))
	}
}

func (l *Ledger) Path() string {
	return l.path
}

// Orders returns a copy of every recorded order.
func (l *Ledger) Orders() []models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Order(nil), l.orders...)
}

// Append records an order and flushes the ledger to disk.
func (l *Ledger) Append(order models.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := append(append([]models.Order(nil), l.orders...), order)
	if err := l.write(next); err != nil {
		return err
	}
	l.orders = next
	return nil
}

// Remove drops an order by ID. It reports whether the order was present.
func (l *Ledger) Remove(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]models.Order, 0, len(l.orders))
	for _, o := range l.orders {
		if o.ID != id {
			next = append(next, o)
		}
	}
	if len(next) == len(l.orders) {
		return false, nil
	}
	if err := l.write(next); err != nil {
		return false, err
	}
	l.orders = next
	return true, nil
}

func (l *Ledger) load() ([]models.Order, error) {
	if strings.ToLower(filepath.Ext(l.path)) == ".parquet" {
		return l.loadParquet()
	}
	return l.loadJSONL()
}

func (l *Ledger) loadJSONL() ([]models.Order, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var orders []models.Order
	scanner := bufio.NewScanner(file)
	const maxCapacity = 4 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var order models.Order
		if err := json.Unmarshal(line, &order); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		orders = append(orders, order)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ledger: %w", err)
	}

	slog.Debug("Loaded order ledger", "path", l.path, "orders", len(orders))
	return orders, nil
}

func (l *Ledger) loadParquet() ([]models.Order, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[models.Order](pf)
	defer reader.Close()

	var orders []models.Order
	rows := make([]models.Order, 64)
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			orders = append(orders, rows[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Loaded order ledger", "path", l.path, "orders", len(orders), "row_groups", len(pf.RowGroups()))
	return orders, nil
}

// write replaces the ledger file atomically.
func (l *Ledger) write(orders []models.Order) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if strings.ToLower(filepath.Ext(l.path)) == ".parquet" {
		err = writeParquet(tmp, orders)
	} else {
		err = writeJSONL(tmp, orders)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}

func writeParquet(w io.Writer, orders []models.Order) error {
	writer := parquet.NewGenericWriter[models.Order](w)
	if _, err := writer.Write(orders); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func writeJSONL(w io.Writer, orders []models.Order) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, o := range orders {
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("failed to encode order %s: %w", o.ID, err)
		}
	}
	return bw.Flush()
}
