package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

var (
	_ ports.ExpenseStore = (*Store)(nil)
	_ ports.PayeeReader  = (*Store)(nil)
)

// Store keeps expenses in process memory. IDs are sequential numbers
// rendered as strings.
type Store struct {
	mu     sync.RWMutex
	payees []string
	items  []core.ExpenseRecord
	nextID int
}

// dbFile mirrors the json-server layout of the seed database.
type dbFile struct {
	Expenses []core.ExpenseRecord `json:"expenses"`
}

func New(payees []string, seed []core.ExpenseRecord) *Store {
	s := &Store{payees: dedupe(payees), nextID: 1}
	for _, rec := range seed {
		s.items = append(s.items, rec)
		if n, err := strconv.Atoi(rec.ID); err == nil && n >= s.nextID {
			s.nextID = n + 1
		}
	}
	return s
}

// NewFromFiles seeds the store from base/db.json and base/seed_payees.txt.
// Missing files yield an empty store; a malformed db.json is an error.
func NewFromFiles(base string) (*Store, error) {
	payees := readLines(filepath.Join(base, "seed_payees.txt"))

	seed, err := readDB(filepath.Join(base, "db.json"))
	if err != nil {
		return nil, err
	}
	return New(payees, seed), nil
}

func readDB(path string) ([]core.ExpenseRecord, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var db dbFile
	if err := json.Unmarshal(b, &db); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return db.Expenses, nil
}

// CreateExpense stores e under the next sequential ID.
func (s *Store) CreateExpense(_ context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	if err := e.Validate(nil); err != nil {
		return core.ExpenseRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := e.Record(strconv.Itoa(s.nextID))
	s.nextID++
	s.items = append(s.items, rec)
	return rec, nil
}

// ListExpenses returns a copy of every stored expense in insertion order.
func (s *Store) ListExpenses(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ExpenseRecord(nil), s.items...), nil
}

func (s *Store) ListPayees(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.payees...), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
