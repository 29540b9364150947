package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

const (
	DefaultDirMode  os.FileMode = 0755
	DefaultFileMode os.FileMode = 0644
)

var ErrCorruptStore = errors.New("corrupt inventory store")

// FileAdapter keeps the inventory as one quantity per line, in blood type
// order. Lines past the eighth are carried through every rewrite untouched.
//
// Every operation reads the whole file and mutations rewrite it in full, so a
// single lock serializes them; concurrent adjustments never lose updates.
type FileAdapter struct {
	path string
	mu   sync.RWMutex
}

func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

func (f *FileAdapter) Path() string {
	return f.path
}

func (f *FileAdapter) Bootstrap(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
		log.Info().Str("dir", dir).Msg("store directory created")
	} else if err != nil {
		return fmt.Errorf("stat store directory: %w", err)
	}

	lines, err := f.readLines()
	if errors.Is(err, fs.ErrNotExist) {
		if err := f.writeLines(seedLines()); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		log.Info().Str("path", f.path).Msg("store created with seed values")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}

	if len(lines) < domain.TypeCount {
		log.Warn().Str("path", f.path).Int("lines", len(lines)).Msg("store is invalid, recreating with seed values")
		if err := os.Remove(f.path); err != nil {
			return fmt.Errorf("remove invalid store: %w", err)
		}
		if err := f.writeLines(seedLines()); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		return nil
	}

	for i := 0; i < domain.TypeCount; i++ {
		if _, err := parseQuantity(lines[i]); err != nil {
			log.Warn().Int("line", i).Str("value", lines[i]).Msg("invalid quantity replaced with 0")
			lines[i] = domain.FormatLiters(0)
		}
	}

	if err := f.writeLines(lines); err != nil {
		return fmt.Errorf("rewrite store: %w", err)
	}
	return nil
}

func (f *FileAdapter) ReadAll(ctx context.Context) (domain.Inventory, error) {
	if err := ctx.Err(); err != nil {
		return domain.Inventory{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	lines, err := f.readLines()
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("read store: %w", err)
	}
	return parseInventory(lines)
}

func (f *FileAdapter) Adjust(ctx context.Context, adj domain.Adjustment) (float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if !adj.Type.Valid() {
		return 0, false, domain.ErrUnknownBloodType
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.readLines()
	if err != nil {
		return 0, false, fmt.Errorf("read store: %w", err)
	}
	inv, err := parseInventory(lines)
	if err != nil {
		return 0, false, err
	}

	current := inv.Get(adj.Type)
	var next float64
	switch adj.Direction {
	case domain.DirectionAdd:
		next = current + adj.Amount
	case domain.DirectionRemove:
		if current < adj.Amount {
			return current, false, nil
		}
		next = current - adj.Amount
	default:
		return 0, false, fmt.Errorf("unknown direction %q", adj.Direction)
	}

	lines[adj.Type] = domain.FormatLiters(next)
	if err := f.writeLines(lines); err != nil {
		return 0, false, fmt.Errorf("write store: %w", err)
	}
	return next, true, nil
}

// readLines splits the store on newlines, accepting \r\n endings. A final
// newline does not produce an extra empty line.
func (f *FileAdapter) readLines() ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, nil
}

// writeLines replaces the store through a temp file and rename so readers
// never observe a half-written inventory.
func (f *FileAdapter) writeLines(lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(DefaultFileMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func seedLines() []string {
	lines := make([]string, domain.TypeCount)
	for i, v := range domain.SeedInventory {
		lines[i] = domain.FormatLiters(v)
	}
	return lines
}

func parseInventory(lines []string) (domain.Inventory, error) {
	var inv domain.Inventory
	if len(lines) < domain.TypeCount {
		return inv, fmt.Errorf("%w: %d lines", ErrCorruptStore, len(lines))
	}
	for i := 0; i < domain.TypeCount; i++ {
		v, err := parseQuantity(lines[i])
		if err != nil {
			return inv, fmt.Errorf("%w: line %d: %v", ErrCorruptStore, i, err)
		}
		inv[i] = v
	}
	return inv, nil
}

func parseQuantity(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite quantity %q", s)
	}
	return v, nil
}
