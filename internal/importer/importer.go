package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/envelope/internal/model"
)

// RefImport is the external reference key that identifies an imported row.
// Re-importing a row with the same key is a no-op.
const RefImport = "import_ref"

// Target is the registered account a feed posts into.
type Target struct {
	Feed      string
	AccountID string
	Currency  string
}

// Parser converts a bank export into candidate transactions for one account.
// Candidates carry no ID; the ledger assigns one on insert.
type Parser interface {
	Parse(r io.Reader, target Target) ([]model.Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&OFXParser{})
	return r
}

// Deduplicate drops candidates whose import ref already appears in existing
// or earlier in candidates. Candidates without an import ref are kept. An
// existing transaction may carry several import refs after a transfer merge;
// all of them count.
func Deduplicate(candidates, existing []model.Transaction) []model.Transaction {
	seen := make(map[string]bool)
	for _, tx := range existing {
		for _, r := range tx.ExternalRefs {
			if r.Key == RefImport {
				seen[r.Value] = true
			}
		}
	}
	var out []model.Transaction
	for _, tx := range candidates {
		ref, ok := tx.Ref(RefImport)
		if ok && seen[ref] {
			continue
		}
		if ok {
			seen[ref] = true
		}
		out = append(out, tx)
	}
	return out
}

// importDir is the subdirectory for import files.
const importDir = "import"

// processedDir is the subdirectory for processed files.
const processedDir = "import/processed"

var importExts = map[string]bool{".csv": true, ".ofx": true, ".qfx": true}

// Scan returns importable files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !importExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
