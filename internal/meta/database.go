package meta

import (
	"sort"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/cppmeta/internal/identity"
)

// ErrDuplicateName is returned when a record or enum name is already taken
// in the same file. The first declaration wins.
var ErrDuplicateName = errors.Base("duplicate qualified name")

// Database holds the entities declared in one source file, in declaration
// order.
type Database struct {
	Records   []Record
	Functions []Function
	Enums     []Enum

	records map[string]struct{}
	enums   map[string]struct{}
}

// Empty reports whether the database holds no entities.
func (db *Database) Empty() bool {
	return len(db.Records) == 0 && len(db.Functions) == 0 && len(db.Enums) == 0
}

// AddRecord appends r unless a record with the same name exists.
func (db *Database) AddRecord(r Record) error {
	if db.records == nil {
		db.records = make(map[string]struct{})
	}
	if _, ok := db.records[r.Name]; ok {
		return errors.WithDetails(ErrDuplicateName, "name", r.Name, "line", r.Line)
	}
	db.records[r.Name] = struct{}{}
	db.Records = append(db.Records, r)
	return nil
}

// AddEnum appends e unless an enum with the same name exists.
func (db *Database) AddEnum(e Enum) error {
	if db.enums == nil {
		db.enums = make(map[string]struct{})
	}
	if _, ok := db.enums[e.Name]; ok {
		return errors.WithDetails(ErrDuplicateName, "name", e.Name, "line", e.Line)
	}
	db.enums[e.Name] = struct{}{}
	db.Enums = append(db.Enums, e)
	return nil
}

// AddFunction appends f. Overloads share names, so functions are never
// rejected.
func (db *Database) AddFunction(f Function) {
	db.Functions = append(db.Functions, f)
}

// DataMap maps root-relative, slash-separated file paths to databases.
// It is safe for concurrent use.
type DataMap struct {
	mu     sync.Mutex
	files  map[string]*Database
	merged map[identity.Identity]struct{}
}

// NewDataMap returns an empty map.
func NewDataMap() *DataMap {
	return &DataMap{
		files:  make(map[string]*Database),
		merged: make(map[identity.Identity]struct{}),
	}
}

// File returns the database for rel, creating it on first use.
func (m *DataMap) File(rel string) *Database {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file(rel)
}

func (m *DataMap) file(rel string) *Database {
	db, ok := m.files[rel]
	if !ok {
		db = &Database{}
		m.files[rel] = db
	}
	return db
}

// Lookup returns the database for rel, if any.
func (m *DataMap) Lookup(rel string) (*Database, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, ok := m.files[rel]
	return db, ok
}

// Files returns the file keys in sorted order.
func (m *DataMap) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge appends the entities of other to m, file by file in sorted order.
// Entities whose identity was already merged are skipped, so a header seen
// by several translation units contributes once. Name collisions are
// collected and returned; the colliding entities are dropped.
func (m *DataMap) Merge(other *DataMap) error {
	var errs []error
	for _, rel := range other.Files() {
		src, _ := other.Lookup(rel)

		m.mu.Lock()
		dst := m.file(rel)
		for _, r := range src.Records {
			if !m.claim(r.ID) {
				continue
			}
			if err := dst.AddRecord(r); err != nil {
				errs = append(errs, errors.WithDetails(err, "file", rel))
			}
		}
		for _, f := range src.Functions {
			if m.claim(f.ID) {
				dst.AddFunction(f)
			}
		}
		for _, e := range src.Enums {
			if !m.claim(e.ID) {
				continue
			}
			if err := dst.AddEnum(e); err != nil {
				errs = append(errs, errors.WithDetails(err, "file", rel))
			}
		}
		m.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (m *DataMap) claim(id identity.Identity) bool {
	if _, ok := m.merged[id]; ok {
		return false
	}
	m.merged[id] = struct{}{}
	return true
}
