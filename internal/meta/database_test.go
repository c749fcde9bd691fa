package meta

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/cppmeta/internal/identity"
)

func id(line int) identity.Identity {
	return identity.Identity{File: "/root/a.h", Line: line}
}

func TestDatabaseEmpty(t *testing.T) {
	t.Parallel()

	db := &Database{}
	assert.True(t, db.Empty())

	db.AddFunction(Function{Name: "f"})
	assert.False(t, db.Empty())
}

func TestDatabaseDuplicateName(t *testing.T) {
	t.Parallel()

	db := &Database{}
	require.NoError(t, db.AddRecord(Record{Name: "ns::A", Line: 1}))
	err := db.AddRecord(Record{Name: "ns::A", Line: 9})
	assert.True(t, errors.Is(err, ErrDuplicateName))
	require.Len(t, db.Records, 1)
	assert.Equal(t, 1, db.Records[0].Line, "first declaration wins")

	require.NoError(t, db.AddEnum(Enum{Name: "ns::A"}), "records and enums have separate namespaces")
	assert.True(t, errors.Is(db.AddEnum(Enum{Name: "ns::A"}), ErrDuplicateName))

	db.AddFunction(Function{Name: "f"})
	db.AddFunction(Function{Name: "f"})
	assert.Len(t, db.Functions, 2, "overloads are kept")
}

func TestDataMapFiles(t *testing.T) {
	t.Parallel()

	m := NewDataMap()
	m.File("src/b.h")
	m.File("include/a.h")
	assert.Same(t, m.File("src/b.h"), m.File("src/b.h"))
	assert.Equal(t, []string{"include/a.h", "src/b.h"}, m.Files())

	_, ok := m.Lookup("missing.h")
	assert.False(t, ok)
}

func TestDataMapMerge(t *testing.T) {
	t.Parallel()

	unit := func(records ...Record) *DataMap {
		m := NewDataMap()
		db := m.File("a.h")
		for _, r := range records {
			require.NoError(t, db.AddRecord(r))
		}
		return m
	}

	run := NewDataMap()
	require.NoError(t, run.Merge(unit(Record{ID: id(1), Name: "A"}, Record{ID: id(5), Name: "B"})))
	require.NoError(t, run.Merge(unit(Record{ID: id(1), Name: "A"}, Record{ID: id(9), Name: "C"})))

	db, ok := run.Lookup("a.h")
	require.True(t, ok)
	var names []string
	for _, r := range db.Records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)

	err := run.Merge(unit(Record{ID: id(20), Name: "A"}))
	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.Len(t, db.Records, 3)
}

func TestDataMapConcurrentFile(t *testing.T) {
	t.Parallel()

	m := NewDataMap()
	var wg sync.WaitGroup
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.File("shared.h")
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"shared.h"}, m.Files())
}
