package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite checks the metadata.Store contract against any
// implementation.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) metadata.Store {
//	            return mystore.New(...)
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. The suite
	// closes it when the test ends.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadIndex_Empty", suite.testReadIndexEmpty)
	t.Run("SaveIndex_RoundTrip", suite.testSaveIndexRoundTrip)
	t.Run("SaveIndex_Overwrite", suite.testSaveIndexOverwrite)
	t.Run("GetFile_Absent", suite.testGetFileAbsent)
	t.Run("SaveFile_RoundTrip", suite.testSaveFileRoundTrip)
	t.Run("SaveFile_Overwrite", suite.testSaveFileOverwrite)
	t.Run("DeleteFile", suite.testDeleteFile)
	t.Run("DomainIsolation", suite.testDomainIsolation)
	t.Run("ReturnedValuesAreCopies", suite.testReturnedValuesAreCopies)
	t.Run("Domains", suite.testDomains)
	t.Run("InvalidArguments", suite.testInvalidArguments)
	t.Run("Healthcheck", suite.testHealthcheck)
	t.Run("ConcurrentSaves", suite.testConcurrentSaves)
}

func (suite *StoreTestSuite) newStore(t *testing.T) metadata.Store {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// SampleRecord returns a fully populated record for id.
func SampleRecord(id, folder string) *metadata.FileRecord {
	ts := time.Date(2024, 5, 17, 10, 30, 0, 123456789, time.UTC)
	return &metadata.FileRecord{
		ID:         id,
		Name:       "report-" + id + ".pdf",
		MimeType:   "application/pdf",
		Size:       2048,
		Hash:       "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku",
		CreatedAt:  ts,
		ModifiedAt: ts.Add(time.Minute),
		CreatedBy:  "0xabc",
		ModifiedBy: "0xabc",
		Folder:     folder,
		Backend:    "s3",
		StorageKey: "example.com/" + id + ".pdf",
		BaseKey:    "example.com/" + id,
		MetaKey:    "example.com/" + id + "._i",
	}
}

func ctx() context.Context { return context.Background() }

func (suite *StoreTestSuite) testReadIndexEmpty(t *testing.T) {
	store := suite.newStore(t)

	index, err := store.ReadIndex(ctx(), "example.com")
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.NotNil(t, index.Files)
	assert.Empty(t, index.Files)
	assert.NotNil(t, index.Folders)
	assert.Empty(t, index.Folders)
}

func (suite *StoreTestSuite) testSaveIndexRoundTrip(t *testing.T) {
	store := suite.newStore(t)

	index := metadata.NewIndex()
	index.Put("a1", "")
	index.Put("b2", "docs/2024")
	index.Folders = []string{"empty", "docs"}

	require.NoError(t, store.SaveIndex(ctx(), "example.com", index))

	got, err := store.ReadIndex(ctx(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, index.Files, got.Files)
	assert.Equal(t, []string{"empty", "docs"}, got.Folders)
}

func (suite *StoreTestSuite) testSaveIndexOverwrite(t *testing.T) {
	store := suite.newStore(t)

	first := metadata.NewIndex()
	first.Put("a1", "")
	first.Put("b2", "")
	require.NoError(t, store.SaveIndex(ctx(), "example.com", first))

	second := metadata.NewIndex()
	second.Put("c3", "x")
	require.NoError(t, store.SaveIndex(ctx(), "example.com", second))

	got, err := store.ReadIndex(ctx(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]metadata.IndexEntry{"c3": {ID: "c3", Folder: "x"}}, got.Files)
}

func (suite *StoreTestSuite) testGetFileAbsent(t *testing.T) {
	store := suite.newStore(t)

	record, err := store.GetFile(ctx(), "example.com", "missing")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func (suite *StoreTestSuite) testSaveFileRoundTrip(t *testing.T) {
	store := suite.newStore(t)
	record := SampleRecord("0123456789abcdef0123456789abcdef", "docs")

	require.NoError(t, store.SaveFile(ctx(), "example.com", record))

	got, err := store.GetFile(ctx(), "example.com", record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record, got)
}

func (suite *StoreTestSuite) testSaveFileOverwrite(t *testing.T) {
	store := suite.newStore(t)
	record := SampleRecord("abc", "")
	require.NoError(t, store.SaveFile(ctx(), "example.com", record))

	updated := record.Clone()
	updated.Name = "renamed.pdf"
	updated.ModifiedBy = "0xdef"
	require.NoError(t, store.SaveFile(ctx(), "example.com", updated))

	got, err := store.GetFile(ctx(), "example.com", "abc")
	require.NoError(t, err)
	assert.Equal(t, "renamed.pdf", got.Name)
	assert.Equal(t, "0xdef", got.ModifiedBy)
}

func (suite *StoreTestSuite) testDeleteFile(t *testing.T) {
	store := suite.newStore(t)
	require.NoError(t, store.SaveFile(ctx(), "example.com", SampleRecord("abc", "")))

	removed, err := store.DeleteFile(ctx(), "example.com", "abc")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeleteFile(ctx(), "example.com", "abc")
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := store.GetFile(ctx(), "example.com", "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func (suite *StoreTestSuite) testDomainIsolation(t *testing.T) {
	store := suite.newStore(t)

	require.NoError(t, store.SaveFile(ctx(), "a.com", SampleRecord("shared", "")))
	index := metadata.NewIndex()
	index.Put("shared", "")
	require.NoError(t, store.SaveIndex(ctx(), "a.com", index))

	got, err := store.GetFile(ctx(), "b.com", "shared")
	require.NoError(t, err)
	assert.Nil(t, got)

	other, err := store.ReadIndex(ctx(), "b.com")
	require.NoError(t, err)
	assert.Empty(t, other.Files)

	removed, err := store.DeleteFile(ctx(), "b.com", "shared")
	require.NoError(t, err)
	assert.False(t, removed)
}

func (suite *StoreTestSuite) testReturnedValuesAreCopies(t *testing.T) {
	store := suite.newStore(t)
	record := SampleRecord("abc", "")
	require.NoError(t, store.SaveFile(ctx(), "example.com", record))

	// Mutating the saved value or a returned value must not leak back.
	record.Name = "mutated-after-save"
	got, err := store.GetFile(ctx(), "example.com", "abc")
	require.NoError(t, err)
	assert.Equal(t, "report-abc.pdf", got.Name)

	got.Name = "mutated-after-get"
	again, err := store.GetFile(ctx(), "example.com", "abc")
	require.NoError(t, err)
	assert.Equal(t, "report-abc.pdf", again.Name)

	index := metadata.NewIndex()
	index.Put("abc", "")
	require.NoError(t, store.SaveIndex(ctx(), "example.com", index))
	index.Put("ghost", "")

	read, err := store.ReadIndex(ctx(), "example.com")
	require.NoError(t, err)
	read.Put("other", "")

	read, err = store.ReadIndex(ctx(), "example.com")
	require.NoError(t, err)
	assert.Len(t, read.Files, 1)
}

func (suite *StoreTestSuite) testDomains(t *testing.T) {
	store := suite.newStore(t)

	domains, err := store.Domains(ctx())
	require.NoError(t, err)
	assert.Empty(t, domains)

	for _, d := range []string{"b.com", "a.com", "localhost"} {
		require.NoError(t, store.SaveIndex(ctx(), d, metadata.NewIndex()))
	}
	// A record alone does not make a domain.
	require.NoError(t, store.SaveFile(ctx(), "c.com", SampleRecord("x", "")))

	domains, err = store.Domains(ctx())
	require.NoError(t, err)
	sort.Strings(domains)
	assert.Equal(t, []string{"a.com", "b.com", "localhost"}, domains)
}

func (suite *StoreTestSuite) testInvalidArguments(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.ReadIndex(ctx(), "")
	assert.True(t, metadata.IsCode(err, metadata.ErrInvalidArgument), "got %v", err)

	err = store.SaveFile(ctx(), "example.com", &metadata.FileRecord{})
	assert.True(t, metadata.IsCode(err, metadata.ErrInvalidArgument), "got %v", err)

	_, err = store.GetFile(ctx(), "example.com", "")
	assert.True(t, metadata.IsCode(err, metadata.ErrInvalidArgument), "got %v", err)

	_, err = store.DeleteFile(ctx(), "bad:domain", "abc")
	assert.True(t, metadata.IsCode(err, metadata.ErrInvalidArgument), "got %v", err)
}

func (suite *StoreTestSuite) testHealthcheck(t *testing.T) {
	store := suite.newStore(t)
	assert.NoError(t, store.Healthcheck(ctx()))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Healthcheck(cancelled))
}

func (suite *StoreTestSuite) testConcurrentSaves(t *testing.T) {
	store := suite.newStore(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("file%02d", i)
			if err := store.SaveFile(ctx(), "example.com", SampleRecord(id, "")); err != nil {
				errs <- err
				return
			}
			if _, err := store.GetFile(ctx(), "example.com", id); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	for i := 0; i < workers; i++ {
		got, err := store.GetFile(ctx(), "example.com", fmt.Sprintf("file%02d", i))
		require.NoError(t, err)
		assert.NotNil(t, got)
	}
}
