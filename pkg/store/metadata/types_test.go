package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecord_RawKey(t *testing.T) {
	r := &FileRecord{StorageKey: "example.com/abc.txt", Key: "legacy"}
	assert.Equal(t, "example.com/abc.txt", r.RawKey())

	legacy := &FileRecord{Key: "example.com/old.bin"}
	assert.Equal(t, "example.com/old.bin", legacy.RawKey())
}

func TestFileRecord_Locators(t *testing.T) {
	r := &FileRecord{StorageKey: "k", MetaKey: "k._i"}
	assert.Equal(t, []string{"k", "k._i"}, r.Locators())

	// Content-addressed storage may return the same CID twice.
	same := &FileRecord{StorageKey: "bafy", MetaKey: "bafy"}
	assert.Equal(t, []string{"bafy"}, same.Locators())

	assert.Empty(t, (&FileRecord{}).Locators())
}

func TestDecodeFile_LegacyKeyField(t *testing.T) {
	r, err := DecodeFile("d", []byte(`{"id":"abc","name":"a.txt","key":"d/abc.txt"}`))
	require.NoError(t, err)
	assert.Equal(t, "d/abc.txt", r.RawKey())
}

func TestDecodeIndex(t *testing.T) {
	ix, err := DecodeIndex("d", []byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, ix.Files)
	assert.NotNil(t, ix.Folders)

	_, err = DecodeIndex("d", []byte(`{not json`))
	assert.True(t, IsCode(err, ErrCorrupt))
}

func TestEncodeIndex_EmptyCollections(t *testing.T) {
	data, err := EncodeIndex(&Index{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":{},"folders":[]}`, string(data))
}

func TestIndex_PutRemove(t *testing.T) {
	ix := NewIndex()
	ix.Put("a", "docs")
	ix.Put("a", "docs/sub")

	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, "docs/sub", ix.Files["a"].Folder)
	assert.True(t, ix.Remove("a"))
	assert.False(t, ix.Remove("a"))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("example.com", "0123abcd"))
	assert.True(t, IsCode(ValidateKey("", "x"), ErrInvalidArgument))
	assert.True(t, IsCode(ValidateKey("a:b", "x"), ErrInvalidArgument))
	assert.True(t, IsCode(ValidateKey("d", ""), ErrInvalidArgument))
	assert.True(t, IsCode(ValidateRecord("d", nil), ErrInvalidArgument))
}

func TestIndex_Folders(t *testing.T) {
	ix := NewIndex()
	ix.AddFolder("docs", "bafy-docs")
	ix.AddFolder("docs", "bafy-docs")
	ix.AddFolder("docs/inner", "bafy-inner")
	ix.AddFolder("keep", "")

	assert.Equal(t, []string{"docs", "docs/inner", "keep"}, ix.Folders)
	assert.Equal(t, map[string]string{"docs": "bafy-docs", "docs/inner": "bafy-inner"}, ix.FolderMarkers)

	data, err := EncodeIndex(ix)
	require.NoError(t, err)
	decoded, err := DecodeIndex("d", data)
	require.NoError(t, err)
	assert.Equal(t, ix.FolderMarkers, decoded.FolderMarkers)

	removed, locators := ix.RemoveFolders(func(f string) bool { return f == "docs" || f == "docs/inner" })
	assert.True(t, removed)
	assert.Equal(t, []string{"bafy-docs", "bafy-inner"}, locators)
	assert.Equal(t, []string{"keep"}, ix.Folders)
	assert.Nil(t, ix.FolderMarkers)

	removed, locators = ix.RemoveFolders(func(string) bool { return false })
	assert.False(t, removed)
	assert.Empty(t, locators)
}
