package metadata

import (
	"encoding/json"
)

// Values are stored as JSON in every backend so a domain can be exported
// from one store and imported into another without conversion.

// EncodeIndex serializes an index. Nil collections are written as empty.
func EncodeIndex(index *Index) ([]byte, error) {
	if index == nil {
		index = NewIndex()
	}
	out := Index{Files: index.Files, Folders: index.Folders, FolderMarkers: index.FolderMarkers}
	return json.Marshal(out.normalize())
}

// DecodeIndex parses an index written by EncodeIndex.
func DecodeIndex(domain string, data []byte) (*Index, error) {
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, NewError(ErrCorrupt, domain, "failed to decode index", err)
	}
	return index.normalize(), nil
}

// EncodeFile serializes a file record.
func EncodeFile(record *FileRecord) ([]byte, error) {
	return json.Marshal(record)
}

// DecodeFile parses a file record written by EncodeFile.
func DecodeFile(domain string, data []byte) (*FileRecord, error) {
	var record FileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, NewError(ErrCorrupt, domain, "failed to decode file record", err)
	}
	return &record, nil
}
