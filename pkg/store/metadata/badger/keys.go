package badger

// Database Key Namespace Design
// ==============================
//
// Data Type    Prefix   Key Format             Value Type
// =======================================================
// Index        "idx:"   idx:<domain>           Index (JSON)
// File Record  "f:"     f:<domain>:<id>        FileRecord (JSON)
//
// Domains and ids never contain ':' (enforced by metadata.ValidateKey), so
// "f:<domain>:" is an exact prefix for one domain's records and the domain
// of an index key is everything after "idx:".

const (
	prefixIndex = "idx:"
	prefixFile  = "f:"
)

func keyIndex(domain string) []byte {
	return []byte(prefixIndex + domain)
}

func keyFile(domain, id string) []byte {
	return []byte(prefixFile + domain + ":" + id)
}

func domainFromIndexKey(key []byte) string {
	return string(key[len(prefixIndex):])
}
