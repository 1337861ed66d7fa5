package files

import (
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewID returns a random 128-bit id as 32 lowercase hex characters.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(u[:]), nil
}

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ContentHash returns the CIDv1 (raw codec, sha2-256) of data.
func ContentHash(data []byte) (string, error) {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
