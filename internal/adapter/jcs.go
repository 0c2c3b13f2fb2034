package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JCS defines an interface for JSON canonicalization to enable mocking
//
//go:generate mockgen -source=jcs.go -destination=../mocks/jcs.go -package=mocks -mock_names=JCS=MockJCS
type JCS interface {
	Transform(data []byte) ([]byte, error)
}

// RealJCS implements JCS using gowebpki/jcs (RFC 8785)
type RealJCS struct{}

// NewJCS creates a new real JCS implementation
func NewJCS() JCS {
	return &RealJCS{}
}

func (j *RealJCS) Transform(data []byte) ([]byte, error) {
	return jcs.Transform(data)
}

// ContentHash returns the hex sha256 of the canonical form of a JSON document,
// so key order and whitespace never change the hash
func ContentHash(c JCS, data []byte) (string, error) {
	canonical, err := c.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize JSON: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
