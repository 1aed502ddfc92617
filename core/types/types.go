package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashLength is the size of a SHA-256 digest in bytes.
const HashLength = 32

// Hash is a SHA-256 digest. Its text form is 64 lower-case hex characters
// without prefix, which is also the form stored in the chains document.
type Hash [HashLength]byte

// ZeroHash is the previous hash of every genesis block.
var ZeroHash = Hash{}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// LeadingZeros counts the leading zero hex characters of the digest.
func (h Hash) LeadingZeros() uint {
	var n uint
	for _, b := range h {
		if b == 0 {
			n += 2
			continue
		}
		if b < 0x10 {
			n++
		}
		break
	}
	return n
}

// HasLeadingZeros reports whether the digest satisfies a proof-of-work
// difficulty.
func (h Hash) HasLeadingZeros(difficulty uint) bool {
	return h.LeadingZeros() >= difficulty
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash parses the text form of a digest: exactly 64 lower-case hex
// characters, no prefix. Any other spelling is rejected so that decoded
// documents re-encode byte for byte.
func HexToHash(s string) (Hash, error) {
	if len(s) != 2*HashLength {
		return Hash{}, fmt.Errorf("invalid hash length %d", len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Hash{}, fmt.Errorf("invalid hash character %q at %d", c, i)
		}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash: %w", err)
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

func BytesToHash(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(sum)
}
