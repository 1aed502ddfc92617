package types

import (
	"crypto/sha256"
	"strconv"
)

// Digest hashes the textual forms of the block fields, concatenated in the
// order index, timestamp, payload, previous hash, nonce.
func Digest(index uint64, timestamp string, data Payload, prevHash Hash, nonce uint64) Hash {
	return NewDigester(index, timestamp, data, prevHash).Sum(nonce)
}

// Digester caches the nonce independent prefix of a block so the miner does
// not re-encode the payload on every attempt.
type Digester struct {
	prefix []byte
	buf    []byte
}

func NewDigester(index uint64, timestamp string, data Payload, prevHash Hash) *Digester {
	prefix := strconv.AppendUint(nil, index, 10)
	prefix = append(prefix, timestamp...)
	prefix = append(prefix, data.Canonical()...)
	prefix = append(prefix, prevHash.String()...)

	return &Digester{
		prefix: prefix,
		buf:    make([]byte, 0, len(prefix)+20),
	}
}

func (d *Digester) Sum(nonce uint64) Hash {
	d.buf = append(d.buf[:0], d.prefix...)
	d.buf = strconv.AppendUint(d.buf, nonce, 10)
	return Hash(sha256.Sum256(d.buf))
}
