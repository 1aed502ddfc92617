package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Siasom1/esg-ledger/params"
)

// ------------------------------------------------------------
// Payload
// ------------------------------------------------------------

// Course is the learning event recorded by a non-genesis block.
type Course struct {
	Title           string `json:"course_title"`
	Description     string `json:"course_description"`
	TransactionHash string `json:"transaction_hash"`
}

// Text is the input handed to the classifier for this course.
func (c Course) Text() string {
	return c.Title + ". " + c.Description
}

// Payload is the data carried by a block: either a marker string (the
// genesis sentinel) or a course record.
type Payload struct {
	Marker string
	Course *Course
}

func GenesisPayload() Payload {
	return Payload{Marker: params.GenesisData}
}

func CoursePayload(course Course) Payload {
	return Payload{Course: &course}
}

func (p Payload) IsGenesis() bool {
	return p.Course == nil && p.Marker == params.GenesisData
}

// Canonical is the stable text form of the payload used by the hasher. Course
// payloads render as a Python dict literal with keys in the order title,
// description, transaction hash, so chains.json documents produced by the
// Python ledger API keep validating.
func (p Payload) Canonical() string {
	if p.Course == nil {
		return p.Marker
	}

	var b strings.Builder
	b.WriteString("{'course_title': ")
	writePyString(&b, p.Course.Title)
	b.WriteString(", 'course_description': ")
	writePyString(&b, p.Course.Description)
	b.WriteString(", 'transaction_hash': ")
	writePyString(&b, p.Course.TransactionHash)
	b.WriteString("}")
	return b.String()
}

// writePyString writes s quoted and escaped the way Python's repr does.
func writePyString(b *strings.Builder, s string) {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < ' ' || r == 0x7f:
			fmt.Fprintf(b, `\x%02x`, r)
		case r < 0x7f || unicode.IsPrint(r):
			b.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(b, `\x%02x`, r)
		case r <= 0xffff:
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			fmt.Fprintf(b, `\U%08x`, r)
		}
	}
	b.WriteRune(quote)
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Course == nil {
		return json.Marshal(p.Marker)
	}
	return json.Marshal(p.Course)
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty payload")
	}

	switch data[0] {
	case '"':
		var marker string
		if err := json.Unmarshal(data, &marker); err != nil {
			return fmt.Errorf("could not decode payload marker: %w", err)
		}
		*p = Payload{Marker: marker}
		return nil

	case '{':
		var course Course
		if err := json.Unmarshal(data, &course); err != nil {
			return fmt.Errorf("could not decode course payload: %w", err)
		}
		*p = Payload{Course: &course}
		return nil

	default:
		return fmt.Errorf("unsupported payload: %s", data)
	}
}

// ------------------------------------------------------------
// Blocks
// ------------------------------------------------------------

// UnsealedBlock is a block under construction. It has no hash until a miner
// seals it.
type UnsealedBlock struct {
	Index     uint64
	Timestamp string
	Data      Payload
	PrevHash  Hash
	Nonce     uint64
}

// Block is a sealed block, as stored in a ledger.
type Block struct {
	Index     uint64  `json:"index"`
	Timestamp string  `json:"timestamp"`
	Data      Payload `json:"data"`
	PrevHash  Hash    `json:"previous_hash"`
	Nonce     uint64  `json:"nonce"`
	Hash      Hash    `json:"hash"`
}

// Seal turns the candidate into a sealed block at the given nonce and hash.
// Only miners should call it.
func (u UnsealedBlock) Seal(nonce uint64, hash Hash) *Block {
	return &Block{
		Index:     u.Index,
		Timestamp: u.Timestamp,
		Data:      u.Data,
		PrevHash:  u.PrevHash,
		Nonce:     nonce,
		Hash:      hash,
	}
}

// Digest recomputes the hash over the stored fields and nonce.
func (b *Block) Digest() Hash {
	return Digest(b.Index, b.Timestamp, b.Data, b.PrevHash, b.Nonce)
}
