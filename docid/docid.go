// Package docid generates and inspects 24-character hexadecimal document
// identifiers. An identifier encodes its creation time in the first four
// bytes as big-endian Unix seconds, followed by a five-byte per-process
// machine identifier and a three-byte monotonic counter. Sorting identifiers
// lexicographically therefore sorts them by creation time, and the date
// partition a document belongs to can be read directly off its identifier.
package docid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/apicomponents/blob-collection/errors"
)

// Length is the number of hex characters in a document identifier.
const Length = 24

// rawLength is the decoded byte length of an identifier.
const rawLength = 12

var (
	machineID = newMachineID()
	counter   atomic.Uint32
)

// newMachineID derives a five-byte process identifier from a random UUID.
func newMachineID() [5]byte {
	var m [5]byte
	u := uuid.New()
	copy(m[:], u[:5])
	return m
}

func init() {
	u := uuid.New()
	counter.Store(binary.BigEndian.Uint32(u[12:16]) & 0xFFFFFF)
}

// New returns a fresh identifier timestamped with the current time.
func New() string {
	return FromTime(time.Now())
}

// FromTime returns a fresh identifier timestamped with t. The machine and
// counter bytes are still populated, so two calls with the same t yield
// distinct identifiers.
func FromTime(t time.Time) string {
	var raw [rawLength]byte
	binary.BigEndian.PutUint32(raw[0:4], uint32(t.Unix()))
	copy(raw[4:9], machineID[:])
	n := counter.Add(1)
	raw[9] = byte(n >> 16)
	raw[10] = byte(n >> 8)
	raw[11] = byte(n)
	return hex.EncodeToString(raw[:])
}

// Min returns the smallest identifier whose timestamp is t. Useful as an
// exclusive or inclusive bound when comparing identifiers by time.
func Min(t time.Time) string {
	var raw [rawLength]byte
	binary.BigEndian.PutUint32(raw[0:4], uint32(t.Unix()))
	return hex.EncodeToString(raw[:])
}

// Valid reports whether id is a well-formed 24-character lowercase hex
// identifier.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < Length; i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Time extracts the creation time encoded in the identifier.
func Time(id string) (time.Time, error) {
	if !Valid(id) {
		return time.Time{}, errors.WrapInvalid(
			fmt.Errorf("malformed identifier %q", id), "docid", "Time", "identifier check")
	}
	raw, err := hex.DecodeString(id[:8])
	if err != nil {
		return time.Time{}, errors.WrapInvalid(err, "docid", "Time", "hex decode")
	}
	secs := binary.BigEndian.Uint32(raw)
	return time.Unix(int64(secs), 0).UTC(), nil
}

// Day returns the UTC calendar day the identifier was created on, formatted
// as YYYY-MM-DD.
func Day(id string) (string, error) {
	t, err := Time(id)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}
