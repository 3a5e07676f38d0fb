// Package tick generates compact, sortable, time-ordered identifiers.
//
// A tick token is a 48-bit millisecond Unix timestamp packed into 6
// big-endian bytes and encoded as 8 URL-safe characters. Token.Compare
// and Token.Less order tokens chronologically, which makes them good
// keys for logs, queues and ordered indexes.
//
// Basic usage:
//
//	tok, err := tick.Generate()
//	fmt.Println(tok) // AZB3kfQ2
//
//	instant, err := tick.Decode("AZB3kfQ2")
//	fmt.Println(instant.Time())
//
// A process-wide monotonic clock source guarantees that successive calls
// never produce the same or an out-of-order token, even when the wall
// clock stalls or steps backwards. Under sustained call rates above one
// per millisecond, issued instants drift ahead of wall-clock time; token
// age may therefore be negative right after generation.
//
// Tokens are trivially enumerable given time. They are identifiers, not
// secrets: do not use them where unpredictability matters.
package tick

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// TimestampBits is the width of an Instant.
	TimestampBits = 48

	// MaxInstant is the largest encodable Instant (year ~10889).
	MaxInstant = 1<<TimestampBits - 1

	// BinarySize is the packed big-endian byte length of an Instant.
	BinarySize = 6

	// EncodedSize is the token length in characters.
	EncodedSize = 8

	// alphabet is the RFC 4648 URL-safe Base64 alphabet, unpadded. The
	// ordering is a wire contract: the bit-pattern to character mapping
	// depends on this exact table.
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

var (
	ErrClockUnavailable = errors.New("tick: clock unavailable")
	ErrTypeMismatch     = errors.New("tick: value is not text")
	ErrInvalidLength    = errors.New("tick: invalid length")
	ErrInvalidFormat    = errors.New("tick: invalid character")
	ErrInvalidCount     = errors.New("tick: batch count out of range")
)

// decodeMap is the inverse alphabet lookup table, 0xFF marking bytes
// outside the alphabet (including '+', '/' and '=').
var decodeMap [256]byte

func init() {
	for i := range decodeMap {
		decodeMap[i] = 0xFF
	}
	for i := 0; i < len(alphabet); i++ {
		decodeMap[alphabet[i]] = byte(i)
	}
}

// Instant is a millisecond Unix timestamp constrained to 48 bits.
type Instant uint64

// Time returns the instant as a time.Time.
func (i Instant) Time() time.Time {
	return time.UnixMilli(int64(i))
}

// Token is the 8-character encoded form of exactly one Instant.
type Token string

// String returns the token text.
func (t Token) String() string { return string(t) }

// Instant decodes the token back to its Instant.
func (t Token) Instant() (Instant, error) {
	return Decode(string(t))
}

// Time returns the token's creation time.
func (t Token) Time() (time.Time, error) {
	instant, err := t.Instant()
	if err != nil {
		return time.Time{}, err
	}
	return instant.Time(), nil
}

// Age returns how far the token's instant lies in the past. The result
// is negative when the instant is ahead of the wall clock, which is
// expected immediately after generation under load.
func (t Token) Age() (time.Duration, error) {
	instant, err := t.Instant()
	if err != nil {
		return 0, err
	}
	ms := time.Now().UnixMilli() - int64(instant)
	return time.Duration(ms) * time.Millisecond, nil
}

// Compare returns -1, 0 or 1 ordering valid tokens chronologically by
// comparing their characters' alphabet indices. The alphabet is not
// ASCII-ordered ('-' carries the second-highest index but the lowest
// byte value), so comparing the raw strings does not order tokens by
// time; always order through Compare, Less or the decoded Instants.
// Characters outside the alphabet sort after every valid character.
func (t Token) Compare(other Token) int {
	a, b := string(t), string(other)
	for i := 0; i < len(a) && i < len(b); i++ {
		av, bv := decodeMap[a[i]], decodeMap[b[i]]
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Less returns true if t was issued before other (for sorting).
func (t Token) Less(other Token) bool {
	return t.Compare(other) < 0
}

// Encode packs a 48-bit instant into 6 big-endian bytes and maps them
// to 8 alphabet characters, 6 bits per character. Every in-range
// instant encodes unconditionally; bits above the 48th are ignored.
func Encode(instant Instant) Token {
	x := uint64(instant) & MaxInstant

	var buf [BinarySize]byte
	binary.BigEndian.PutUint16(buf[0:2], uint16(x>>32))
	binary.BigEndian.PutUint32(buf[2:6], uint32(x))

	// Two 3-byte groups, four 6-bit fields each.
	var out [EncodedSize]byte
	for g := 0; g < 2; g++ {
		v := uint32(buf[g*3])<<16 | uint32(buf[g*3+1])<<8 | uint32(buf[g*3+2])
		out[g*4+0] = alphabet[v>>18&0x3F]
		out[g*4+1] = alphabet[v>>12&0x3F]
		out[g*4+2] = alphabet[v>>6&0x3F]
		out[g*4+3] = alphabet[v&0x3F]
	}
	return Token(out[:])
}

// encodeDirect produces the same token as Encode by extracting the
// eight 6-bit fields straight out of the 64-bit value, skipping the
// intermediate byte array. Used by the fast generation path.
func encodeDirect(instant Instant) Token {
	x := uint64(instant) & MaxInstant

	var out [EncodedSize]byte
	for i := EncodedSize - 1; i >= 0; i-- {
		out[i] = alphabet[x&0x3F]
		x >>= 6
	}
	return Token(out[:])
}

// Decode maps a token back to its Instant. It validates before any
// arithmetic: the input must be exactly 8 characters (ErrInvalidLength)
// and every character must belong to the alphabet (ErrInvalidFormat).
// Decode either fully succeeds or fails with a typed error; it never
// returns a partial value.
func Decode(s string) (Instant, error) {
	if len(s) != EncodedSize {
		return 0, fmt.Errorf("%w: got %d characters, want %d", ErrInvalidLength, len(s), EncodedSize)
	}

	var x uint64
	for i := 0; i < EncodedSize; i++ {
		d := decodeMap[s[i]]
		if d == 0xFF {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s[i])
		}
		x = x<<6 | uint64(d)
	}
	return Instant(x), nil
}

// MustDecode is like Decode but panics on error.
func MustDecode(s string) Instant {
	instant, err := Decode(s)
	if err != nil {
		panic(err)
	}
	return instant
}

// IsValid reports whether s is a syntactically valid token. It performs
// the Decode validation steps only and never fails.
func IsValid(s string) bool {
	if len(s) != EncodedSize {
		return false
	}
	for i := 0; i < EncodedSize; i++ {
		if decodeMap[s[i]] == 0xFF {
			return false
		}
	}
	return true
}

// Age reports the signed distance between the wall clock and the
// token's instant. Callers must not treat a negative age as an error.
func Age(t Token) (time.Duration, error) {
	return t.Age()
}

// JSON support: tokens marshal as plain strings and validate on the
// way in.

func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrTypeMismatch, data)
	}
	if _, err := Decode(s); err != nil {
		return err
	}
	*t = Token(s)
	return nil
}

// SQL support.

func (t Token) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *Token) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrTypeMismatch, value)
	}

	if _, err := Decode(s); err != nil {
		return err
	}
	*t = Token(s)
	return nil
}
