package tick

import (
	"encoding/json"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundTrip checks decode(encode(x)) == x across the instant range,
// including the field boundaries where the 6-bit grouping changes.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	instants := []Instant{
		0,
		1,
		63,
		64,
		1<<24 - 1,
		1 << 24,
		1<<40 - 1,
		1 << 40,
		MaxInstant - 1,
		MaxInstant,
	}

	// A spread of random in-range values on top of the fixed ones.
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		instants = append(instants, Instant(rng.Int63n(MaxInstant+1)))
	}

	for _, in := range instants {
		tok := Encode(in)
		require.Len(t, string(tok), EncodedSize)

		got, err := Decode(string(tok))
		require.NoError(t, err)
		assert.Equal(t, in, got, "round trip of %d via %q", in, tok)

		// The direct-extraction encoder must agree with the grouped one.
		assert.Equal(t, tok, encodeDirect(in))
	}
}

// TestKnownTokens pins the concrete alphabet mapping. These values are
// a wire contract; changing them breaks every issued token.
func TestKnownTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		instant Instant
		token   string
	}{
		{0, "AAAAAAAA"},
		{1, "AAAAAAAB"},
		{63, "AAAAAAA_"},
		{64, "AAAAAABA"},
		{1 << 40, "AQAAAAAA"},
		{MaxInstant, "________"},
	}

	for _, tt := range tests {
		assert.Equal(t, Token(tt.token), Encode(tt.instant))

		got, err := Decode(tt.token)
		require.NoError(t, err)
		assert.Equal(t, tt.instant, got)
	}
}

// TestDecodeRejectsMalformed covers the validation order: length first,
// then alphabet membership. Padding and non-URL-safe Base64 symbols are
// rejected like any other foreign character.
func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrInvalidLength},
		{"too short", "abc", ErrInvalidLength},
		{"too long", "toolong!!", ErrInvalidLength},
		{"plus sign", "ab+c_-de", ErrInvalidFormat},
		{"slash", "abc/efgh", ErrInvalidFormat},
		{"padding", "abcdefg=", ErrInvalidFormat},
		{"space", "abcd efg", ErrInvalidFormat},
		{"non-ascii", "abcdefg\xc3", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValid("AAAAAAAA"))
	assert.True(t, IsValid("________"))
	assert.True(t, IsValid("Zz09-_aQ"))

	assert.False(t, IsValid(""))
	assert.False(t, IsValid("short"))
	assert.False(t, IsValid("toolong!!"))
	assert.False(t, IsValid("ab+c_-de"))
	assert.False(t, IsValid("abcdefg="))
}

func TestMustDecode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Instant(0), MustDecode("AAAAAAAA"))
	assert.Panics(t, func() { MustDecode("invalid") })
}

// TestTokenHelpers exercises the Instant/Time/Compare accessors.
func TestTokenHelpers(t *testing.T) {
	t.Parallel()

	at := Instant(1_700_000_000_000) // 2023-11-14T22:13:20Z
	tok := Encode(at)

	got, err := tok.Instant()
	require.NoError(t, err)
	assert.Equal(t, at, got)

	when, err := tok.Time()
	require.NoError(t, err)
	assert.Equal(t, at.Time(), when)
	assert.Equal(t, int64(at), when.UnixMilli())

	earlier := Encode(at - 1)
	later := Encode(at + 1)
	assert.Equal(t, -1, earlier.Compare(tok))
	assert.Equal(t, 0, tok.Compare(tok))
	assert.Equal(t, 1, later.Compare(tok))
	assert.True(t, earlier.Less(tok))
	assert.False(t, later.Less(tok))

	_, err = Token("bogus").Instant()
	require.ErrorIs(t, err, ErrInvalidLength)
}

// TestAgeSign: right after generation age must be near zero, possibly
// negative (the monotonic bump can push instants ahead of the clock),
// and never a large positive value.
func TestAgeSign(t *testing.T) {
	t.Parallel()

	tok, err := Generate()
	require.NoError(t, err)

	age, err := Age(tok)
	require.NoError(t, err)
	assert.Less(t, age, 2*time.Second)
	assert.Greater(t, age, -2*time.Second)

	_, err = Age(Token("not a token"))
	require.ErrorIs(t, err, ErrInvalidLength)
}

// TestChronologicalOrder verifies that Compare/Less order tokens by
// their decoded instants, including across the alphabet positions whose
// characters are not ASCII-ordered ('Z'/'a', 'z'/'0', '9'/'-', '-'/'_').
func TestChronologicalOrder(t *testing.T) {
	t.Parallel()

	// Adjacent instants whose tokens differ in one of the characters
	// where alphabet index order and byte order disagree.
	boundaries := [][2]Instant{
		{25, 26}, // 'Z' -> 'a'
		{51, 52}, // 'z' -> '0'
		{61, 62}, // '9' -> '-'
		{62, 63}, // '-' -> '_'
	}
	for _, p := range boundaries {
		lo, hi := Encode(p[0]), Encode(p[1])
		assert.Equal(t, -1, lo.Compare(hi), "%q vs %q", lo, hi)
		assert.Equal(t, 1, hi.Compare(lo), "%q vs %q", hi, lo)
		assert.True(t, lo.Less(hi), "%q should order before %q", lo, hi)
	}

	// Raw byte order disagrees at the '9'/'-' boundary; Compare must not.
	nine, dash := Encode(61), Encode(62)
	assert.True(t, string(dash) < string(nine))
	assert.True(t, nine.Less(dash))

	// Sorting by Less and sorting by decoded instant agree.
	rng := rand.New(rand.NewSource(2))
	instants := make([]Instant, 500)
	tokens := make([]Token, len(instants))
	for i := range instants {
		instants[i] = Instant(rng.Int63n(MaxInstant + 1))
		tokens[i] = Encode(instants[i])
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Less(tokens[j]) })
	sort.Slice(instants, func(i, j int) bool { return instants[i] < instants[j] })

	for i := range tokens {
		assert.Equal(t, instants[i], MustDecode(string(tokens[i])), "order mismatch at %d", i)
	}
}

func TestJSONSupport(t *testing.T) {
	t.Parallel()

	type event struct {
		ID   Token  `json:"id"`
		Name string `json:"name"`
	}

	original := event{ID: MustGenerate(), Name: "deploy"}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)

	var tok Token
	require.ErrorIs(t, tok.UnmarshalJSON([]byte(`123`)), ErrTypeMismatch)
	require.ErrorIs(t, tok.UnmarshalJSON([]byte(`"notatok!"`)), ErrInvalidFormat)
	require.ErrorIs(t, tok.UnmarshalJSON([]byte(`"short"`)), ErrInvalidLength)
}

func TestSQLSupport(t *testing.T) {
	t.Parallel()

	original := MustGenerate()

	value, err := original.Value()
	require.NoError(t, err)
	s, ok := value.(string)
	require.True(t, ok, "Value() should produce a string")

	var fromString Token
	require.NoError(t, fromString.Scan(s))
	assert.Equal(t, original, fromString)

	var fromBytes Token
	require.NoError(t, fromBytes.Scan([]byte(s)))
	assert.Equal(t, original, fromBytes)

	var tok Token
	require.ErrorIs(t, tok.Scan(nil), ErrTypeMismatch)
	require.ErrorIs(t, tok.Scan(123), ErrTypeMismatch)
	require.ErrorIs(t, tok.Scan("ab+c_-de"), ErrInvalidFormat)
}
