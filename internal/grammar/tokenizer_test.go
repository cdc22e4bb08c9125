package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "Simple comparison",
			input: "year>=2010",
			expected: []Token{
				{Type: TokenIdentifier, Value: "year"},
				{Type: TokenOperator, Value: ">="},
				{Type: TokenInteger, Value: "2010"},
			},
		},
		{
			name:  "Dotted identifier and quoted value",
			input: `owner.name:"bob"`,
			expected: []Token{
				{Type: TokenIdentifier, Value: "owner.name"},
				{Type: TokenOperator, Value: ":"},
				{Type: TokenString, Value: "bob"},
			},
		},
		{
			name:  "Connectives are case insensitive",
			input: "a=1 AND b=2 Or c=3",
			expected: []Token{
				{Type: TokenIdentifier, Value: "a"},
				{Type: TokenOperator, Value: "="},
				{Type: TokenInteger, Value: "1"},
				{Type: TokenLogical, Value: "and"},
				{Type: TokenIdentifier, Value: "b"},
				{Type: TokenOperator, Value: "="},
				{Type: TokenInteger, Value: "2"},
				{Type: TokenLogical, Value: "or"},
				{Type: TokenIdentifier, Value: "c"},
				{Type: TokenOperator, Value: "="},
				{Type: TokenInteger, Value: "3"},
			},
		},
		{
			name:  "ASCII operator variants",
			input: "a=>1 b=<2 c!:3",
			expected: []Token{
				{Type: TokenIdentifier, Value: "a"},
				{Type: TokenOperator, Value: "=>"},
				{Type: TokenInteger, Value: "1"},
				{Type: TokenIdentifier, Value: "b"},
				{Type: TokenOperator, Value: "=<"},
				{Type: TokenInteger, Value: "2"},
				{Type: TokenIdentifier, Value: "c"},
				{Type: TokenOperator, Value: "!:"},
				{Type: TokenInteger, Value: "3"},
			},
		},
		{
			name:  "Signed reals and exponents",
			input: "-1.5 +2 .5 3e4 -7E-2",
			expected: []Token{
				{Type: TokenReal, Value: "-1.5"},
				{Type: TokenInteger, Value: "+2"},
				{Type: TokenReal, Value: ".5"},
				{Type: TokenReal, Value: "3e4"},
				{Type: TokenReal, Value: "-7E-2"},
			},
		},
		{
			name:  "Date and grouping",
			input: "(d<2020-02-29)",
			expected: []Token{
				{Type: TokenLParen, Value: "("},
				{Type: TokenIdentifier, Value: "d"},
				{Type: TokenOperator, Value: "<"},
				{Type: TokenDate, Value: "2020-02-29"},
				{Type: TokenRParen, Value: ")"},
			},
		},
		{
			name:  "Identifier characters",
			input: "foo_bar$-baz",
			expected: []Token{
				{Type: TokenIdentifier, Value: "foo_bar$-baz"},
			},
		},
		{
			name:  "Non-ASCII string and identifier",
			input: `straße:"Björn" and 名前="東京"`,
			expected: []Token{
				{Type: TokenIdentifier, Value: "straße"},
				{Type: TokenOperator, Value: ":"},
				{Type: TokenString, Value: "Björn"},
				{Type: TokenLogical, Value: "and"},
				{Type: TokenIdentifier, Value: "名前"},
				{Type: TokenOperator, Value: "="},
				{Type: TokenString, Value: "東京"},
			},
		},
		{
			name:  "Non-ASCII freetext",
			input: `"Ærø" or 'Ünïcödé'`,
			expected: []Token{
				{Type: TokenString, Value: "Ærø"},
				{Type: TokenLogical, Value: "or"},
				{Type: TokenString, Value: "Ünïcödé"},
			},
		},
		{
			name:  "Escaped quote",
			input: `'it\'s'`,
			expected: []Token{
				{Type: TokenString, Value: "it's"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewTokenizer(tt.input).TokenizeAll()
			require.NoError(t, err)
			require.Len(t, tokens, len(tt.expected)+1)
			for i, want := range tt.expected {
				assert.Equal(t, want.Type, tokens[i].Type, "token %d", i)
				assert.Equal(t, want.Value, tokens[i].Value, "token %d", i)
			}
			assert.Equal(t, TokenEOF, tokens[len(tokens)-1].Type)
		})
	}
}

func TestTokenizerErrors(t *testing.T) {
	for _, input := range []string{`"open`, "a!b", "a.", "1e", "2020-01-", "#"} {
		t.Run(input, func(t *testing.T) {
			_, err := NewTokenizer(input).TokenizeAll()
			assert.Error(t, err)
		})
	}
}

func TestTokenizerPositionsAreByteOffsets(t *testing.T) {
	tokens, err := NewTokenizer(`"é"=1`).TokenizeAll()
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, 0, tokens[0].Pos)
	assert.Equal(t, 4, tokens[1].Pos)
	assert.Equal(t, 5, tokens[2].Pos)
	assert.Equal(t, 6, tokens[3].Pos)
}
