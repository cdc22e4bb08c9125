package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineWithAllIsIdentity(t *testing.T) {
	leaf := Compare("year", GT, int64(2010))

	assert.Same(t, leaf, All().And(leaf))
	assert.Same(t, leaf, leaf.Or(All()))
	assert.True(t, All().And(All()).IsEmpty())
	assert.True(t, All().Not().IsEmpty())
}

func TestCombineDoesNotMutate(t *testing.T) {
	a := Compare("a", IExact, int64(1))
	b := Compare("b", IExact, int64(2))

	and := a.And(b)
	not := and.Not()

	assert.False(t, and.IsNot)
	assert.True(t, not.IsNot)
	assert.Equal(t, "(a__iexact=1 AND b__iexact=2)", and.String())
	assert.Equal(t, "NOT (a__iexact=1 AND b__iexact=2)", not.String())
	assert.Equal(t, and, not.Not())
}

func TestString(t *testing.T) {
	tests := []struct {
		expr *Expression
		want string
	}{
		{All(), "<all>"},
		{nil, "<all>"},
		{Compare("make", IContains, "vol"), `make__icontains="vol"`},
		{Null("owner_id"), "owner_id__isnull=true"},
		{Compare("a", Exact, Field{Attr: "b"}), "a__exact=F(b)"},
		{Compare("a", LT, 1.5).Or(Compare("b", GTE, int64(3))), "(a__lt=1.5 OR b__gte=3)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.expr.String())
	}
}
