package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestName_FirstFiveWords(t *testing.T) {
	name := SuggestName("What was the total revenue per region last quarter?")
	assert.Equal(t, "genie_what_was_the_total_revenue", name)
}

func TestSuggestName_EmptyQuestion(t *testing.T) {
	assert.Equal(t, "genie_query", SuggestName(""))
	assert.Equal(t, "genie_query", SuggestName("???"))
}

func TestSanitizeName_StripsAndLowercases(t *testing.T) {
	assert.Equal(t, "top_10_customers", sanitizeName("Top 10 Customers!"))
	assert.Equal(t, "a_b_c", sanitizeName("a-b.c"))
}

func TestSanitizeName_DigitPrefix(t *testing.T) {
	assert.Equal(t, "fn_2024_sales", sanitizeName("2024 sales"))
}

func TestSanitizeName_CapsLength(t *testing.T) {
	long := strings.Repeat("abcde_", 20)
	name := sanitizeName(long)
	assert.LessOrEqual(t, len(name), maxNameLen)
	assert.False(t, strings.HasSuffix(name, "_"))
}

func TestDisambiguate_StableAndDistinct(t *testing.T) {
	a := disambiguate("genie_sales", "SELECT 1", minDigestWidth)
	b := disambiguate("genie_sales", "SELECT 1", minDigestWidth)
	c := disambiguate("genie_sales", "SELECT 2", minDigestWidth)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "genie_sales_"))
}

func TestDisambiguate_WidthGrowsSuffix(t *testing.T) {
	narrow := disambiguate("genie_sales", "SELECT 1", minDigestWidth)
	wide := disambiguate("genie_sales", "SELECT 1", maxDigestWidth)

	assert.NotEqual(t, narrow, wide)
	assert.True(t, strings.HasPrefix(wide, narrow))
}

func TestDisambiguate_RespectsLengthCap(t *testing.T) {
	long := strings.Repeat("a", maxNameLen)
	for width := minDigestWidth; width <= maxDigestWidth; width++ {
		name := disambiguate(long, "SELECT 1", width)
		assert.LessOrEqual(t, len(name), maxNameLen)
	}
}
