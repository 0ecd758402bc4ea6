package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSQL_CollapsesWhitespaceAndCase(t *testing.T) {
	a := NormalizeSQL("select  *\nfrom   orders\twhere id = 1")
	b := NormalizeSQL("SELECT * FROM orders WHERE id = 1")
	assert.Equal(t, b, a)
	assert.Equal(t, "SELECT * FROM ORDERS WHERE ID = 1", a)
}

func TestNormalizeSQL_StripsComments(t *testing.T) {
	sql := `-- leading comment
SELECT * /* inline
comment */ FROM orders -- trailing`
	assert.Equal(t, "SELECT * FROM ORDERS", NormalizeSQL(sql))
}

func TestNormalizeSQL_PreservesStringLiterals(t *testing.T) {
	a := NormalizeSQL("select * from t where region = 'emea'")
	b := NormalizeSQL("select * from t where region = 'EMEA'")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "'emea'")
}

func TestNormalizeSQL_EscapedQuoteInsideLiteral(t *testing.T) {
	out := NormalizeSQL("select 'it''s -- not a comment' from t")
	assert.Contains(t, out, "'it''s -- not a comment'")
	assert.Contains(t, out, "FROM T")
}

func TestNormalizeSQL_QuotedIdentifiersKeepCase(t *testing.T) {
	out := NormalizeSQL(`select "MixedCase", ` + "`back Tick`" + ` from t`)
	assert.Contains(t, out, `"MixedCase"`)
	assert.Contains(t, out, "`back Tick`")
}

func TestNormalizeSQL_TrailingSemicolons(t *testing.T) {
	assert.Equal(t,
		NormalizeSQL("SELECT 1"),
		NormalizeSQL("SELECT 1;"))
	assert.Equal(t,
		NormalizeSQL("SELECT 1"),
		NormalizeSQL("SELECT 1 ;  "))
}

func TestNormalizeSQL_UnterminatedComment(t *testing.T) {
	assert.Equal(t, "SELECT 1", NormalizeSQL("SELECT 1 /* dangling"))
}

func TestNormalizeSQL_Idempotent(t *testing.T) {
	sql := "select  a, 'Lit''eral' -- c\nfrom t;"
	once := NormalizeSQL(sql)
	assert.Equal(t, once, NormalizeSQL(once))
}
