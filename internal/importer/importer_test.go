package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
CHARSET:1252

<OFX>
<BANKMSGSRSV1><STMTTRNRS><STMTRS>
<BANKTRANLIST>
<DTSTART>20240301000000
<DTEND>20240331000000
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240315120000.000[-5:EST]
<TRNAMT>-12.50
<FITID>1
<NAME>A&W 1473
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240316120000.000[-5:EST]
<TRNAMT>100.00
<FITID>2
<NAME>PAYROLL
<MEMO>March
</STMTTRN>
</BANKTRANLIST>
</STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOFXParser_Parse(t *testing.T) {
	p := DefaultRegistry().Get("qfx")
	require.NotNil(t, p)

	txns, err := p.Parse(strings.NewReader(sampleOFX))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "A&W 1473", *txns[0].Payee)
	assert.Equal(t, "March", *txns[1].Memo)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&OFXParser{format: "ofx"})
	p := r.Get("ofx")
	require.NotNil(t, p)
	assert.Equal(t, "ofx", p.Format())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&OFXParser{format: "ofx"})
	assert.Panics(t, func() { r.Register(&OFXParser{format: "OFX"}) })
}

func TestRegistry_ForPath(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.ForPath("/x/stmt.ofx"))
	assert.NotNil(t, r.ForPath("/x/stmt.QFX"))
	assert.Nil(t, r.ForPath("/x/stmt.csv"))
	assert.Nil(t, r.ForPath("/x/ofx"))
}

func TestScan_FindsStatementsRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Household", "Checking", "b.ofx"), "data")
	writeFile(t, filepath.Join(dir, "Household", "Checking", "a.QFX"), "data")
	writeFile(t, filepath.Join(dir, "Household", "Visa", "notes.txt"), "data")

	files, err := DefaultRegistry().Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.QFX", files[0].Name)
	assert.Equal(t, "b.ofx", files[1].Name)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Household", "Checking", "new.ofx"), "data")
	writeFile(t, filepath.Join(dir, "Household", "Checking", "processed", "old.ofx"), "data")

	files, err := DefaultRegistry().Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.ofx", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := DefaultRegistry().Scan(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Household", "Checking", "stmt.ofx")
	writeFile(t, src, "data")

	dst, err := MarkProcessed(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Household", "Checking", "processed", "stmt.ofx"), dst)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dst)
	assert.NoError(t, err)
}

func TestResolvePath(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		name    string
		path    string
		budget  string
		account string
		wantErr bool
	}{
		{"direct", filepath.Join(base, "Household", "Checking", "s.ofx"), "Household", "Checking", false},
		{"nested", filepath.Join(base, "Household", "Checking", "2024", "s.ofx"), "Household", "Checking", false},
		{"spaces", filepath.Join(base, "My Budget", "Joint Visa", "s.qfx"), "My Budget", "Joint Visa", false},
		{"too shallow", filepath.Join(base, "Household", "s.ofx"), "", "", true},
		{"at base", filepath.Join(base, "s.ofx"), "", "", true},
		{"outside", filepath.Join(filepath.Dir(base), "elsewhere", "a", "s.ofx"), "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget, account, err := ResolvePath(base, tt.path)
			if tt.wantErr {
				var pe *PathResolutionError
				require.ErrorAs(t, err, &pe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.budget, budget)
			assert.Equal(t, tt.account, account)
		})
	}
}
