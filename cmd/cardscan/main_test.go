package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVCFCommand(t *testing.T) {
	out, err := runCLI(t, `[{"name":"Acme Traders","company":"Acme Traders","phones":["9829550499"]},{"company":"Beta"}]`, "vcf")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VCARD"))
	assert.Contains(t, out, "9829550499")

	dir := t.TempDir()
	in := filepath.Join(dir, "contacts.json")
	require.NoError(t, os.WriteFile(in, []byte(`[{"company":"Gamma"}]`), 0o644))
	dst := filepath.Join(dir, "out.vcf")
	_, err = runCLI(t, "", "vcf", in, "--out", dst)
	require.NoError(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(b), "ORG:Gamma")

	_, err = runCLI(t, "not json", "vcf")
	assert.ErrorContains(t, err, "decode contacts")
}

func TestVCFCommand_IgnoresBrokenConfig(t *testing.T) {
	t.Setenv("CARDSCAN_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	_, err := runCLI(t, `[]`, "vcf")
	assert.NoError(t, err)

	_, err = runCLI(t, "", "dbhealth")
	assert.Error(t, err)
}

func TestExtractCommand_RejectsUnsupportedFiles(t *testing.T) {
	t.Setenv("CARDSCAN_CONFIG", "")
	_, err := runCLI(t, "", "extract", "card.pdf")
	assert.ErrorContains(t, err, "unsupported image type")
}

func TestImportCommand_RequiresUser(t *testing.T) {
	t.Setenv("CARDSCAN_CONFIG", "")
	_, err := runCLI(t, "", "import", t.TempDir())
	assert.ErrorContains(t, err, "user-email")
}

func TestRenderKV(t *testing.T) {
	out := renderKV([][2]string{{"Company", "Acme"}, {"Email", "a@acme.in"}})
	assert.Contains(t, out, "Company")
	assert.Contains(t, out, "a@acme.in")
}
