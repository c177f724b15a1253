package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"definecore/pkg/define"
)

// workspace writes a configuration using sqlite and a filesystem blob store
// under a temporary directory.
func workspace(t *testing.T) string {
	t.Helper()
	return workspaceWith(t, "")
}

func workspaceWith(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "model: SDTM\n" + extra +
		"storage:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "define.db") + "\n" +
		"blob:\n  driver: fs\n  root: " + filepath.Join(dir, "blobs") + "\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "definecore.yaml"), []byte(cfg), 0o600))
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "definecore.yaml")}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func showCodeList(t *testing.T, dir, oid string) define.CodeList {
	t.Helper()
	out, err := execute(t, dir, "codelists", "show", oid)
	require.NoError(t, err)
	var cl define.CodeList
	require.NoError(t, json.Unmarshal([]byte(out), &cl))
	return cl
}

const sexPackage = `oid: STD.CT
name: SDTM CT
version: "2024-03-29"
code_lists:
  C66731:
    name: Sex
    extensible: false
    items:
      - coded_value: M
        alias: {context: "nci:ExtCodeID", name: C20197}
      - coded_value: F
        alias: {context: "nci:ExtCodeID", name: C16576}
`

const batch = `datasets:
  - dataset: DM
    label: Demographics
    file_name: dm.xpt
variables:
  - dataset: DM
    variable: USUBJID
    data_type: text
    length: "20"
    mandatory: "Yes"
    key_sequence: "1"
  - dataset: DM
    variable: SEX
    data_type: text
    length: "1"
    origin_type: CRF
codelists:
  - name: SEX
    type: decoded
    data_type: text
coded_values:
  - codelist: SEX
    coded_value: M
    decode: Male
  - codelist: SEX
    coded_value: F
    decode: Female
`

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.True(t, strings.HasPrefix(out.String(), "definecore dev"))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"version", "import", "codelists", "terminology"})
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
	require.NotNil(t, root.PersistentFlags().Lookup("trace"))
}

func TestImportDryRunThenApply(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "batch.yaml", batch)

	out, err := execute(t, dir, "import", "--dry-run", path)
	require.NoError(t, err)
	var summary importSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.False(t, summary.Applied)
	require.Equal(t, 1, summary.Counts["new_item_groups"])
	require.Equal(t, 2, summary.Counts["new_item_defs"])

	out, err = execute(t, dir, "codelists", "list")
	require.NoError(t, err)
	require.NotContains(t, out, "SEX")

	out, err = execute(t, dir, "import", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.True(t, summary.Applied)
	require.NotEmpty(t, summary.BatchID)
	require.Equal(t, 1, summary.Counts["new_code_lists"])

	out, err = execute(t, dir, "codelists", "list")
	require.NoError(t, err)
	require.Contains(t, out, "CL.1")
	require.Contains(t, out, "decoded")

	sex := showCodeList(t, dir, "CL.1")
	require.Equal(t, []string{"CLI.1", "CLI.2"}, sex.ItemOrder)
	require.Equal(t, "Female", sex.CodeListItems["CLI.2"].Decode.Value)

	out, err = execute(t, dir, "import", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.False(t, summary.Applied, "re-importing the same batch changes nothing")
}

func TestImportRejectsBadBatches(t *testing.T) {
	dir := workspace(t)

	_, err := execute(t, dir, "import", writeFile(t, dir, "batch.csv", "dataset\nDM\n"))
	require.ErrorContains(t, err, "expected a .json")

	_, err = execute(t, dir, "import", writeFile(t, dir, "unknown.json", `{"tables": []}`))
	require.ErrorContains(t, err, "decode batch")

	_, err = execute(t, dir, "import", writeFile(t, dir, "orphan.json", `{"variables": [{"dataset": "LB", "variable": "LBTEST"}]}`))
	require.ErrorIs(t, err, define.ErrInvalidReference)

	_, err = execute(t, dir, "import", writeFile(t, dir, "mandatory.yaml", "variables:\n  - dataset: DM\n    variable: AGE\n    mandatory: maybe\n"))
	require.Error(t, err)

	_, err = execute(t, dir, "import")
	require.Error(t, err)
}

func TestCodeListEditCommands(t *testing.T) {
	dir := workspace(t)

	_, err := execute(t, dir, "codelists", "create", "SEX", "--type", "decoded")
	require.NoError(t, err)
	_, err = execute(t, dir, "codelists", "create", "SEXCD")
	require.NoError(t, err)
	_, err = execute(t, dir, "codelists", "create", "BAD", "--type", "tabular")
	require.ErrorContains(t, err, "--type")

	out, err := execute(t, dir, "codelists", "add-value", "CL.1", "M", "F")
	require.NoError(t, err)
	require.Contains(t, out, "applied 2 edit(s)")

	_, err = execute(t, dir, "cl", "link", "CL.1", "CL.2")
	require.NoError(t, err)
	require.Equal(t, "CL.1", showCodeList(t, dir, "CL.2").LinkedCodeListOID)

	_, err = execute(t, dir, "codelists", "link", "CL.1", "CL.404")
	require.Error(t, err)

	_, err = execute(t, dir, "codelists", "link", "CL.2")
	require.NoError(t, err)
	require.Empty(t, showCodeList(t, dir, "CL.1").LinkedCodeListOID)

	_, err = execute(t, dir, "codelists", "set-type", "CL.1", "enumerated")
	require.NoError(t, err)
	sex := showCodeList(t, dir, "CL.1")
	require.Equal(t, define.CodeListEnumerated, sex.Type)
	require.Equal(t, "F", sex.EnumeratedItems["CLI.2"].CodedValue)

	_, err = execute(t, dir, "codelists", "delete-values", "CL.1", "CLI.1")
	require.NoError(t, err)
	require.Equal(t, []string{"CLI.2"}, showCodeList(t, dir, "CL.1").ItemOrder)

	_, err = execute(t, dir, "codelists", "delete", "CL.2")
	require.NoError(t, err)
	_, err = execute(t, dir, "codelists", "show", "CL.2")
	var nf define.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestTerminologyDrivesCodeListStandards(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, dir, "terminology", "load", writeFile(t, dir, "sex.yaml", sexPackage))
	require.NoError(t, err)
	require.Contains(t, out, "stored STD.CT 2024-03-29")

	out, err = execute(t, dir, "ct", "list")
	require.NoError(t, err)
	require.Contains(t, out, "STD.CT")
	require.Contains(t, out, "SDTM CT")

	_, err = execute(t, dir, "codelists", "create", "SEX")
	require.NoError(t, err)
	_, err = execute(t, dir, "codelists", "add-value", "CL.1", "F", "U")
	require.NoError(t, err)

	_, err = execute(t, dir, "codelists", "standard", "CL.1", "--standard", "STD.CT")
	require.ErrorContains(t, err, "--code")

	_, err = execute(t, dir, "codelists", "standard", "CL.1", "--standard", "STD.CT", "--code", "C66731", "--submission-value", "SEX")
	require.NoError(t, err)
	sex := showCodeList(t, dir, "CL.1")
	require.Equal(t, "STD.CT", sex.StandardOID)
	require.Equal(t, "C16576", sex.EnumeratedItems["CLI.1"].Alias.Name)
	require.Equal(t, define.ExtendedValueYes, sex.EnumeratedItems["CLI.2"].ExtendedValue)

	_, err = execute(t, dir, "codelists", "add-value", "CL.1", "UNDIFFERENTIATED")
	require.ErrorIs(t, err, define.ErrNonExtensibleViolation)

	_, err = execute(t, dir, "codelists", "add-value", "CL.1", "M")
	require.NoError(t, err)
	require.Equal(t, "C20197", showCodeList(t, dir, "CL.1").EnumeratedItems["CLI.3"].Alias.Name)
}

func TestTraceFlagWritesSpans(t *testing.T) {
	dir := workspace(t)
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"--config", filepath.Join(dir, "definecore.yaml"), "--trace", "codelists", "create", "SEX"})
	require.NoError(t, root.Execute())
	require.Contains(t, errOut.String(), `"operation":"dispatch"`)
	require.Contains(t, errOut.String(), `"operation":"load_standards"`)
}

func TestBadConfigFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "definecore.yaml", "storage:\n  driver: mongo\n")
	_, err := execute(t, dir, "codelists", "list")
	require.ErrorContains(t, err, "storage.driver")
}

const longNames = `
datasets:
  - dataset: AE
variables:
  - dataset: AE
    variable: AEBODSYSTEM
    label: Body System or Organ Class
`

func TestNamingPluginFollowsConfig(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "ae.yaml", longNames)
	out, err := execute(t, dir, "import", path)
	require.NoError(t, err)
	var summary importSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.True(t, summary.Applied)
	require.Len(t, summary.Warnings, 1)
	require.Contains(t, summary.Warnings[0], "AEBODSYSTEM")

	strict := workspaceWith(t, "naming: block\n")
	path = writeFile(t, strict, "ae.yaml", longNames)
	_, err = execute(t, strict, "import", path)
	var violation define.RuleViolationError
	require.ErrorAs(t, err, &violation)

	off := workspaceWith(t, "naming: \"off\"\n")
	path = writeFile(t, off, "ae.yaml", longNames)
	out, err = execute(t, off, "import", path)
	require.NoError(t, err)
	summary = importSummary{}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Empty(t, summary.Warnings)
}
