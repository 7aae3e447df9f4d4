package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"large-file-man/internal/scanner"
	"large-file-man/internal/script"
	"large-file-man/internal/store"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// isolate keeps a developer's own config file and LFM_* variables out of
// the run.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{"LFM_MIN_SIZE_MB", "LFM_MAX_COUNT", "LFM_INVENTORY", "LFM_DIALECT", "LFM_TOKEN", "LFM_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	chdir(t, dir)
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func writeSized(t *testing.T, path string, size int64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(size))
}

// tree creates files of 100 B, 1 KiB, 2 KiB and 3 KiB under a fresh root.
func tree(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	writeSized(t, filepath.Join(root, "tiny.txt"), 100)
	writeSized(t, filepath.Join(root, "a", "one.bin"), 1024)
	writeSized(t, filepath.Join(root, "a", "b", "two.bin"), 2048)
	writeSized(t, filepath.Join(root, "three.bin"), 3072)
	return root
}

// 0.001 MB is 1048 bytes: only the 2 KiB and 3 KiB files qualify.
const smallThreshold = "0.001"

func TestScan_WritesInventoryAndSummary(t *testing.T) {
	dir := isolate(t)
	root := tree(t)
	inv := filepath.Join(dir, "out", "fichiers_gros.json")

	res := runCLI(t, "", "scan", root, "--inventory", inv, "--min-size-mb", smallThreshold)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Nombre total de fichiers trouves : 4")
	assert.Contains(t, res.stdout, "Nombre de fichiers après filtrage : 2")
	assert.Contains(t, res.stdout, inv)
	assert.Contains(t, res.stdout, filepath.Join(root, "three.bin"))

	entries, err := store.Load(inv)
	require.NoError(t, err)
	assert.Equal(t, []store.Entry{
		{Path: filepath.Join(root, "three.bin"), Size: 3072},
		{Path: filepath.Join(root, "a", "b", "two.bin"), Size: 2048},
	}, entries)

	data, err := os.ReadFile(inv)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Nom du fichier": "three.bin"`)
}

func TestScan_MaxCountAndPairs(t *testing.T) {
	dir := isolate(t)
	root := tree(t)
	inv := filepath.Join(dir, "inv.json")

	res := runCLI(t, "", "scan", root, "--inventory", inv, "--min-size-mb", "0", "--max-count", "1", "--format", "pairs")
	require.Equal(t, exitOK, res.code, res.stderr)

	data, err := os.ReadFile(inv)
	require.NoError(t, err)
	var pairs [][2]any
	require.NoError(t, json.Unmarshal(data, &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, filepath.Join(root, "three.bin"), pairs[0][0])
}

func TestScan_JSONSummary(t *testing.T) {
	dir := isolate(t)
	root := tree(t)
	inv := filepath.Join(dir, "inv.json")

	res := runCLI(t, "", "scan", root, "--inventory", inv, "--min-size-mb", smallThreshold, "--json")
	require.Equal(t, exitOK, res.code, res.stderr)

	var sum scanSummary
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &sum))
	assert.Equal(t, root, sum.Root)
	assert.Equal(t, 4, sum.Found)
	assert.Equal(t, 2, sum.Kept)
	assert.Equal(t, inv, sum.Inventory)
	require.Len(t, sum.Preview, 2)
	assert.Equal(t, int64(3072), sum.Preview[0].Size)
}

func TestScan_PreviewIsCapped(t *testing.T) {
	dir := isolate(t)
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		writeSized(t, filepath.Join(root, fmt.Sprintf("f%d.bin", i)), int64(100+i))
	}

	res := runCLI(t, "", "scan", root, "--inventory", filepath.Join(dir, "inv.json"), "--min-size-mb", "0", "--json")
	require.Equal(t, exitOK, res.code, res.stderr)
	var sum scanSummary
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &sum))
	assert.Equal(t, 8, sum.Kept)
	assert.Len(t, sum.Preview, previewCount)
}

func TestScan_BadRoot(t *testing.T) {
	dir := isolate(t)
	inv := filepath.Join(dir, "inv.json")

	res := runCLI(t, "", "scan", filepath.Join(dir, "missing"), "--inventory", inv)
	assert.Equal(t, exitBadRoot, res.code)
	assert.NoFileExists(t, inv)

	res = runCLI(t, "", "scan", "--inventory", inv)
	assert.Equal(t, exitBadRoot, res.code, "empty answer to the root prompt")
}

func TestScan_PromptsForRootAndThresholds(t *testing.T) {
	dir := isolate(t)
	root := tree(t)
	inv := filepath.Join(dir, "inv.json")

	stdin := root + "\n" + smallThreshold + "\n1\n"
	res := runCLI(t, stdin, "scan", "--interactive", "--inventory", inv)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Entrez le chemin du repertoire")
	assert.Contains(t, res.stdout, "Taille minimale des fichiers en Mo")

	entries, err := store.Load(inv)
	require.NoError(t, err)
	assert.Equal(t, []store.Entry{{Path: filepath.Join(root, "three.bin"), Size: 3072}}, entries)
}

func TestScan_InvalidThresholdsFallBack(t *testing.T) {
	dir := isolate(t)
	root := tree(t)
	inv := filepath.Join(dir, "inv.json")

	res := runCLI(t, "", "scan", root, "--inventory", inv, "--min-size-mb", "beaucoup", "--max-count", "x")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "invalid minimum size")
	assert.Contains(t, res.stderr, "invalid maximum count")
	// 10 MB default leaves nothing
	assert.Contains(t, res.stdout, "Aucun fichier ne correspond")
}

func TestScan_EnvOverridesConfigFile(t *testing.T) {
	dir := isolate(t)
	root := tree(t)
	inv := filepath.Join(dir, "inv.json")
	cfg := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("min_size_mb = \"0\"\nmax_count = \"3\"\n"), 0o644))
	t.Setenv("LFM_MAX_COUNT", "2")

	res := runCLI(t, "", "--config", cfg, "scan", root, "--inventory", inv)
	require.Equal(t, exitOK, res.code, res.stderr)
	entries, err := store.Load(inv)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestScan_UnknownFormat(t *testing.T) {
	isolate(t)
	res := runCLI(t, "", "scan", tree(t), "--format", "csv")
	assert.Equal(t, exitFatal, res.code)
}

func scannedInventory(t *testing.T, dir string) (string, string) {
	t.Helper()
	root := tree(t)
	inv := filepath.Join(dir, "inv.json")
	res := runCLI(t, "", "scan", root, "--inventory", inv, "--min-size-mb", smallThreshold)
	require.Equal(t, exitOK, res.code, res.stderr)
	return root, inv
}

func TestScript_All(t *testing.T) {
	dir := isolate(t)
	root, inv := scannedInventory(t, dir)

	res := runCLI(t, "", "script", "--all", "--inventory", inv, "--dialect", "sh")
	require.Equal(t, exitOK, res.code, res.stderr)

	dest := filepath.Join(dir, script.DefaultFileName(script.DialectPOSIX))
	assert.Contains(t, res.stdout, dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "rm -f -- "))
	assert.Contains(t, string(data), filepath.Join(root, "three.bin"))
	assert.FileExists(t, filepath.Join(root, "three.bin"), "nothing is deleted")
}

func TestScript_FromStdinAndArgs(t *testing.T) {
	dir := isolate(t)
	root, inv := scannedInventory(t, dir)
	dest := filepath.Join(dir, "custom.ps1")

	stdin := filepath.Join(root, "three.bin") + "\r\n\n"
	res := runCLI(t, stdin, "script", filepath.Join(root, "tiny.txt"), "--from", "-",
		"--inventory", inv, "--dialect", "powershell", "--token", "YES", "-o", dest)
	require.Equal(t, exitOK, res.code, res.stderr)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	text := string(data)
	assert.Equal(t, 2, strings.Count(text, "Remove-Item -LiteralPath "))
	assert.Contains(t, text, "-ceq 'YES'")
	assert.Contains(t, res.stderr, "not in the inventory", "tiny.txt was filtered out by the scan")
}

func TestScript_EmptySelection(t *testing.T) {
	dir := isolate(t)
	inv := filepath.Join(dir, "inv.json")
	require.NoError(t, store.PersistPairs(nil, inv))

	res := runCLI(t, "", "script", "--all", "--inventory", inv, "--dialect", "sh")
	assert.Equal(t, exitFatal, res.code)
	assert.Contains(t, res.stdout, "Aucun fichier sélectionné !")
	assert.NoFileExists(t, filepath.Join(dir, script.DefaultFileName(script.DialectPOSIX)))
}

func TestScript_MissingInventory(t *testing.T) {
	dir := isolate(t)
	res := runCLI(t, "", "script", "--all", "--inventory", filepath.Join(dir, "absent.json"), "--dialect", "sh")
	assert.Equal(t, exitFatal, res.code)
	assert.Contains(t, res.stderr, "run scan first")
}

func TestScript_BadDialect(t *testing.T) {
	dir := isolate(t)
	res := runCLI(t, "", "script", "/x", "--inventory", filepath.Join(dir, "inv.json"), "--dialect", "cmd")
	assert.Equal(t, exitFatal, res.code)
}

func TestReadPathList_File(t *testing.T) {
	dir := isolate(t)
	list := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(list, []byte("/a/b c.bin\n\n  \n/d.bin\r\n"), 0o644))

	a := newApp(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	paths, err := a.readPathList(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b c.bin", "/d.bin"}, paths)

	_, err = a.readPathList(filepath.Join(dir, "nope.txt"))
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFatal, exitCode(errors.New("boom")))
	assert.Equal(t, exitBadRoot, exitCode(&scanner.DirectoryNotFoundError{Path: "/x", Err: os.ErrNotExist}))
	assert.Equal(t, exitFatal, exitCode(script.ErrEmptySelection))
}
