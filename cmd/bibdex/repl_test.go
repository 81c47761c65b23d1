package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibdex/bibdex"
)

const sampleXML = `<dblp>
<article><author>Alice Adams</author><title>Graph Theory</title></article>
<article><author>Bob Brown</author><title>Graph Algorithms</title></article>
<article><author>Alice Adams</author><title>Sorting</title></article>
</dblp>`

func runScript(t *testing.T, dir string, script ...string) string {
	t.Helper()
	db := bibdex.New(bibdex.WithBaseDir(dir))
	var out bytes.Buffer
	err := runREPL(db, strings.NewReader(strings.Join(script, "\n")), &out)
	assert.Nil(t, err)
	return out.String()
}

func TestREPL_Session(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "sample.xml")
	assert.Nil(t, os.WriteFile(xmlPath, []byte(sampleXML), 0644))

	out := runScript(t, dir,
		"create t1",
		"read "+xmlPath,
		"find author Alice",
		"search Graph",
		"top 1",
		"whoami",
		"exit",
	)

	assert.Contains(t, out, "Database t1 is open.")
	assert.Contains(t, out, "READ OK")
	assert.Contains(t, out, "Alice Adams")
	assert.Contains(t, out, "2 record(s) found.")
	assert.Contains(t, out, "SEARCH OK")
	assert.Contains(t, out, "Alice Adams (2)")
	assert.Contains(t, out, "Who am I? Database t1!")
	assert.Contains(t, out, "So long...")
}

func TestREPL_Errors(t *testing.T) {
	dir := t.TempDir()

	out := runScript(t, dir,
		"find author x",
		"open missing",
		"create",
		"bogus",
		"exit",
	)

	assert.Contains(t, out, "Please open a database first.")
	assert.Contains(t, out, "does not exist")
	assert.Contains(t, out, "expected 1 argument(s), but got 0")
	assert.Contains(t, out, "Format: create [name].")
	assert.Contains(t, out, "Command not found: bogus")
}

func TestREPL_ReopenAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "sample.xml")
	assert.Nil(t, os.WriteFile(xmlPath, []byte(sampleXML), 0644))

	runScript(t, dir, "create t1", "read "+xmlPath, "exit")

	out := runScript(t, dir, "open t1", "find author Bob", "exit")
	assert.Contains(t, out, "Bob Brown")
	assert.Contains(t, out, "1 record(s) found.")
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"find", "author", "Alice"}, tokenize("find author Alice"))
	assert.Equal(t, []string{"find", "author", "Alice Adams"}, tokenize(`find author "Alice Adams"`))
	assert.Equal(t, []string{"find", "author", ""}, tokenize(`find author ""`))
	assert.Nil(t, tokenize("   "))
}
