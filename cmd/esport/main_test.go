package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmuth/esport/internal/config"
	"github.com/helmuth/esport/internal/elastic"
	"github.com/helmuth/esport/internal/importer"
	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/prompt"
	"github.com/helmuth/esport/internal/record"
	"github.com/helmuth/esport/internal/sink"
)

// cli runs esport against a fresh SQLite index with an empty config directory.
type cli struct {
	t    *testing.T
	host string
	dir  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	return &cli{t: t, host: "sqlite://" + filepath.Join(dir, "index.db"), dir: dir}
}

// run executes one command line and returns stdout and the exit code.
func (c *cli) run(args ...string) (string, int) {
	c.t.Helper()
	var buf bytes.Buffer
	stdout = &buf
	c.t.Cleanup(func() { stdout = os.Stdout })
	resetFlags(rootCmd)

	code := execute(context.Background(), append(args, "--host", c.host))
	return buf.String(), code
}

// mustRun fails the test unless the command succeeds.
func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, code := c.run(args...)
	require.Equal(c.t, ExitSuccess, code, "esport %s: %s", strings.Join(args, " "), out)
	return out
}

func (c *cli) writeFile(name, content string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// withConfirmer answers every confirmation not skipped by --yes with answer.
func withConfirmer(t *testing.T, answer bool) {
	t.Helper()
	orig := confirmerFor
	confirmerFor = func(assumeYes bool) (prompt.Confirmer, error) {
		return prompt.Always(assumeYes || answer), nil
	}
	t.Cleanup(func() { confirmerFor = orig })
}

// withoutTerminal makes confirmations behave as if stdin were a pipe.
func withoutTerminal(t *testing.T) {
	t.Helper()
	orig := confirmerFor
	confirmerFor = func(assumeYes bool) (prompt.Confirmer, error) {
		return prompt.Require(prompt.NewConsoleFrom(strings.NewReader(""), io.Discard), assumeYes)
	}
	t.Cleanup(func() { confirmerFor = orig })
}

// resetFlags restores every flag to its default; cobra keeps values between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"declined", errCancelled, ExitCancelled},
		{"interrupted", fmt.Errorf("exporting: %w", context.Canceled), ExitCancelled},
		{"config", fmt.Errorf("%w: bad host", config.ErrInvalid), ExitConfigError},
		{"missing document", fmt.Errorf("getting x: %w", index.ErrNotFound), ExitNotFound},
		{"missing index from cluster", &elastic.APIError{StatusCode: 404, Type: "index_not_found_exception"}, ExitNotFound},
		{"parse", &importer.ParseError{Path: "a.csv", Line: 2, Err: record.ErrMalformedCell}, ExitDataError},
		{"validation", &importer.ValidationError{Path: "a.txt", Reason: "unsupported"}, ExitDataError},
		{"invalid request", fmt.Errorf("%w: size", index.ErrInvalidRequest), ExitDataError},
		{"unknown kind", fmt.Errorf("%w: \"x\"", record.ErrUnknownKind), ExitDataError},
		{"bad query", &elastic.APIError{StatusCode: 400, Type: "search_phase_execution_exception"}, ExitDataError},
		{"retrieval", &index.RetrievalError{Op: "advance", Index: "people", Err: index.ErrCursorExpired}, ExitRetrieval},
		{"network", fmt.Errorf("%w: refused", elastic.ErrNetwork), ExitRetrieval},
		{"auth", &elastic.APIError{StatusCode: 401}, ExitRetrieval},
		{"server", &elastic.APIError{StatusCode: 500}, ExitRetrieval},
		{"resource", &sink.ResourceError{Op: "create", Path: "/x", Err: os.ErrPermission}, ExitError},
		{"other", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestSplitFields(t *testing.T) {
	assert.Nil(t, splitFields(""))
	assert.Nil(t, splitFields(" , "))
	assert.Equal(t, []string{"name", "age"}, splitFields("name, age,"))
	assert.Equal(t, []string{"user*"}, splitFields("user*"))
}

func TestDocPutGetList(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("doc", "put", "people", `{"name":"Ann","age":31}`, "--id", "p1")
	var put PutResult
	require.NoError(t, json.Unmarshal([]byte(out), &put))
	assert.Equal(t, PutResult{Index: "people", ID: "p1", Result: "stored"}, put)

	out = c.mustRun("doc", "get", "people", "p1")
	assert.JSONEq(t, `[{"_id":"p1","_source":{"name":"Ann","age":31}}]`, out)

	out = c.mustRun("doc", "get", "people", "p1", "--human")
	assert.Equal(t, "p1\t{\"name\":\"Ann\",\"age\":31}\n", out)

	c.mustRun("doc", "put", "people", `{"name":"Bob"}`, "--id", "p2")
	out = c.mustRun("doc", "list", "people", "--size", "1", "--page", "1")
	assert.JSONEq(t, `[{"_id":"p2","_source":{"name":"Bob"}}]`, out)
}

func TestDocErrors(t *testing.T) {
	c := newCLI(t)
	c.mustRun("index", "create", "people")

	out, code := c.run("doc", "get", "people", "nope")
	assert.Equal(t, ExitNotFound, code)
	assert.Contains(t, out, `"error"`)

	_, code = c.run("doc", "put", "people", `[1,2]`)
	assert.Equal(t, ExitDataError, code)

	_, code = c.run("doc", "list", "people", "--size", "0")
	assert.Equal(t, ExitDataError, code)
}

func TestImportExportRoundTrip(t *testing.T) {
	c := newCLI(t)
	csvPath := c.writeFile("people.csv", "_id,name,age,tags,active\n"+
		"p1,Ann,31,\"[\"\"a\"\",\"\"b\"\"]\",true\n"+
		"p2,Bob,42,[],false\n")

	out := c.mustRun("index", "import", "people", "--file", csvPath, "--yes")
	var res ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 2, res.Indexed)
	assert.Zero(t, res.Failed)

	jsonPath := filepath.Join(c.dir, "out.json")
	out = c.mustRun("index", "export", "people", "--output", jsonPath, "--size", "1")
	var stats ExportResult
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, sink.KindJSON, stats.Sink)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"Ann","age":"31","tags":["a","b"],"active":"true"},
		{"name":"Bob","age":"42","tags":[],"active":"false"}
	]`, string(data))

	outCSV := filepath.Join(c.dir, "out.csv")
	c.mustRun("index", "export", "people", "--output", outCSV, "--header")
	data, err = os.ReadFile(outCSV)
	require.NoError(t, err)
	assert.Equal(t, "name,age,tags,active\n"+
		"Ann,31,\"[\"\"a\"\",\"\"b\"\"]\",true\n"+
		"Bob,42,[],false\n", string(data))

	out = c.mustRun("index", "export", "people", "--query", "name:bob", "--include", "name")
	assert.Equal(t, "p2\t{\"name\":\"Bob\"}\n", out)

	out = c.mustRun("index", "count", "people")
	assert.JSONEq(t, `[{"index":"people","count":2}]`, out)
}

func TestExportRejectsBadRequestBeforeWriting(t *testing.T) {
	c := newCLI(t)
	c.mustRun("index", "create", "people")
	outPath := filepath.Join(c.dir, "out.csv")

	_, code := c.run("index", "export", "people", "--ttl", "10", "--output", outPath)
	assert.Equal(t, ExitDataError, code)
	assert.NoFileExists(t, outPath)

	_, code = c.run("index", "export", "missing", "--output", outPath)
	assert.Equal(t, ExitNotFound, code)
}

func TestImportDeclinedOrEmpty(t *testing.T) {
	c := newCLI(t)
	csvPath := c.writeFile("people.csv", "name\nAnn\n")

	withConfirmer(t, false)
	out := c.mustRun("index", "import", "people", "--file", csvPath)
	var res ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Zero(t, res.Records)
	assert.Equal(t, "no records to import", res.Message)

	empty := c.writeFile("empty.csv", "")
	withConfirmer(t, true)
	out = c.mustRun("index", "import", "people", "--file", empty, "--human")
	assert.Contains(t, out, "No records to import")

	out = c.mustRun("index", "list")
	assert.JSONEq(t, `[]`, out)
}

func TestImportErrors(t *testing.T) {
	c := newCLI(t)

	bad := c.writeFile("bad.csv", "name,meta\nAnn,{not json}\n")
	_, code := c.run("index", "import", "people", "--file", bad, "--yes")
	assert.Equal(t, ExitDataError, code)

	txt := c.writeFile("people.txt", "name\nAnn\n")
	_, code = c.run("index", "import", "people", "--file", txt, "--yes")
	assert.Equal(t, ExitDataError, code)

	withoutTerminal(t)
	good := c.writeFile("good.csv", "name\nAnn\n")
	out, code := c.run("index", "import", "people", "--file", good)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, out, "--yes")
}

func TestImportJSON(t *testing.T) {
	c := newCLI(t)
	path := c.writeFile("people.json", `[{"_id":"p1","name":"Ann"},{"name":"Bob","age":42}]`)

	out := c.mustRun("index", "import", "people", "--file", path)
	var res ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Indexed)

	out = c.mustRun("doc", "get", "people", "p1")
	assert.JSONEq(t, `[{"_id":"p1","_source":{"name":"Ann"}}]`, out)
}

func TestSearch(t *testing.T) {
	c := newCLI(t)
	c.mustRun("doc", "put", "people", `{"name":"Ann","city":"Oslo"}`, "--id", "p1")
	c.mustRun("doc", "put", "people", `{"name":"Bob","city":"Oslo"}`, "--id", "p2")
	c.mustRun("doc", "put", "people", `{"name":"Cy","city":"Porto"}`, "--id", "p3")

	out := c.mustRun("search", "people", "city:oslo and name:bob")
	assert.JSONEq(t, `[{"_id":"p2","_source":{"name":"Bob","city":"Oslo"}}]`, out)

	out = c.mustRun("search", "people", "city:oslo", "--exclude", "city", "--human", "--header")
	assert.Equal(t, "[name]\np1\t{\"name\":\"Ann\"}\np2\t{\"name\":\"Bob\"}\n", out)

	tsv := filepath.Join(c.dir, "hits.tsv")
	out = c.mustRun("search", "people", "city:oslo", "--output", tsv, "--size", "1", "--page", "1")
	var res ExportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Records)
	data, err := os.ReadFile(tsv)
	require.NoError(t, err)
	assert.Equal(t, "Bob\tOslo\n", string(data))

	_, code := c.run("search", "people", `name:"unterminated`)
	assert.Equal(t, ExitDataError, code)
}

func TestIndexAdmin(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("index", "list")
	assert.JSONEq(t, `[]`, out)

	c.mustRun("index", "create", "people")
	_, code := c.run("index", "create", "people")
	assert.Equal(t, ExitError, code)

	out = c.mustRun("index", "list", "--human")
	assert.Contains(t, out, "people")

	out = c.mustRun("index", "settings", "people")
	assert.Contains(t, out, `"people"`)

	c.mustRun("doc", "put", "people", `{"name":"Ann","age":31}`)
	out = c.mustRun("index", "mappings", "people")
	assert.Contains(t, out, `"long"`)

	withoutTerminal(t)
	_, code = c.run("index", "delete", "people")
	assert.Equal(t, ExitError, code)

	withConfirmer(t, false)
	_, code = c.run("index", "delete", "people")
	assert.Equal(t, ExitCancelled, code)

	out = c.mustRun("index", "delete", "people", "--yes")
	assert.JSONEq(t, `{"status":"deleted","index":"people"}`, out)

	_, code = c.run("index", "count", "people")
	assert.Equal(t, ExitNotFound, code)
}

func TestHealth(t *testing.T) {
	c := newCLI(t)
	c.mustRun("index", "create", "people")

	out := c.mustRun("health")
	var h index.Health
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, "local", h.ClusterName)
	assert.Equal(t, "green", h.Status)
	assert.Equal(t, 1, h.ActiveShards)
}

func TestSampleCreate(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("sample", "create", "--kind", "person", "--count", "5", "--seed", "7")
	var res SampleResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, SampleResult{Index: "person", Kind: "person", Indexed: 5}, res)

	withConfirmer(t, false)
	_, code := c.run("sample", "create", "--kind", "person", "--count", "3")
	assert.Equal(t, ExitCancelled, code)

	out = c.mustRun("sample", "create", "--kind", "person", "--count", "3", "--yes")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Indexed)

	out = c.mustRun("index", "count", "person")
	assert.JSONEq(t, `[{"index":"person","count":3}]`, out)

	_, code = c.run("sample", "create", "--kind", "unicorn")
	assert.Equal(t, ExitDataError, code)
}

func TestConfigCommands(t *testing.T) {
	c := newCLI(t)
	want := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "esport", "config.yml")

	out := c.mustRun("config", "path")
	assert.JSONEq(t, fmt.Sprintf(`{"status":"ok","path":%q}`, want), out)

	c.mustRun("config", "init")
	assert.FileExists(t, want)
	_, code := c.run("config", "init")
	assert.Equal(t, ExitError, code)
	c.mustRun("config", "init", "--force")

	t.Setenv("ESPORT_PASSWORD", "hunter2")
	out = c.mustRun("config", "show", "--human")
	assert.Contains(t, out, "host: "+c.host)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")

	out = c.mustRun("config", "show")
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, c.host, doc["host"])
}

func TestInvalidHost(t *testing.T) {
	c := newCLI(t)
	c.host = "ftp://example.com"

	out, code := c.run("health")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, out, "ftp://example.com")

	// path and init work without a valid configuration
	c.mustRun("config", "path")
}
