// Package runtime executes backend program text and returns its tabular
// result. Each backend runs out of process under its own interpreter, with a
// per-call scratch directory, so nothing leaks between calls.
//
// The imperative backends (pandas, PySpark) get a footer appended that
// serializes the program's final `result` value to CSV; the SQL backend's
// result set is read straight off the DuckDB CLI's CSV output.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pipeweld/pipeweld/internal/codegen"
	"github.com/pipeweld/pipeweld/internal/tabular"
)

// A Runtime executes program text for one backend.
type Runtime interface {
	Name() string
	Execute(ctx context.Context, program string) (tabular.Table, error)
}

// ForLanguage returns the runtime for a lowering target.
func ForLanguage(lang codegen.Language) (Runtime, bool) {
	switch codegen.Language(strings.ToLower(string(lang))) {
	case codegen.LangPython:
		return &Python{}, true
	case codegen.LangSQL:
		return &DuckDB{}, true
	case codegen.LangSpark:
		return &Spark{}, true
	default:
		return nil, false
	}
}

// Python runs pandas programs under a Python interpreter.
type Python struct {
	// Bin overrides the interpreter binary, default python3.
	Bin string
}

func (p *Python) Name() string { return "python" }

func (p *Python) Execute(ctx context.Context, program string) (tabular.Table, error) {
	return runScript(ctx, p.Name(), firstOf(p.Bin, "python3"), "program.py", program,
		"result.to_csv(r%q, index=False)")
}

// Spark runs PySpark programs. The interpreter must have pyspark on its
// path; the generated program creates its own session.
type Spark struct {
	Bin string
}

func (s *Spark) Name() string { return "spark" }

func (s *Spark) Execute(ctx context.Context, program string) (tabular.Table, error) {
	return runScript(ctx, s.Name(), firstOf(s.Bin, "python3"), "program.py", program,
		"result.toPandas().to_csv(r%q, index=False)")
}

// DuckDB runs SQL programs under the duckdb CLI and parses its CSV output.
type DuckDB struct {
	Bin string
}

func (d *DuckDB) Name() string { return "sql" }

func (d *DuckDB) Execute(ctx context.Context, program string) (tabular.Table, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, firstOf(d.Bin, "duckdb"), "-csv", "-c", program)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return tabular.Table{}, fmt.Errorf("%s runtime: %w: %s", d.Name(), err, strings.TrimSpace(stderr.String()))
	}
	t, err := tabular.ReadCSVString(stdout.String())
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%s runtime: parse output: %w", d.Name(), err)
	}
	return t, nil
}

// runScript writes the program plus a CSV-emitting footer into a scratch
// directory, runs it, and reads the emitted table back.
func runScript(ctx context.Context, name, bin, scriptName, program, footerFormat string) (tabular.Table, error) {
	dir := filepath.Join(os.TempDir(), "pipeweld-run-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return tabular.Table{}, fmt.Errorf("%s runtime: scratch dir: %w", name, err)
	}
	defer os.RemoveAll(dir)

	outPath := filepath.Join(dir, "result.csv")
	script := program + "\n" + fmt.Sprintf(footerFormat, outPath) + "\n"
	scriptPath := filepath.Join(dir, scriptName)
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return tabular.Table{}, fmt.Errorf("%s runtime: write program: %w", name, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, scriptPath)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return tabular.Table{}, fmt.Errorf("%s runtime: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	t, err := tabular.ReadCSVFile(outPath)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%s runtime: read result: %w", name, err)
	}
	return t, nil
}

func firstOf(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
