// Package staging materializes in-memory source data to durable files so
// generated or user-supplied program text can run under an external backend.
// Each call gets its own directory; the caller releases it when the run
// finishes, success or not.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/pipeweld/pipeweld/internal/ir"
)

// Sources collects inline CSV content from source nodes, keyed by the path
// literal the lowerers will emit for that node.
func Sources(nodes []ir.Node) map[string]string {
	out := make(map[string]string)
	for _, n := range nodes {
		if n.NormalizedKind() != ir.KindLoad {
			continue
		}
		if strings.TrimSpace(n.Payload.Content) == "" {
			continue
		}
		path := ir.OrDefault(n.Payload.Path, "uploaded.csv")
		out[path] = n.Payload.Content
	}
	return out
}

// Dir is one staged set of source files.
type Dir struct {
	Root string
	// Mapping holds original path literal to staged file path.
	Mapping map[string]string
}

// Stage writes each source's content into a fresh staging directory and
// returns the path mapping. An empty source set stages nothing and returns a
// Dir whose Cleanup is a no-op.
func Stage(sources map[string]string) (*Dir, error) {
	d := &Dir{Mapping: make(map[string]string, len(sources))}
	if len(sources) == 0 {
		return d, nil
	}

	d.Root = filepath.Join(os.TempDir(), "pipeweld-stage-"+uuid.NewString())
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	for orig, content := range sources {
		name := filepath.Base(orig)
		if name == "." || name == string(filepath.Separator) {
			name = "uploaded.csv"
		}
		staged := filepath.Join(d.Root, name)
		if err := os.WriteFile(staged, []byte(content), 0o644); err != nil {
			d.Cleanup()
			return nil, fmt.Errorf("stage %s: %w", orig, err)
		}
		d.Mapping[orig] = staged
	}
	return d, nil
}

// Cleanup removes the staging directory. Safe to call more than once.
func (d *Dir) Cleanup() {
	if d.Root != "" {
		os.RemoveAll(d.Root)
		d.Root = ""
	}
}

// RewritePython substitutes staged paths into pd.read_csv calls that
// reference an original path literal.
func RewritePython(code string, mapping map[string]string) string {
	for orig, staged := range mapping {
		re := regexp.MustCompile(`pd\.read_csv\(\s*r?["']` + regexp.QuoteMeta(orig) + `["']\s*\)`)
		code = re.ReplaceAllLiteralString(code, fmt.Sprintf("pd.read_csv(r%q)", staged))
	}
	return code
}

// RewriteSQL substitutes staged paths into read_csv_auto calls, with or
// without the header argument.
func RewriteSQL(code string, mapping map[string]string) string {
	for orig, staged := range mapping {
		quoted := regexp.QuoteMeta(orig)
		repl := fmt.Sprintf("read_csv_auto('%s', header=true)", staged)
		withHeader := regexp.MustCompile(`(?i)read_csv_auto\(\s*['"]` + quoted + `['"]\s*,?\s*header\s*=\s*true\s*\)`)
		code = withHeader.ReplaceAllLiteralString(code, repl)
		bare := regexp.MustCompile(`(?i)read_csv_auto\(\s*['"]` + quoted + `['"]\s*\)`)
		code = bare.ReplaceAllLiteralString(code, repl)
	}
	return code
}

// RewriteSpark substitutes staged paths into the spark CSV reader chain.
func RewriteSpark(code string, mapping map[string]string) string {
	for orig, staged := range mapping {
		re := regexp.MustCompile(`spark\.read\.option\(\s*['"]header['"],\s*True\s*\)\.csv\(\s*['"]` +
			regexp.QuoteMeta(orig) + `['"]\s*\)`)
		code = re.ReplaceAllLiteralString(code,
			fmt.Sprintf("spark.read.option('header', True).csv('%s')", staged))
	}
	return code
}
