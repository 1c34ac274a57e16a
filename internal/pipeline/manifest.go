package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrdiff/internal/resolve"
)

// manifestEntry is one range-run result as serialized to the manifest.
type manifestEntry struct {
	Date             string `yaml:"date"`
	CustomerSnapshot string `yaml:"customer_snapshot"`
	Changes          int    `yaml:"changes"`
	Output           string `yaml:"output"`
}

// WriteManifest writes a YAML summary of a range run for downstream audit
// tooling: one entry per processed date.
func WriteManifest(path string, results []Result) error {
	entries := make([]manifestEntry, len(results))
	for i, r := range results {
		entries[i] = manifestEntry{
			Date:             r.Date.Format(resolve.DateLayout),
			CustomerSnapshot: r.CustomerSnapshot.Format(resolve.DateLayout),
			Changes:          r.Changes,
			Output:           r.OutputPath,
		}
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write manifest %s", path)
	}
	return nil
}
