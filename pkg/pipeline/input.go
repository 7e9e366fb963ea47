package pipeline

import (
	"encoding/json"
	"os"

	"assertscan/pkg/errors"
)

type inputFile struct {
	Rows []inputRow `json:"rows"`
}

type inputRow struct {
	Project string `json:"project"`
}

// LoadPackages reads the package list from path. The file holds a JSON
// object with a "rows" array of records, each carrying a "project" name.
// Rows with a blank name are skipped.
func LoadPackages(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading package list %s", path)
	}

	var in inputFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing package list %s", path)
	}

	packages := make([]string, 0, len(in.Rows))
	for _, row := range in.Rows {
		if row.Project == "" {
			continue
		}
		packages = append(packages, row.Project)
	}
	return packages, nil
}
