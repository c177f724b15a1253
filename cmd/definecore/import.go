package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"definecore/pkg/define"
)

// importSummary is printed after an import or preview.
type importSummary struct {
	BatchID  string         `json:"batch_id"`
	Applied  bool           `json:"applied"`
	Counts   map[string]int `json:"counts"`
	Warnings []string       `json:"warnings,omitempty"`
}

func newImportCommand(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Reconcile a batch of dataset, variable, codelist and coded value records",
		Long: `Reads a JSON or YAML batch holding any of the datasets, variables, codelists
and coded_values record lists and merges it into the graph. Records are matched
by name; blank fields never overwrite existing values. A failing batch changes
nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			batch, err := readBatch(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				diff, err := a.svc.Preview(cmd.Context(), batch)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), importSummary{BatchID: diff.BatchID, Counts: diff.Counts()})
			}
			diff, res, err := a.svc.Import(cmd.Context(), batch)
			if err != nil {
				return err
			}
			summary := importSummary{BatchID: diff.BatchID, Applied: !diff.Empty(), Counts: diff.Counts()}
			for _, v := range res.Violations {
				summary.Warnings = append(summary.Warnings, v.Message)
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the reconciled diff counts without applying them")
	return cmd
}

// readBatch decodes a batch file, rejecting unknown fields.
func readBatch(path string) (define.ImportBatch, error) {
	var batch define.ImportBatch
	format, err := formatOf(path)
	if err != nil {
		return batch, err
	}
	f, err := os.Open(path)
	if err != nil {
		return batch, err
	}
	defer f.Close()
	switch format {
	case "json":
		dec := json.NewDecoder(f)
		dec.DisallowUnknownFields()
		err = dec.Decode(&batch)
	default:
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		err = dec.Decode(&batch)
	}
	if err != nil {
		return define.ImportBatch{}, fmt.Errorf("decode batch %s: %w", path, err)
	}
	return batch, nil
}
