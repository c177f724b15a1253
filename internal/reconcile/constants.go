package reconcile

import "definecore/pkg/define"

// Constants carries the model specific value sets checked during import.
type Constants struct {
	OriginTypes map[define.Model][]string
}

// DefaultConstants returns the Define-XML 2.0 origin types per model.
func DefaultConstants() Constants {
	tabulation := []string{"CRF", "Derived", "Assigned", "Protocol", "eDT", "Predecessor"}
	return Constants{
		OriginTypes: map[define.Model][]string{
			define.ModelSDTM: tabulation,
			define.ModelSEND: tabulation,
			define.ModelADaM: {"Derived", "Assigned", "Predecessor"},
		},
	}
}
