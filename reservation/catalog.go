package reservation

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

type Machine struct {
	ID              MachineID `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Kind            string    `json:"kind" yaml:"kind"`
	DurationMinutes int       `json:"durationMinutes" yaml:"duration_minutes"`
}

type Catalog []Machine

func DefaultCatalog() Catalog {
	return Catalog{
		{ID: "machine1", Name: "Washing Machine 1", Kind: "washer", DurationMinutes: 90},
		{ID: "machine2", Name: "Washing Machine 2", Kind: "washer", DurationMinutes: 90},
		{ID: "dryer", Name: "Dryer", Kind: "dryer", DurationMinutes: 120},
	}
}

type catalogFile struct {
	Machines Catalog `yaml:"machines"`
}

// LoadCatalog reads a machine catalog from a YAML file of the form
//
//	machines:
//	  - id: machine1
//	    name: Washing Machine 1
//	    kind: washer
//	    duration_minutes: 90
func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("failed to open machine catalog: %w", err)
	}

	defer f.Close()

	var file catalogFile

	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode machine catalog %v: %w", path, err)
	}

	if err := file.Machines.validate(); err != nil {
		return nil, fmt.Errorf("invalid machine catalog %v: %w", path, err)
	}

	return file.Machines, nil
}

func (c Catalog) validate() error {
	if len(c) == 0 {
		return errors.New("no machines defined")
	}

	seen := make(map[MachineID]bool, len(c))

	for _, machine := range c {
		if machine.ID == "" {
			return errors.New("machine id cannot be empty")
		}

		if seen[machine.ID] {
			return fmt.Errorf("duplicate machine id %q", machine.ID)
		}

		seen[machine.ID] = true
	}

	return nil
}

func (c Catalog) Has(id MachineID) bool {
	return slices.ContainsFunc(c, func(m Machine) bool { return m.ID == id })
}

func (c Catalog) IDs() []MachineID {
	ids := make([]MachineID, 0, len(c))

	for _, machine := range c {
		ids = append(ids, machine.ID)
	}

	return ids
}
