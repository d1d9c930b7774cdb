package classify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultOwners is the built-in CRM user table. Two ids share a display name.
var defaultOwners = map[string]string{
	"570692000000284001": "Akash Kumar",
	"570692000000696001": "Dr. Harshit Kukreja",
	"570692000001303016": "Rahul Namdeo",
	"570692000015545001": "Rashid Hussain",
	"570692000021553001": "Sahil Kumar",
	"570692000021084001": "Team",
	"570692000034410001": "Kuntal Ghosh",
	"570692000064235701": "Alam Uddin",
	"570692000031980001": "Suraj Giri",
	"570692000003887001": "Sudhanshu Kumar",
	"570692000015618001": "Vicky Routh",
	"570692000034206008": "deep roy",
	"570692000001307001": "Sonu Giri",
	"570692000031974020": "Himanshu Goswami",
	"570692000034410024": "Sourav Mondal",
	"570692000064235703": "Sourav Mondal",
	"570692000062859037": "Aman Ul Nawaz",
	"570692000031974043": "Prince Kumar",
	"570692000022523001": "Naresh Prajapati",
	"570692000011216042": "Sumit Raghuwanshi",
	"570692000062919131": "Fozlur Rahman",
	"570692000017587001": "Kanhu Pasayat",
}

// OwnerDirectory resolves CRM owner ids to display names.
type OwnerDirectory struct {
	names map[string]string
}

type ownersFile struct {
	Owners map[string]string `yaml:"owners"`
}

// DefaultOwnerDirectory returns the built-in owner table.
func DefaultOwnerDirectory() *OwnerDirectory {
	names := make(map[string]string, len(defaultOwners))
	for id, name := range defaultOwners {
		names[id] = name
	}
	return &OwnerDirectory{names: names}
}

// LoadOwnerDirectory reads an owners YAML file:
//
//	owners:
//	  "570692000000284001": Akash Kumar
//
// An empty path returns the built-in table.
func LoadOwnerDirectory(path string) (*OwnerDirectory, error) {
	if path == "" {
		return DefaultOwnerDirectory(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read owners file %s", path)
	}

	var f ownersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "classify: parse owners file %s", path)
	}
	if len(f.Owners) == 0 {
		return nil, eris.Errorf("classify: owners file %s has no owners", path)
	}
	return &OwnerDirectory{names: f.Owners}, nil
}

// Name returns the display name for id, or "Unknown (<id>)". A record
// with no owner renders as "Unknown (None)".
func (d *OwnerDirectory) Name(id string) string {
	if id == "" {
		return "Unknown (None)"
	}
	if name, ok := d.names[id]; ok {
		return name
	}
	return "Unknown (" + id + ")"
}

// Len returns the number of known owners.
func (d *OwnerDirectory) Len() int { return len(d.names) }
