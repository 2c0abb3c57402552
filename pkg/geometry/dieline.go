package geometry

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/rollfed/gangrun/pkg/errors"
)

// Dieline is a named die profile as stored in a die.toml file.
type Dieline struct {
	Name     string          `toml:"name" json:"name"`
	Geometry DielineGeometry `toml:"geometry" json:"geometry"`
}

// LoadDieline reads and validates a die profile from a TOML file.
//
// Expected shape:
//
//	name = "rect-76x51-6x4"
//
//	[geometry]
//	roll_width = 330.0
//	label_width = 76.2
//	label_height = 50.8
//	columns_across = 6
//	rows_around = 4
//	h_gap = 3.0
//	v_gap = 3.2
func LoadDieline(path string) (*Dieline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "read dieline file %s", path)
	}

	var d Dieline
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "parse dieline file %s", path)
	}

	if d.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "dieline file %s has no name", path)
	}
	if err := errors.ValidateDielineName(d.Name); err != nil {
		return nil, err
	}
	if err := d.Geometry.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}
