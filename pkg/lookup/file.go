package lookup

import (
	"fmt"
	"os"

	"github.com/amsross/transitlambda/pkg/transit"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// fileTable is the YAML schema of an externally supplied lookup table:
//
//	operators:
//	  patco:
//	    onestop_id: o-dr4e-portauthoritytransitcorporation
//	    timezone: America/New_York
//	stops:
//	  haddonfield:
//	    onestop_id: s-dr4durps7v-haddonfield
//	    operator_onestop_id: o-dr4e-portauthoritytransitcorporation
//	    timezone: America/New_York
type fileTable struct {
	Operators map[string]fileOperator `yaml:"operators"`
	Stops     map[string]fileStop     `yaml:"stops"`
}

type fileOperator struct {
	OnestopID string `yaml:"onestop_id" validate:"required"`
	ShortName string `yaml:"short_name"`
	Name      string `yaml:"name"`
	Timezone  string `yaml:"timezone" validate:"required"`
}

type fileStop struct {
	OnestopID         string `yaml:"onestop_id" validate:"required"`
	Name              string `yaml:"name"`
	Timezone          string `yaml:"timezone"`
	OperatorOnestopID string `yaml:"operator_onestop_id" validate:"required"`
}

// LoadFile reads and validates a YAML lookup table into a Static source.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lookup table: %w", err)
	}
	return ParseFile(data)
}

// ParseFile parses YAML lookup table content into a Static source.
func ParseFile(data []byte) (*Static, error) {
	var table fileTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse lookup table: %w", err)
	}

	v := validator.New()
	for term, op := range table.Operators {
		if err := v.Struct(op); err != nil {
			return nil, fmt.Errorf("lookup table operator %q: %w", term, err)
		}
	}
	for term, stop := range table.Stops {
		if err := v.Struct(stop); err != nil {
			return nil, fmt.Errorf("lookup table stop %q: %w", term, err)
		}
	}

	operators := make(map[string]transit.Operator, len(table.Operators))
	for term, op := range table.Operators {
		operators[term] = transit.Operator{
			OnestopID: op.OnestopID,
			ShortName: op.ShortName,
			Name:      op.Name,
			Timezone:  op.Timezone,
		}
	}

	stops := make(map[string]transit.Stop, len(table.Stops))
	for term, stop := range table.Stops {
		stops[term] = transit.Stop{
			OnestopID:         stop.OnestopID,
			Name:              stop.Name,
			Timezone:          stop.Timezone,
			OperatorOnestopID: stop.OperatorOnestopID,
		}
	}

	return NewStatic(operators, stops), nil
}
