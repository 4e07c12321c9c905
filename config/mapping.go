package config

import (
	"fmt"

	"relfetch/schema"

	"github.com/spf13/viper"
)

// mappingDocument is the YAML shape of an entity mapping file:
//
//	tables:
//	  - name: clubs
//	    columns:
//	      - {name: id, primary_key: true}
//	      - {name: name}
//	    relationships:
//	      - name: teams
//	        kind: one_to_many
//	        local_columns: [id]
//	        remote_table: teams
//	        remote_columns: [club_id]
//	        inverse: club
type mappingDocument struct {
	Tables []tableMapping `mapstructure:"tables"`
}

type tableMapping struct {
	Name          string                `mapstructure:"name"`
	Columns       []schema.Column       `mapstructure:"columns"`
	Relationships []relationshipMapping `mapstructure:"relationships"`
}

type relationshipMapping struct {
	Name                  string   `mapstructure:"name"`
	Kind                  string   `mapstructure:"kind"`
	LocalColumns          []string `mapstructure:"local_columns"`
	RemoteTable           string   `mapstructure:"remote_table"`
	RemoteColumns         []string `mapstructure:"remote_columns"`
	JunctionTable         string   `mapstructure:"junction_table"`
	JunctionLocalColumns  []string `mapstructure:"junction_local_columns"`
	JunctionRemoteColumns []string `mapstructure:"junction_remote_columns"`
	Inverse               string   `mapstructure:"inverse"`
}

// LoadMapping reads a YAML entity mapping file and builds the registry
// the fetch layer resolves relationship paths against.
func LoadMapping(path string) (*schema.Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read mapping file %q: %w", path, err)
	}

	var doc mappingDocument
	if err := v.UnmarshalExact(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping file %q: %w", path, err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("mapping file %q declares no tables", path)
	}

	tables := make([]schema.Table, len(doc.Tables))
	for i, tm := range doc.Tables {
		table := schema.Table{
			Name:          tm.Name,
			Columns:       tm.Columns,
			Relationships: make([]schema.Relationship, len(tm.Relationships)),
		}
		for j, rm := range tm.Relationships {
			kind, err := parseRelationshipKind(rm.Kind)
			if err != nil {
				return nil, fmt.Errorf("table %q relationship %q: %w", tm.Name, rm.Name, err)
			}
			table.Relationships[j] = schema.Relationship{
				Name:                  rm.Name,
				Kind:                  kind,
				LocalColumns:          rm.LocalColumns,
				RemoteTable:           rm.RemoteTable,
				RemoteColumns:         rm.RemoteColumns,
				JunctionTable:         rm.JunctionTable,
				JunctionLocalColumns:  rm.JunctionLocalColumns,
				JunctionRemoteColumns: rm.JunctionRemoteColumns,
				Inverse:               rm.Inverse,
			}
		}
		tables[i] = table
	}

	reg, err := schema.NewRegistry(tables...)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping file %q: %w", path, err)
	}
	return reg, nil
}

func parseRelationshipKind(kind string) (schema.RelationshipKind, error) {
	switch kind {
	case "one_to_many":
		return schema.OneToMany, nil
	case "many_to_one":
		return schema.ManyToOne, nil
	case "many_to_many":
		return schema.ManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relationship kind %q", kind)
	}
}
