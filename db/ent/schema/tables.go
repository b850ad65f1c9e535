package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
)

type tableSchema interface {
	Fields() []ent.Field
	Annotations() []schema.Annotation
}

// Tables maps each table name to its column names in declaration order.
func Tables() map[string][]string {
	out := map[string][]string{}
	for _, s := range []tableSchema{ExtractionJob{}, Document{}, Product{}} {
		table := s.Annotations()[0].(entsql.Annotation).Table
		for _, f := range s.Fields() {
			out[table] = append(out[table], f.Descriptor().Name)
		}
	}
	return out
}
