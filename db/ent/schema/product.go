package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

type Product struct{ ent.Schema }

func (Product) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "products"},
	}
}

func (Product) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("user_id", uuid.UUID{}).Immutable(),
		field.String("title").NotEmpty().MaxLen(255),
		field.String("category").Optional().Nillable().MaxLen(100),
		field.Time("purchase_date").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "date"}),
		// smallest currency unit
		field.Int64("amount").Optional().Nillable(),
		field.String("store").Optional().Nillable().MaxLen(255),
		field.String("order_id").Optional().Nillable().MaxLen(255),
		field.Time("refund_deadline").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "date"}),
		field.Time("warranty_end_date").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "date"}),
		field.String("as_contact").Optional().Nillable().MaxLen(255),
		field.String("image_path").NotEmpty().
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.String("raw_text").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Product) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("documents", Document.Type),
		edge.To("jobs", ExtractionJob.Type),
	}
}

func (Product) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id"),
	}
}
