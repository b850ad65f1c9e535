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

	"github.com/joseph-ayodele/warranty-tracker/constants"
	"github.com/joseph-ayodele/warranty-tracker/db/ent/schema/utils"
)

type ExtractionJob struct{ ent.Schema }

func (ExtractionJob) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "extraction_jobs"},
	}
}

func (ExtractionJob) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("user_id", uuid.UUID{}).Immutable(),
		field.UUID("document_id", uuid.UUID{}).Optional().Nillable(),
		field.UUID("product_id", uuid.UUID{}).Optional().Nillable(),
		field.String("status").
			MaxLen(16).
			Default(constants.JobStatusPending.String()).
			Validate(utils.EnumValidator(constants.JobStatusValues()...)),
		// masked failure reason or completion warning
		field.String("error").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (ExtractionJob) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("jobs").
			Field("document_id").
			Unique(),
		edge.From("product", Product.Type).
			Ref("jobs").
			Field("product_id").
			Unique(),
	}
}

func (ExtractionJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id"),
		index.Fields("status"),
	}
}
