package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamba/avro/v2"
	"github.com/twmb/franz-go/pkg/sr"
)

func AvroEncodeFn(s avro.Schema) func(v any) ([]byte, error) {
	return func(v any) ([]byte, error) {
		return avro.Marshal(s, v)
	}
}

func AvroDecodeFn(s avro.Schema) func([]byte, any) error {
	return func(data []byte, v any) error {
		return avro.Unmarshal(s, data, v)
	}
}

// A SchemaIdentifier resolves the registry id of the schema text
// under the subject.
type SchemaIdentifier interface {
	DetermineID(ctx context.Context, subject, schemaText string) (int, error)
}

// A SchemaCreater is the part of [*sr.Client] used for registering schemas.
type SchemaCreater interface {
	CreateSchema(
		ctx context.Context, subject string, s sr.Schema,
	) (sr.SubjectSchema, error)
}

type registryIdentifier struct {
	sc SchemaCreater
}

// NewSchemaCreater returns a [SchemaIdentifier] that registers
// avro schemas in the schema registry.
//
// Registering an already known schema returns its existing id.
func NewSchemaCreater(sc SchemaCreater) SchemaIdentifier {
	if sc == nil {
		panic(errors.New("NewSchemaCreater: schema creater is nil")) // develop mistake
	}
	return registryIdentifier{sc}
}

func (ri registryIdentifier) DetermineID(
	ctx context.Context, subject, schemaText string,
) (int, error) {
	const op = "registryIdentifier.DetermineID"

	ss, err := ri.sc.CreateSchema(ctx, subject, sr.Schema{
		Type:   sr.TypeAvro,
		Schema: schemaText,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return ss.ID, nil
}
