package typed

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/aretw0/livelist/pkg/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeFunc converts a raw document into the typed schema T.
type DecodeFunc[T any] func(doc core.Document) (T, error)

// Identified is implemented by schema types that want the document ID.
// JSONDecoder calls SetID after decoding the fields.
type Identified interface {
	SetID(id string)
}

// JSONDecoder returns a DecodeFunc that round-trips the document fields
// through JSON into T, so JSON tags on T apply.
func JSONDecoder[T any]() DecodeFunc[T] {
	return func(doc core.Document) (T, error) {
		var data T

		raw, err := json.Marshal(doc.Fields)
		if err != nil {
			return data, fmt.Errorf("fields marshal failed: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return data, fmt.Errorf("unmarshal into %T failed: %w", data, err)
		}

		if ided, ok := any(&data).(Identified); ok {
			ided.SetID(doc.ID)
		}
		return data, nil
	}
}

// DocumentModel is a typed view of a document in the list.
type DocumentModel[T any] struct {
	ID   string
	Data T
	Ref  core.DocumentRef
}
