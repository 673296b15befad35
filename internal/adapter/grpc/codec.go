package grpc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

func fieldsToValue(fields domain.Fields) (map[string]any, error) {
	return domain.EncodeFields(fields)
}

func valueToFields(v any) (domain.Fields, error) {
	if v == nil {
		return domain.Fields{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("fields must be an object, got %T", v)
	}
	return domain.DecodeFields(m)
}

func snapshotToStruct(snap domain.Snapshot) (*structpb.Struct, error) {
	docs := make([]any, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		fields, err := fieldsToValue(doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Path, err)
		}
		docs = append(docs, map[string]any{
			"id":     doc.ID,
			"path":   doc.Path,
			"fields": fields,
		})
	}
	return structpb.NewStruct(map[string]any{
		"path":      snap.Path,
		"documents": docs,
	})
}

func structToSnapshot(s *structpb.Struct) (domain.Snapshot, error) {
	m := s.AsMap()
	snap := domain.Snapshot{Documents: []domain.Document{}}
	snap.Path, _ = m["path"].(string)

	raw, _ := m["documents"].([]any)
	for _, item := range raw {
		d, ok := item.(map[string]any)
		if !ok {
			return snap, fmt.Errorf("snapshot %s: malformed document entry", snap.Path)
		}
		doc := domain.Document{}
		doc.ID, _ = d["id"].(string)
		doc.Path, _ = d["path"].(string)
		fields, err := valueToFields(d["fields"])
		if err != nil {
			return snap, fmt.Errorf("document %s: %w", doc.Path, err)
		}
		doc.Fields = fields
		snap.Documents = append(snap.Documents, doc)
	}
	return snap, nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func boolField(s *structpb.Struct, name string) bool {
	return s.GetFields()[name].GetBoolValue()
}
