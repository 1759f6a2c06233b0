package store

import (
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"
)

// AssetRecord is one row of the asset register. Fields keeps the original
// column names; values are normalized to strings at load time so the
// retriever can match against them uniformly.
type AssetRecord struct {
	ID     string
	Fields map[string]string
}

// FieldNames returns the record's field names in stable ascending order.
func (r AssetRecord) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssetStore is an in-memory read-only view of the asset index file.
type AssetStore struct {
	records map[string]AssetRecord
	order   []string
}

// LoadAssets reads an asset index file: a mapping from asset_id to a field
// map. The file is produced by an external indexing step; this store never
// writes it back.
func LoadAssets(path string) (*AssetStore, error) {
	var raw map[string]map[string]any
	if err := readStoreFile(path, &raw); err != nil {
		return nil, err
	}

	s := &AssetStore{
		records: make(map[string]AssetRecord, len(raw)),
		order:   make([]string, 0, len(raw)),
	}
	for id, fields := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: %s contains an asset with an empty id", ErrLoad, path)
		}
		rec := AssetRecord{ID: id, Fields: make(map[string]string, len(fields))}
		for name, value := range fields {
			rec.Fields[name] = stringify(value)
		}
		s.records[id] = rec
		s.order = append(s.order, id)
	}
	sort.Strings(s.order)
	return s, nil
}

// Lookup returns the record for id. A miss is an absence, not an error.
func (s *AssetStore) Lookup(id string) (AssetRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// All iterates the records in ascending id order. The sequence is finite
// and restartable.
func (s *AssetStore) All() iter.Seq[AssetRecord] {
	return func(yield func(AssetRecord) bool) {
		for _, id := range s.order {
			if !yield(s.records[id]) {
				return
			}
		}
	}
}

func (s *AssetStore) Len() int { return len(s.order) }

// stringify renders a decoded field value the way it appeared in the source
// file, without a float exponent or trailing zeros for whole numbers.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
