package history

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Find returns the records whose serialized form matches every entry in the
// query. Keys may use dotted paths ("tool_calls.function.name"); when a path
// step lands on a list, any element may satisfy the remainder. Nested map
// values match recursively.
func (s *Store) Find(query map[string]any) []*Record {
	s.mu.Lock()
	records := make([]*Record, len(s.records))
	copy(records, s.records)
	s.mu.Unlock()

	var out []*Record
	for _, rec := range records {
		doc, err := recordDocument(rec)
		if err != nil {
			s.logger.Warn("record not queryable", "id", rec.ID, "error", err)
			continue
		}
		if matchesQuery(doc, query) {
			out = append(out, rec)
		}
	}
	return out
}

// recordDocument converts a record into the generic JSON document the query
// machinery walks over.
func recordDocument(rec *Record) (map[string]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func matchesQuery(doc map[string]any, query map[string]any) bool {
	for key, want := range query {
		if !matchPath(doc, strings.Split(key, "."), want) {
			return false
		}
	}
	return true
}

// matchPath walks one dotted path against a value, applying list-any
// semantics at every list it crosses.
func matchPath(value any, path []string, want any) bool {
	if list, ok := value.([]any); ok {
		for _, item := range list {
			if matchPath(item, path, want) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 {
		return matchValue(value, want)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}
	next, ok := obj[path[0]]
	if !ok {
		return false
	}
	return matchPath(next, path[1:], want)
}

// matchValue compares a leaf. A map expectation is a partial sub-document
// match; anything else is compared after JSON normalization so query
// literals like int 3 match the float64 the document decodes to.
func matchValue(actual, want any) bool {
	if sub, ok := want.(map[string]any); ok {
		if list, isList := actual.([]any); isList {
			for _, item := range list {
				if matchValue(item, sub) {
					return true
				}
			}
			return false
		}
		obj, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		return matchesQuery(obj, sub)
	}
	return reflect.DeepEqual(actual, normalize(want))
}

// normalize round-trips a value through JSON so its types line up with a
// decoded document.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
