package ingest

import (
	"fmt"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// DecodeDocument decodes a YAML (or JSON, which is a YAML subset)
// configuration document into a string-keyed map, the shape the validator
// and the dimension stores work with. Environment and BOM files arrive
// through here.
func DecodeDocument(data []byte) (map[string]interface{}, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding document")
	}
	if raw == nil {
		return nil, errors.New("document is empty")
	}

	converted := stringifyKeys(raw)
	doc, ok := converted.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("document must be a mapping, got %T", raw)
	}

	return doc, nil
}

// stringifyKeys rewrites the interface-keyed maps yaml.v2 produces into
// string-keyed maps, recursively.
func stringifyKeys(v interface{}) interface{} {
	switch value := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, elem := range value {
			out[fmt.Sprintf("%v", k)] = stringifyKeys(elem)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, elem := range value {
			out[k] = stringifyKeys(elem)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(value))
		for idx, elem := range value {
			out[idx] = stringifyKeys(elem)
		}
		return out
	default:
		return v
	}
}

func stringField(doc map[string]interface{}, key string) string {
	raw, ok := doc[key]
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func mapField(doc map[string]interface{}, key string) map[string]interface{} {
	raw, ok := doc[key]
	if !ok {
		return nil
	}
	m, _ := raw.(map[string]interface{})
	return m
}
