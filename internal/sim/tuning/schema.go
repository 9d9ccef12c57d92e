package tuning

import (
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "tuning.schema.json"

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "fridge_prefab_shortname": {"type": "string", "minLength": 1},
    "target_skin_id": {"type": "integer", "minimum": 0},
    "required_power": {"type": "integer"},
    "input_compensation_watts": {"type": "integer"},
    "scrap_per_tick": {"type": "integer", "minimum": 0},
    "interval_minutes": {"type": "number"},
    "max_fridge_slots_to_use": {"type": "integer"},
    "log_debug": {"type": "boolean"},
    "craft": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "permission_required": {"type": "boolean"},
        "permission": {"type": "string"},
        "item_shortname": {"type": "string"},
        "item_display_name": {"type": "string"},
        "cost": {
          "type": ["object", "null"],
          "additionalProperties": {"type": "integer"}
        },
        "limit_enabled": {"type": "boolean"},
        "max_per_player": {"type": "integer", "minimum": 0},
        "vip_permission": {"type": "string"},
        "vip_max_per_player": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}
