package wire

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const frameSchemaBase = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "v": {"type": "integer", "minimum": 1},
    "name": {"type": "string"},
    "surface": {"type": "string"}%s
  }
}`

var dataSchemas = map[Name]string{
	NameAuthLogin: `,
    "data": {
      "type": "object",
      "required": ["access_token", "refresh_token"],
      "properties": {
        "access_token": {"type": "string", "minLength": 1},
        "refresh_token": {"type": "string", "minLength": 1}
      }
    }`,
	NameActionApprove: `,
    "data": {
      "type": "object",
      "required": ["action", "authorization_token"],
      "properties": {
        "action": {
          "type": "object",
          "required": ["uuid"],
          "properties": {"uuid": {"type": "string", "minLength": 1}}
        },
        "authorization_token": {"type": "string", "minLength": 1}
      }
    }`,
	NameActionCancel: `,
    "data": {
      "type": ["object", "null"],
      "properties": {
        "action": {
          "type": "object",
          "required": ["uuid"],
          "properties": {"uuid": {"type": "string", "minLength": 1}}
        }
      }
    }`,
	NameAuthClose: ``,
}

// data is mandatory for these names.
var dataRequired = map[Name]bool{
	NameAuthLogin:     true,
	NameActionApprove: true,
}

var schemas = compileSchemas()

func compileSchemas() map[Name]*gojsonschema.Schema {
	out := make(map[Name]*gojsonschema.Schema, len(dataSchemas))
	for name, data := range dataSchemas {
		src := fmt.Sprintf(frameSchemaBase, data)
		if dataRequired[name] {
			src = strings.Replace(src, `"required": ["name"]`, `"required": ["name", "data"]`, 1)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic(fmt.Sprintf("wire: invalid schema for %s: %v", name, err))
		}
		out[name] = schema
	}
	return out
}

// Decode parses and validates one inbound frame. Frames without a version are
// read as version 1. The bus-only "close" name is rejected.
func Decode(raw []byte) (Message, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if f.Version == 0 {
		f.Version = 1
	}
	if f.Version > ProtocolVersion {
		return Message{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}

	schema, ok := schemas[f.Name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownName, f.Name)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descs = append(descs, desc.String())
		}
		return Message{}, fmt.Errorf("%w: %s: %s", ErrSchemaViolation, f.Name, strings.Join(descs, "; "))
	}

	msg := Message{
		Version:   f.Version,
		Name:      f.Name,
		SurfaceID: f.SurfaceID,
	}

	hasData := len(f.Data) > 0 && string(f.Data) != "null"
	switch f.Name {
	case NameAuthLogin:
		msg.Payload, err = unmarshalPayload[LoginPayload](f.Data)
	case NameActionApprove:
		msg.Payload, err = unmarshalPayload[ApprovePayload](f.Data)
	case NameActionCancel:
		if hasData {
			msg.Payload, err = unmarshalPayload[CancelPayload](f.Data)
		}
	}
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return msg, nil
}

func unmarshalPayload[T any](data json.RawMessage) (*T, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
