package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://voxelguard.ai/schemas/"

var ErrUnknownType = errors.New("unknown message type")

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// hostTypes are the messages a host may send; each has a schema file named
// after the lower-cased type.
var hostTypes = []string{
	TypeHello, TypePlace, TypeBreak, TypeExplode, TypePiston, TypeRemove, TypeCommand, TypeComplete,
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	out := make(map[string]*jsonschema.Schema, len(hostTypes))
	for _, typ := range hostTypes {
		name := strings.ToLower(typ) + ".schema.json"
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBase+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[typ] = s
	}
	return out, nil
}

// Validate checks a raw host message against the schema for its type and
// returns the routed base header.
func Validate(raw []byte) (BaseMessage, error) {
	schemasOnce.Do(func() { schemas, schemasErr = compileSchemas() })
	if schemasErr != nil {
		return BaseMessage{}, schemasErr
	}

	base, err := DecodeBase(raw)
	if err != nil {
		return base, err
	}
	s, ok := schemas[base.Type]
	if !ok {
		return base, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return base, err
	}
	if err := s.Validate(doc); err != nil {
		return base, err
	}
	return base, nil
}
