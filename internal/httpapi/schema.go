package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	maxBodyBytes = 4 << 10
	schemaBase   = "mem://weather-view/schemas/"
)

type schemas struct {
	city       *jsonschema.Schema
	search     *jsonschema.Schema
	searchText *jsonschema.Schema
	location   *jsonschema.Schema
}

func loadSchemas() (*schemas, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compile := func(name string) (*jsonschema.Schema, error) {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		url := schemaBase + name
		if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		return compiler.Compile(url)
	}

	var (
		s   schemas
		err error
	)
	if s.city, err = compile("city.json"); err != nil {
		return nil, err
	}
	if s.search, err = compile("search.json"); err != nil {
		return nil, err
	}
	if s.searchText, err = compile("search_text.json"); err != nil {
		return nil, err
	}
	if s.location, err = compile("location.json"); err != nil {
		return nil, err
	}
	return &s, nil
}

// decodeValid reads a JSON body, checks it against schema and decodes it
// into dst. An empty body is treated as {}.
func decodeValid(r *http.Request, schema *jsonschema.Schema, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}
