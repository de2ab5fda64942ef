// Command schema writes the JSON schema of the server-to-client wire
// messages, for client codegen and payload validation tooling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"walkabout/server/internal/protocol"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// wireMessages gathers every outbound variant under one reflected root.
type wireMessages struct {
	State        protocol.StateMessage        `json:"state"`
	Connected    protocol.ConnectedMessage    `json:"connected"`
	Disconnected protocol.DisconnectedMessage `json:"disconnected"`
	IDAssignment protocol.IDAssignmentMessage `json:"id_assignment"`
	NameAccepted protocol.NameAcceptedMessage `json:"name_accepted"`
	NameRejected protocol.NameRejectedMessage `json:"name_rejected"`
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(wireMessages))
	schema.Title = "Walkabout Wire Protocol"
	schema.Description = "Server-to-client messages in their JSON encoding"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
