// Package protocol defines the JSON messages of the debug stream and the
// schemas they are validated against. Inbound commands are checked before
// they reach the simulation; the schemas double as the protocol's contract
// for non-Go clients.
package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Server message types.
const (
	TypeWelcome = "WELCOME"
	TypeEvent   = "EVENT"
	TypeAck     = "ACK"
	TypeError   = "ERROR"
)

// Command types.
const (
	TypePause  = "PAUSE"
	TypeResume = "RESUME"
	TypeStep   = "STEP"
	TypeSpawn  = "SPAWN"
)

// ServerMessage is everything the server sends: the welcome handshake,
// frame events, command acknowledgements and errors.
type ServerMessage struct {
	Type         string `json:"type"`
	Session      string `json:"session,omitempty"`
	ConfigDigest string `json:"config_digest,omitempty"`
	Frame        uint64 `json:"frame"`
	Topic        string `json:"topic,omitempty"`
	Data         any    `json:"data,omitempty"`
	Paused       bool   `json:"paused,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Command is an inbound control message.
type Command struct {
	Type  string     `json:"type"`
	Count int        `json:"count,omitempty"`
	Body  *SpawnBody `json:"body,omitempty"`
}

// SpawnBody describes an entity a SPAWN command adds to the world.
type SpawnBody struct {
	Pos      Vec   `json:"pos"`
	Velocity Vec   `json:"velocity"`
	Boxes    []Box `json:"boxes"`
	Barrier  bool  `json:"barrier"`
}

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

var (
	commandSchema = mustCompile("command.schema.json")
	eventSchema   = mustCompile("event.schema.json")
)

func mustCompile(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("protocol: missing schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("protocol: schema %s: %v", name, err))
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("protocol: schema %s: %v", name, err))
	}
	return s
}

// ParseCommand validates raw JSON against the command schema and decodes
// it. Anything the schema rejects never reaches the simulation.
func ParseCommand(raw []byte) (Command, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Command{}, fmt.Errorf("protocol: command is not JSON: %w", err)
	}
	if err := commandSchema.Validate(v); err != nil {
		return Command{}, fmt.Errorf("protocol: invalid command: %w", err)
	}
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("protocol: decode command: %w", err)
	}
	return cmd, nil
}

// ValidateServerMessage checks an outbound message against the schema. Used
// by tests to keep the implementation honest about its own contract.
func ValidateServerMessage(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("protocol: message is not JSON: %w", err)
	}
	if err := eventSchema.Validate(v); err != nil {
		return fmt.Errorf("protocol: invalid server message: %w", err)
	}
	return nil
}
