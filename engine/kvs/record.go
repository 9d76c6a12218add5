package kvs

import (
	"encoding/json"

	"github.com/dreamsxin/kvs/engine"
)

// Locator identifies a single persisted record: which epoch file it lives
// in, its byte offset, and its length. Once installed in the index it is
// immutable; a later write for the same key installs a new Locator rather
// than mutating this one.
type Locator struct {
	Epoch  uint64
	Offset uint64
	Length uint32
}

// command is the tagged-variant persisted unit. Its JSON shape is fixed by
// the wire-compatible on-disk format: {"Put":{"key":...,"value":...}}\n or
// {"Rm":{"key":...}}\n. Only one of Put/Rm is ever set.
type command struct {
	Put *putCommand `json:"Put,omitempty"`
	Rm  *rmCommand  `json:"Rm,omitempty"`
}

type putCommand struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type rmCommand struct {
	Key string `json:"key"`
}

func putRecord(key, value string) command {
	return command{Put: &putCommand{Key: key, Value: value}}
}

func rmRecord(key string) command {
	return command{Rm: &rmCommand{Key: key}}
}

func (c command) key() string {
	if c.Put != nil {
		return c.Put.Key
	}
	return c.Rm.Key
}

// encode serializes c as a single JSON object followed by a newline.
func (c command) encode() []byte {
	b, err := json.Marshal(c)
	if err != nil {
		// Put/Rm are both trivially-serializable string structs; a failure
		// here means a bug in this file, not bad input.
		panic(err)
	}
	return append(b, '\n')
}

// decodeCommand parses a single line (without its trailing newline) as a
// command record.
func decodeCommand(name string, line []byte) (command, error) {
	var c command
	if err := json.Unmarshal(line, &c); err != nil {
		return command{}, engine.FailToParseFile(name, err)
	}
	return c, nil
}
