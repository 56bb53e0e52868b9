/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package loader turns YAML dialogue documents into dialogue steps.
//
// The document is a YAML list of step records. Keys are matched case-insensitively:
//
//	- actor: Guard
//	  line: Halt! Who goes there?
//	  label: gate
//	  actions: [draw_sword]
//	  options:
//	    - text: A friend.
//	    - text: None of your business.
//	      target: fight
//	  default_option: 0
//	  cancel_option: 1
//
// Unknown keys are ignored. A Loader holds only immutable configuration and is safe for concurrent use.
package loader

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"yamldialogue/internal/dialogue"
	applog "yamldialogue/internal/log"
)

//go:embed schema/dialogue.schema.json
var schemaJSON []byte

// Record keys of the wire format.
const (
	keyActor         = "actor"
	keyLine          = "line"
	keyLabel         = "label"
	keyActions       = "actions"
	keyOptions       = "options"
	keyDefaultOption = "default_option"
	keyCancelOption  = "cancel_option"
	keyText          = "text"
	keyTarget        = "target"
)

// Options configures a Loader.
type Options struct {
	// Validate checks every document against the embedded JSON schema before decoding.
	Validate bool
	// KeepFirstLabel tolerates repeated labels, keeping the first one.
	KeepFirstLabel bool
	// Logger defaults to the "loader" component logger.
	Logger *slog.Logger
}

// Loader parses dialogue documents. Create it once with New and share it.
type Loader struct {
	opts   Options
	schema *gojsonschema.Schema
}

// New builds a loader, compiling the document schema when validation is enabled.
func New(opts Options) (*Loader, error) {
	l := &Loader{opts: opts}
	if opts.Validate {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
		if err != nil {
			return nil, fmt.Errorf("compile dialogue schema: %w", err)
		}
		l.schema = s
	}
	return l, nil
}

var defaultLoader = mustNew(Options{Validate: true})

func mustNew(opts Options) *Loader {
	l, err := New(opts)
	if err != nil {
		panic(err)
	}
	return l
}

// Parse decodes data with a validating, strict-label loader.
func Parse(data []byte) ([]dialogue.Step, error) { return defaultLoader.Parse(data) }

// Load parses data into a dialogue with a validating, strict-label loader.
func Load(data []byte) (*dialogue.Dialogue, error) { return defaultLoader.Load(data) }

// ParseError reports a malformed document with its source position.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// SchemaError lists every schema violation found in a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "document does not match dialogue schema: " + strings.Join(e.Problems, "; ")
}

func (l *Loader) logger() *slog.Logger {
	if l.opts.Logger != nil {
		return l.opts.Logger
	}
	return applog.WithComponent("loader")
}

// Parse decodes a YAML document into steps in document order.
// An empty document yields no steps.
func (l *Loader) Parse(data []byte) ([]dialogue.Step, error) {
	log := applog.WithOperation(l.logger(), "parse")

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	list := resolveAlias(root.Content[0])
	if isNull(list) {
		return nil, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, nodeError(list, "document must be a list of steps")
	}

	if l.schema != nil {
		if err := l.validate(list); err != nil {
			return nil, err
		}
	}

	steps := make([]dialogue.Step, 0, len(list.Content))
	for i, item := range list.Content {
		st, err := decodeStep(item, log)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, st)
	}
	log.Debug("document parsed", slog.Int("steps", len(steps)))
	return steps, nil
}

// Load parses data and builds a dialogue positioned on its first step.
func (l *Loader) Load(data []byte) (*dialogue.Dialogue, error) {
	steps, err := l.Parse(data)
	if err != nil {
		return nil, err
	}
	opts := []dialogue.BuildOption{dialogue.WithLogger(l.logger())}
	if l.opts.KeepFirstLabel {
		opts = append(opts, dialogue.WithKeepFirstLabel())
	}
	return dialogue.Load(steps, opts...)
}

// LoadFile reads and loads the document at path.
func (l *Loader) LoadFile(path string) (*dialogue.Dialogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialogue: %w", err)
	}
	d, err := l.Load(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return d, nil
}

func (l *Loader) validate(list *yaml.Node) error {
	res, err := l.schema.Validate(gojsonschema.NewGoLoader(normalize(list)))
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if res.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, e := range res.Errors() {
		se.Problems = append(se.Problems, e.String())
	}
	return se
}

func decodeStep(n *yaml.Node, log *slog.Logger) (dialogue.Step, error) {
	var st dialogue.Step
	n = resolveAlias(n)
	if isNull(n) {
		return st, nil
	}
	if n.Kind != yaml.MappingNode {
		return st, nodeError(n, "step must be a mapping")
	}
	var err error
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch normalizeKey(key.Value) {
		case keyActor:
			st.Actor, err = scalarString(val)
		case keyLine:
			st.Line, err = scalarString(val)
		case keyLabel:
			st.Label, err = scalarString(val)
		case keyActions:
			st.Actions, err = stringList(val)
		case keyOptions:
			st.Options, err = optionList(val, log)
		case keyDefaultOption:
			st.ConfirmOption, err = scalarInt(val)
		case keyCancelOption:
			st.CancelOption, err = scalarInt(val)
		default:
			log.Debug("unknown step key ignored", slog.String("key", key.Value), slog.Int("line", key.Line))
		}
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

func optionList(n *yaml.Node, log *slog.Logger) ([]dialogue.Option, error) {
	n = resolveAlias(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nodeError(n, "options must be a list")
	}
	out := make([]dialogue.Option, 0, len(n.Content))
	for _, item := range n.Content {
		var opt dialogue.Option
		item = resolveAlias(item)
		if !isNull(item) {
			if item.Kind != yaml.MappingNode {
				return nil, nodeError(item, "option must be a mapping")
			}
			for i := 0; i+1 < len(item.Content); i += 2 {
				key, val := item.Content[i], item.Content[i+1]
				var err error
				switch normalizeKey(key.Value) {
				case keyText:
					opt.Text, err = scalarString(val)
				case keyTarget:
					opt.Target, err = scalarString(val)
				default:
					log.Debug("unknown option key ignored", slog.String("key", key.Value), slog.Int("line", key.Line))
				}
				if err != nil {
					return nil, err
				}
			}
		}
		out = append(out, opt)
	}
	return out, nil
}

func stringList(n *yaml.Node) ([]string, error) {
	n = resolveAlias(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nodeError(n, "expected a list of strings")
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		s, err := scalarString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func scalarString(n *yaml.Node) (string, error) {
	n = resolveAlias(n)
	if isNull(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", nodeError(n, "expected a single value")
	}
	return n.Value, nil
}

func scalarInt(n *yaml.Node) (int, error) {
	n = resolveAlias(n)
	if isNull(n) {
		return 0, nil
	}
	var v int
	if n.Kind != yaml.ScalarNode || n.Decode(&v) != nil {
		return 0, nodeError(n, fmt.Sprintf("expected an integer, got %q", n.Value))
	}
	return v, nil
}

func normalizeKey(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	n = resolveAlias(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func nodeError(n *yaml.Node, msg string) error {
	return &ParseError{Line: n.Line, Column: n.Column, Message: msg}
}

// normalize converts a node tree into plain Go values with lower-cased mapping
// keys, the shape the schema is written against.
func normalize(n *yaml.Node) any {
	n = resolveAlias(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, normalize(c))
		}
		return out
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			out[normalizeKey(n.Content[i].Value)] = normalize(n.Content[i+1])
		}
		return out
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil
		case "!!int":
			var v int64
			if n.Decode(&v) == nil {
				return v
			}
		case "!!float":
			var v float64
			if n.Decode(&v) == nil {
				return v
			}
		case "!!bool":
			var v bool
			if n.Decode(&v) == nil {
				return v
			}
		}
		return n.Value
	}
	return nil
}

// IsParseError reports whether err came from a malformed or schema-invalid document.
func IsParseError(err error) bool {
	var pe *ParseError
	var se *SchemaError
	return errors.As(err, &pe) || errors.As(err, &se)
}
