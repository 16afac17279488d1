package dsl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	sigsyaml "sigs.k8s.io/yaml"
)

// ParsedDefinition is the result of semantically validating a blueprint's
// entry definition file.
type ParsedDefinition struct {
	// MainFileName is the entry file name, relative to the application
	// directory.
	MainFileName string

	// Description is the blueprint's top-level description, when present.
	Description string

	// Content is the parsed definition document.
	Content map[string]any
}

// ParseError reports that the definition content was rejected. Any other
// error kind from a Parser is treated as an infrastructure fault, not a
// content problem.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

// Parser semantically validates a blueprint definition. mainFile is the
// entry file's path relative to the store root; resourcesBase is the URI
// implementations resolve relative resource references against. Remote
// parsers fetch mainFile via resourcesBase; the built-in parser reads it
// from the local store.
type Parser interface {
	Parse(ctx context.Context, mainFile, resourcesBase string) (*ParsedDefinition, error)
}

// YAMLParser is the built-in Parser binding: it requires the entry file to
// be a well-formed, non-empty YAML mapping. Deployments with a full
// definition DSL swap in their own Parser.
type YAMLParser struct {
	// Root is the local store root mainFile paths resolve against.
	Root string
}

// Parse reads and validates the entry definition file.
func (p *YAMLParser) Parse(_ context.Context, mainFile, _ string) (*ParsedDefinition, error) {
	data, err := os.ReadFile(filepath.Join(p.Root, filepath.FromSlash(mainFile)))
	if err != nil {
		return nil, fmt.Errorf("reading definition file %s: %w", mainFile, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Message: fmt.Sprintf("%s is empty", mainFile)}
	}

	var content map[string]any
	if err := sigsyaml.Unmarshal(data, &content); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("%s is not well-formed YAML: %v", mainFile, err)}
	}
	if content == nil {
		return nil, &ParseError{Message: fmt.Sprintf("%s does not contain a YAML mapping", mainFile)}
	}

	def := &ParsedDefinition{
		MainFileName: filepath.Base(mainFile),
		Content:      content,
	}
	if desc, ok := content["description"].(string); ok {
		def.Description = desc
	}
	return def, nil
}
