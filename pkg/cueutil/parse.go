// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult holds a decoded descriptor.
type ParseResult[T any] struct {
	Value *T

	// Unified is the descriptor unified with its schema definition.
	Unified cue.Value
}

// ParseAndDecode checks data against the definition at schemaPath in schema
// (for example "#Module" or "#Target") and decodes it into T. Errors in
// the descriptor are reported through FormatError with the file name given
// by WithFilename; errors in schema itself are internal.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}
	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	definition, err := lookupDefinition(ctx, schema, schemaPath)
	if err != nil {
		return nil, err
	}

	descriptor := ctx.CompileBytes(data, cue.Filename(filename))
	if err := descriptor.Err(); err != nil {
		return nil, FormatError(err, filename)
	}

	unified := definition.Unify(descriptor)
	var validateOpts []cue.Option
	if options.concrete {
		validateOpts = append(validateOpts, cue.Concrete(true))
	}
	if err := unified.Validate(validateOpts...); err != nil {
		return nil, FormatError(err, filename)
	}

	var value T
	if err := unified.Decode(&value); err != nil {
		return nil, FormatError(err, filename)
	}
	return &ParseResult[T]{Value: &value, Unified: unified}, nil
}

func lookupDefinition(ctx *cue.Context, schema []byte, path string) (cue.Value, error) {
	compiled := ctx.CompileBytes(schema)
	if err := compiled.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: compiling schema: %w", err)
	}
	definition := compiled.LookupPath(cue.ParsePath(path))
	if err := definition.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", path, err)
	}
	return definition, nil
}
