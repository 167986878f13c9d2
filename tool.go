// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ktong/lpassistant/internal/embedded"
	"github.com/ktong/lpassistant/internal/schema"
	"github.com/ktong/lpassistant/lookup"
	"github.com/ktong/lpassistant/openai"
)

// Names of the function tools. They are part of the assistant definition on the server.
const (
	ToolLocation = "get_location_by_id"
	ToolPosition = "get_position_by_id"

	toolTypeFunction   = "function"
	toolTypeFileSearch = "file_search"
)

type (
	// ID is a record id the model passes either as a JSON string or as a JSON number.
	ID string

	LocationArgs struct {
		LocationID ID `json:"location_id" jsonschema:"description=The location id"`
	}
	PositionArgs struct {
		PositionID ID `json:"position_id" jsonschema:"description=The position id"`
	}

	// Invocation is a decoded tool call. The set of implementations is closed:
	// LocationLookup and PositionLookup.
	Invocation interface {
		embedded.Invocation

		CallID() string
	}

	LocationLookup struct {
		embedded.Invocation

		ID   string
		Args LocationArgs
	}
	PositionLookup struct {
		embedded.Invocation

		ID   string
		Args PositionArgs
	}
)

func (l LocationLookup) CallID() string { return l.ID }
func (p PositionLookup) CallID() string { return p.ID }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err //nolint:wrapcheck
		}
		*id = ID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())

	return nil
}

func lookupTools() ([]openai.Tool, error) {
	locationSchema, err := schema.For[LocationArgs]()
	if err != nil {
		return nil, fmt.Errorf("generate %s schema: %w", ToolLocation, err)
	}
	positionSchema, err := schema.For[PositionArgs]()
	if err != nil {
		return nil, fmt.Errorf("generate %s schema: %w", ToolPosition, err)
	}

	return []openai.Tool{
		{
			Type: toolTypeFunction,
			Function: &openai.Function{
				Name:        ToolLocation,
				Description: "Get details about a location",
				Parameters:  locationSchema,
			},
		},
		{
			Type: toolTypeFunction,
			Function: &openai.Function{
				Name:        ToolPosition,
				Description: "Get details about a position",
				Parameters:  positionSchema,
			},
		},
	}, nil
}

// Decode turns a tool call of the model into an Invocation.
// It fails with ErrUnknownTool or ErrInvalidArguments.
func Decode(call openai.ToolCall) (Invocation, error) { //nolint:ireturn
	switch call.Function.Name {
	case ToolLocation:
		var args LocationArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		if args.LocationID == "" {
			return nil, fmt.Errorf("%w: %s: missing location_id", ErrInvalidArguments, call.Function.Name)
		}

		return LocationLookup{ID: call.ID, Args: args}, nil
	case ToolPosition:
		var args PositionArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		if args.PositionID == "" {
			return nil, fmt.Errorf("%w: %s: missing position_id", ErrInvalidArguments, call.Function.Name)
		}

		return PositionLookup{ID: call.ID, Args: args}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Function.Name)
	}
}

func decodeArgs(call openai.ToolCall, args any) error {
	if err := json.Unmarshal([]byte(call.Function.Arguments), args); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidArguments, call.Function.Name, err)
	}

	return nil
}

// invoke runs the lookup of the invocation and renders the tool output.
// Store failures become an error output for the model; the run goes on.
func (s *Session) invoke(ctx context.Context, invocation Invocation) (string, error) {
	if s.lookups == nil {
		return "", fmt.Errorf("%w: no lookups for call %s", ErrUnknownTool, invocation.CallID())
	}

	var (
		result lookup.Result
		err    error
	)
	switch invocation := invocation.(type) {
	case LocationLookup:
		result, err = s.lookups.Location(ctx, string(invocation.Args.LocationID))
	case PositionLookup:
		result, err = s.lookups.Position(ctx, string(invocation.Args.PositionID))
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownTool, invocation)
	}

	if errors.Is(err, lookup.ErrUnavailable) {
		s.logger.Error().Err(err).Str("call_id", invocation.CallID()).Msg("lookup unavailable")

		return unavailableOutput(), nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup for call %s: %w", invocation.CallID(), err)
	}

	return result.Text() //nolint:wrapcheck
}

func unavailableOutput() string {
	output, _ := json.Marshal(map[string]string{
		"error": "The data is temporarily unavailable. Please try again later.",
	})

	return string(output)
}
