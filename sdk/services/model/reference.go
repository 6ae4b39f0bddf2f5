// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidReference = errors.New("invalid model reference")

type ReferenceKind int

const (
	// RefArtifact is a direct artifact location, used without registry lookup.
	RefArtifact ReferenceKind = iota
	// RefRun is runs:/<run_id>/<path>.
	RefRun
	// RefVersion is models:/<name>/<version>.
	RefVersion
	// RefStage is models:/<name>/<stage>, including "latest".
	RefStage
	// RefAlias is models:/<name>@<alias>.
	RefAlias
)

// Reference is a parsed model URI.
type Reference struct {
	Raw          string
	Kind         ReferenceKind
	RunID        string
	ArtifactPath string
	Name         string
	Version      string
	Stage        string
	Alias        string
}

var stages = map[string]string{
	"none":       "None",
	"staging":    "Staging",
	"production": "Production",
	"archived":   "Archived",
	"latest":     "latest",
}

func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	ref := Reference{Raw: raw}
	if raw == "" {
		return ref, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	switch {
	case strings.HasPrefix(raw, "runs:/"):
		rest := strings.TrimLeft(strings.TrimPrefix(raw, "runs:/"), "/")
		runID, path, _ := strings.Cut(rest, "/")
		if runID == "" {
			return ref, fmt.Errorf("%w: missing run id in %q", ErrInvalidReference, raw)
		}
		ref.Kind = RefRun
		ref.RunID = runID
		ref.ArtifactPath = strings.Trim(path, "/")
		return ref, nil

	case strings.HasPrefix(raw, "models:/"):
		rest := strings.Trim(strings.TrimPrefix(raw, "models:/"), "/")
		if name, alias, ok := strings.Cut(rest, "@"); ok {
			if name == "" || alias == "" {
				return ref, fmt.Errorf("%w: expected models:/<name>@<alias>, got %q", ErrInvalidReference, raw)
			}
			ref.Kind = RefAlias
			ref.Name = name
			ref.Alias = alias
			return ref, nil
		}
		name, selector, ok := strings.Cut(rest, "/")
		if !ok || name == "" || selector == "" || strings.Contains(selector, "/") {
			return ref, fmt.Errorf("%w: expected models:/<name>/<version|stage>, got %q", ErrInvalidReference, raw)
		}
		ref.Name = name
		if _, err := strconv.ParseUint(selector, 10, 64); err == nil {
			ref.Kind = RefVersion
			ref.Version = selector
			return ref, nil
		}
		stage, known := stages[strings.ToLower(selector)]
		if !known {
			return ref, fmt.Errorf("%w: unknown stage %q", ErrInvalidReference, selector)
		}
		ref.Kind = RefStage
		ref.Stage = stage
		return ref, nil
	}

	ref.Kind = RefArtifact
	return ref, nil
}
