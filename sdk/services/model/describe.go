// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/json"
	"strings"

	"sigs.k8s.io/yaml"
)

// Describe renders the handle as "json" or "yaml" (the default).
func (h *Handle) Describe(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(h, "", "    ")
	default:
		return yaml.Marshal(h)
	}
}
