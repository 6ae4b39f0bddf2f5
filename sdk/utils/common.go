// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultIniPath is ~/.dhinfer.ini, or ./.dhinfer.ini without a home.
func DefaultIniPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, IniName)
}

func TranslateFormat(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "json"
	default:
		return "yaml"
	}
}
