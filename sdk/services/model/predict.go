// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/dataset"
)

// Predict sends the whole table to the scoring server in one request.
// Numeric cells travel as JSON numbers and empty cells as null.
func (h *Handle) Predict(ctx context.Context, t *dataset.Table) ([]string, error) {
	if h.serving == nil {
		return nil, errors.New("model handle is not bound to a scoring server")
	}

	req := invocationRequest{
		DataframeSplit: dataframeSplit{
			Columns: t.Columns,
			Data:    make([][]any, len(t.Rows)),
		},
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = cellValue(c)
		}
		req.DataframeSplit.Data[i] = cells
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := h.serving.BuildURL("invocations", nil)
	body, status, err := h.serving.Do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("invocation failed (status %d): %w", status, err)
	}

	preds, err := parsePredictions(body)
	if err != nil {
		return nil, err
	}
	if len(preds) != t.Len() {
		return nil, fmt.Errorf("%w: %d rows but %d predictions", dataset.ErrLengthMismatch, t.Len(), len(preds))
	}
	return preds, nil
}

func cellValue(s string) any {
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return json.Number(s)
	}
	return s
}

// parsePredictions accepts {"predictions": [...]} as well as a bare array.
func parsePredictions(body []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("json parsing failed: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		p, ok := v["predictions"].([]any)
		if !ok {
			return nil, errors.New("invalid response: missing predictions")
		}
		items = p
	default:
		return nil, errors.New("invalid response: unexpected predictions format")
	}

	out := make([]string, len(items))
	for i, it := range items {
		s, err := formatValue(it)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case map[string]any:
		if len(x) == 1 {
			for _, inner := range x {
				return formatValue(inner)
			}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
