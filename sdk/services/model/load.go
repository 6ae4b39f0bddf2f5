// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
)

// ErrResolve wraps every failure to turn a reference into a Handle.
var ErrResolve = errors.New("failed to resolve model")

const apiPrefix = "api/2.0/mlflow/"

// Load resolves ref through the tracking server. Direct artifact
// locations skip the registry.
func (s *ModelService) Load(ctx context.Context, ref string) (*Handle, error) {
	parsed, err := ParseReference(ref)
	if err != nil {
		return nil, err
	}

	h := &Handle{Reference: parsed.Raw, serving: s.serving}

	switch parsed.Kind {
	case RefRun:
		err = s.resolveRun(ctx, parsed, h)
	case RefVersion:
		err = s.resolveVersion(ctx, s.tracking.BuildURL(apiPrefix+"model-versions/get", map[string]string{
			"name":    parsed.Name,
			"version": parsed.Version,
		}), h)
	case RefAlias:
		err = s.resolveVersion(ctx, s.tracking.BuildURL(apiPrefix+"registered-models/alias", map[string]string{
			"name":  parsed.Name,
			"alias": parsed.Alias,
		}), h)
	case RefStage:
		err = s.resolveStage(ctx, parsed, h)
	default:
		h.Source = parsed.Raw
	}
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrResolve, parsed.Raw, err)
	}

	logger.Log.Info().
		Str("tracking_uri", s.conf.TrackingURI).
		Str("reference", h.Reference).
		Str("name", h.Name).
		Str("version", h.Version).
		Str("run_id", h.RunID).
		Str("source", h.Source).
		Msg("model loaded")
	return h, nil
}

func (s *ModelService) resolveRun(ctx context.Context, ref Reference, h *Handle) error {
	url := s.tracking.BuildURL(apiPrefix+"runs/get", map[string]string{"run_id": ref.RunID})
	body, status, err := s.tracking.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("run request failed (status %d): %w", status, err)
	}

	var resp runResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("json parsing failed: %w", err)
	}
	info := resp.Run.Info
	if info.RunID == "" {
		return fmt.Errorf("run %s not found in response", ref.RunID)
	}

	h.RunID = info.RunID
	h.Status = info.Status
	h.Source = strings.TrimRight(info.ArtifactURI, "/")
	if ref.ArtifactPath != "" {
		h.Source += "/" + ref.ArtifactPath
	}
	return nil
}

func (s *ModelService) resolveVersion(ctx context.Context, url string, h *Handle) error {
	body, status, err := s.tracking.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("model version request failed (status %d): %w", status, err)
	}

	var resp modelVersionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("json parsing failed: %w", err)
	}
	return applyVersion(resp.ModelVersion, h)
}

func (s *ModelService) resolveStage(ctx context.Context, ref Reference, h *Handle) error {
	req := latestVersionsRequest{Name: ref.Name}
	if ref.Stage != "latest" {
		req.Stages = []string{ref.Stage}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := s.tracking.BuildURL(apiPrefix+"registered-models/get-latest-versions", nil)
	body, status, err := s.tracking.Do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return fmt.Errorf("latest versions request failed (status %d): %w", status, err)
	}

	var resp latestVersionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("json parsing failed: %w", err)
	}

	best, ok := newestVersion(resp.ModelVersions)
	if !ok {
		return fmt.Errorf("no version of %s in stage %s", ref.Name, ref.Stage)
	}
	h.Stage = ref.Stage
	return applyVersion(best, h)
}

// newestVersion picks the highest numeric version.
func newestVersion(versions []modelVersion) (modelVersion, bool) {
	var best modelVersion
	bestN := int64(-1)
	for _, v := range versions {
		n, err := strconv.ParseInt(v.Version, 10, 64)
		if err != nil {
			continue
		}
		if n > bestN {
			best, bestN = v, n
		}
	}
	return best, bestN >= 0
}

func applyVersion(v modelVersion, h *Handle) error {
	if v.Version == "" {
		return errors.New("model version not found in response")
	}
	if v.Status != "" && v.Status != "READY" {
		return fmt.Errorf("model version %s/%s is not ready (status %s)", v.Name, v.Version, v.Status)
	}
	h.Name = v.Name
	h.Version = v.Version
	h.RunID = v.RunID
	h.Source = v.Source
	h.Status = v.Status
	if h.Stage == "" {
		h.Stage = v.CurrentStage
	}
	return nil
}
