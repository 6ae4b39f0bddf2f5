// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"errors"
	"net/http"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
)

// ModelService resolves model references against the tracking server and
// binds the resulting handles to the scoring server.
type ModelService struct {
	tracking config.RESTCore
	serving  config.RESTCore
	conf     config.TrackingConfig
}

// NewModelService uses http.DefaultClient; see NewModelServiceWithClient.
func NewModelService(ctx context.Context, conf config.Config) (*ModelService, error) {
	return NewModelServiceWithClient(ctx, conf, nil)
}

func NewModelServiceWithClient(_ context.Context, conf config.Config, httpClient *http.Client) (*ModelService, error) {
	tc := conf.Tracking
	if tc.TrackingURI == "" {
		return nil, errors.New("invalid tracking config: missing tracking URI")
	}
	servingURL := tc.ServingURL
	if servingURL == "" {
		servingURL = tc.TrackingURI
	}
	auth := config.RESTAuth{
		Token:    tc.Token,
		Username: tc.Username,
		Password: tc.Password,
	}
	return &ModelService{
		tracking: config.NewRESTCore(httpClient, tc.TrackingURI, auth),
		serving:  config.NewRESTCore(httpClient, servingURL, auth),
		conf:     tc,
	}, nil
}

// TrackingURI is the tracking endpoint this service was built with.
func (s *ModelService) TrackingURI() string {
	return s.conf.TrackingURI
}
