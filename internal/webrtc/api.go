// Package webrtc builds pion peer connections for the mesh and adapts their
// callbacks to peer events.
package webrtc

import (
	"fmt"

	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/pion/interceptor"
	"github.com/pion/logging"
	pion "github.com/pion/webrtc/v4"
)

// NewAPI returns a pion API with the default codecs and interceptors.
// Pion's internal logging goes through loggerFactory when it is non-nil.
func NewAPI(loggerFactory logging.LoggerFactory) (*pion.API, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	ir := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := pion.SettingEngine{}
	if loggerFactory != nil {
		se.LoggerFactory = loggerFactory
	}

	return pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(ir),
		pion.WithSettingEngine(se),
	), nil
}

// ICEServers builds the ICE server list from configuration.
func ICEServers(cfg *config.Config) []pion.ICEServer {
	var servers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); len(stun) > 0 {
		servers = append(servers, pion.ICEServer{URLs: stun})
	}

	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}
