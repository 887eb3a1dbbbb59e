// Package zeroconf advertises the local control API as an mDNS/DNS-SD
// service so a paired phone or desktop can find it on the LAN.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"

	"github.com/glyphkey/kbcompanion/internal/identity"
)

// ServiceType is the DNS-SD service type of the control API.
const ServiceType = "_kbcompanion._tcp"

// Service manages mDNS service registration.
type Service struct {
	name string
	port int
	txt  []string
}

// New creates a Service that will advertise the given identity on port.
func New(info identity.Info, port int) *Service {
	return &Service{
		name: info.Hostname,
		port: port,
		txt:  TXT(info),
	}
}

// TXT returns the TXT records published for info.
func TXT(info identity.Info) []string {
	return []string{
		"version=" + info.Version,
		"device=" + info.DeviceID,
		"api=/api",
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(
		s.name,      // instance name
		ServiceType, // service type
		"local.",    // domain
		s.port,      // port
		s.txt,       // TXT records
		nil,         // ifaces, nil means all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"type", ServiceType,
		"port", s.port,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
