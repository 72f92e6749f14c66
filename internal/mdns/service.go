// Package mdns provides mDNS/Zeroconf service advertisement so Guidepost
// clients on the local network can discover the server without manual
// configuration.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"

	"github.com/guidepostapp/guidepost-server/internal/domain"
)

const (
	// ServiceType is the mDNS service type Guidepost clients browse for.
	ServiceType = "_guidepost._tcp"

	// APIVersion is the API version advertised in TXT records.
	APIVersion = "v1"
)

// Service manages mDNS advertisement for the Guidepost server.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// Start begins advertising the server via mDNS. Call it after the HTTP
// server is listening; calling it again restarts the advertisement with
// fresh instance data (after a rename, for example).
//
// Errors are typically non-fatal: multicast is often unavailable in
// containers, and the server works fine without discovery.
func (s *Service) Start(instance *domain.Instance, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "guidepost-server"
	}

	// The version comes from the instance record so the advertisement
	// always matches what /api/v1/instance reports.
	txtRecords := []string{
		fmt.Sprintf("id=%s", instance.ID),
		fmt.Sprintf("name=%s", instance.Name),
		fmt.Sprintf("version=%s", instance.Version),
		fmt.Sprintf("api=%s", APIVersion),
	}

	if instance.LocalUrl != "" {
		txtRecords = append(txtRecords, fmt.Sprintf("url=%s", instance.LocalUrl))
	}

	service, err := mdns.NewMDNSService(
		host,        // Instance name (hostname)
		ServiceType, // Service type (_guidepost._tcp)
		"",          // Domain (empty = .local)
		"",          // Host (empty = use system hostname)
		port,        // Port
		nil,         // IPs (nil = all interfaces)
		txtRecords,  // TXT records
	)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{
		Zone: service,
	})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}

	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", port,
		"name", instance.Name,
		"id", instance.ID,
	)

	return nil
}

// Stop stops mDNS advertising.
// Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}
