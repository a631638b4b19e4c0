package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/zkpool/zkpool/api"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/storage"
)

// APIService manages the HTTP API server lifecycle.
type APIService struct {
	storage *storage.Storage
	pool    *pool.Pool
	api     *api.API
	mu      sync.Mutex
	cancel  context.CancelFunc
	host    string
	port    int
}

// NewAPI creates a new APIService instance on top of an existing storage and
// pool. The server is not started until Start is called.
func NewAPI(stg *storage.Storage, p *pool.Pool, host string, port int) *APIService {
	return &APIService{
		storage: stg,
		pool:    p,
		host:    host,
		port:    port,
	}
}

// Start begins the API server. It returns an error if the service is already
// running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:    as.host,
		Port:    as.port,
		Storage: as.storage,
		Pool:    as.pool,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server and closes the underlying storage.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
	as.storage.Close()
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
