// Package node opens the local side of a murmur participant: the working
// directory with its author key and document store, and the relay connection.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dyluth/murmur/internal/chat"
	"github.com/dyluth/murmur/internal/config"
	"github.com/dyluth/murmur/internal/health"
	"github.com/dyluth/murmur/internal/metrics"
	"github.com/dyluth/murmur/internal/store"
	"github.com/dyluth/murmur/pkg/docsync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Files inside the data directory
const (
	authorKeyFile = "author.key"
	storeDir      = "store"
)

// pingTimeout bounds the initial relay check.
const pingTimeout = 5 * time.Second

// Node is an opened participant.
type Node struct {
	Config   *config.Config
	Author   *docsync.Author
	Store    *store.Store
	Client   *docsync.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Chat
	Logger   *zap.Logger
}

// Open prepares the data directory, loads or creates the author key, opens the
// local store and connects to the relay. The relay must answer a PING.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	author, err := docsync.LoadOrCreateAuthor(filepath.Join(cfg.DataDir, authorKeyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load author key: %w", err)
	}

	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	nodeID, err := st.NodeID()
	if err != nil {
		st.Close()
		return nil, err
	}

	opts, err := redis.ParseURL(cfg.Relay.URL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}

	client, err := docsync.NewClient(opts, nodeID)
	if err != nil {
		st.Close()
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		st.Close()
		return nil, fmt.Errorf("relay %s unreachable: %w", opts.Addr, err)
	}

	reg := metrics.NewRegistry()

	logger.Debug("node opened",
		zap.String("node", nodeID),
		zap.String("author", author.ID().ShortID()),
		zap.String("relay", opts.Addr))

	return &Node{
		Config:   cfg,
		Author:   author,
		Store:    st,
		Client:   client,
		Registry: reg,
		Metrics:  metrics.NewChat(reg),
		Logger:   logger,
	}, nil
}

// OpenStore opens only the local document store, for commands that never
// reach the relay.
func OpenStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(filepath.Join(cfg.DataDir, storeDir))
}

// Establisher returns a session establisher writing as the node's author.
// sink receives the ticket of each hosted session.
func (n *Node) Establisher(sink func(ticket string)) *chat.Establisher {
	return chat.NewEstablisher(chat.FromClient(n.Client), n.Author.ID(), chat.Options{
		Retry: chat.RetryPolicy{
			Attempts: n.Config.Receive.RetryAttempts,
			Interval: n.Config.Receive.RetryInterval,
		},
		AddrOptions: docsync.AddrRelayAndAddresses,
		TicketSink:  sink,
		Metrics:     n.Metrics,
	}, n.Logger)
}

// Remember records a session in the local store so it can be listed and rejoined.
func (n *Node) Remember(s *chat.Session) error {
	return n.Store.PutDocument(store.DocumentRecord{
		ID:     s.DocumentID(),
		Ticket: s.Ticket(),
		Role:   string(s.Role()),
	})
}

// StartHealth starts the health and metrics endpoint if one is configured.
// Returns nil when metrics.addr is empty.
func (n *Node) StartHealth() (*health.Server, error) {
	if n.Config.Metrics.Addr == "" {
		return nil, nil
	}
	srv := health.NewServer(n.Config.Metrics.Addr, n.Client, n.Registry, n.Logger)
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("failed to start metrics endpoint on %s: %w", n.Config.Metrics.Addr, err)
	}
	return srv, nil
}

// Close releases the relay connection and the store.
func (n *Node) Close() error {
	return errors.Join(n.Client.Close(), n.Store.Close())
}
