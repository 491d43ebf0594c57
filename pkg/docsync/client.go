package docsync

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"github.com/redis/go-redis/v9"
)

// secretSize is the byte length of a document write secret.
const secretSize = 32

// Client is one node's connection to the relay.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb    *redis.Client
	nodeID string
	relay  string
	addrs  []string
}

// NewClient creates a client for the relay described by redisOpts.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - nodeID: Stable identifier of this node (must not be empty)
//
// Returns an error if nodeID is empty.
func NewClient(redisOpts *redis.Options, nodeID string) (*Client, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("node ID cannot be empty")
	}

	return &Client{
		rdb:    redis.NewClient(redisOpts),
		nodeID: nodeID,
		relay:  fmt.Sprintf("redis://%s/%d", redisOpts.Addr, redisOpts.DB),
		addrs:  []string{redisOpts.Addr},
	}, nil
}

// Close closes the relay connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies relay connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// NodeID returns the identifier this client publishes events under.
func (c *Client) NodeID() string {
	return c.nodeID
}

// Relay returns the relay URL advertised in tickets (credentials are never included).
func (c *Client) Relay() string {
	return c.relay
}

// CreateDocument creates a new empty document owned by this node.
// The returned document is writable; share it to let other peers in.
func (c *Client) CreateDocument(ctx context.Context) (*Doc, error) {
	secretBytes := make([]byte, secretSize)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("failed to generate document secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	meta := &docMeta{
		ID:           uuid.New().String(),
		CreatedAtMs:  time.Now().UnixMilli(),
		SecretDigest: digest.FromString(secret),
	}

	if err := c.rdb.HSet(ctx, DocMetaKey(meta.ID), docMetaToHash(meta)).Err(); err != nil {
		return nil, fmt.Errorf("failed to write document metadata: %w", err)
	}

	return &Doc{
		c:        c,
		id:       meta.ID,
		secret:   secret,
		writable: true,
	}, nil
}

// OpenDocument resolves a ticket to a document handle without subscribing.
// Write tickets are checked against the document's secret digest.
func (c *Client) OpenDocument(ctx context.Context, t Ticket) (*Doc, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ticket: %w", err)
	}

	hash, err := c.rdb.HGetAll(ctx, DocMetaKey(t.DocID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read document metadata: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hash) == 0 {
		return nil, fmt.Errorf("document %s: %w", t.DocID, ErrNotFound)
	}

	meta, err := hashToDocMeta(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize document metadata: %w", err)
	}

	doc := &Doc{c: c, id: meta.ID}
	if t.Mode() == ShareWrite {
		if digest.FromString(t.Secret) != meta.SecretDigest {
			return nil, fmt.Errorf("ticket secret does not match document %s", t.DocID)
		}
		doc.secret = t.Secret
		doc.writable = true
	}

	return doc, nil
}

// ImportAndSubscribe opens the document named by the ticket and subscribes to its
// live events in one call. Nothing is left subscribed if either step fails.
func (c *Client) ImportAndSubscribe(ctx context.Context, t Ticket) (*Doc, *Subscription, error) {
	doc, err := c.OpenDocument(ctx, t)
	if err != nil {
		return nil, nil, err
	}

	sub, err := doc.Subscribe(ctx)
	if err != nil {
		return nil, nil, err
	}

	return doc, sub, nil
}

// ReadToBytes fetches a blob by content hash and verifies it.
// Returns an error satisfying IsNotFound if the blob has not reached the relay.
func (c *Client) ReadToBytes(ctx context.Context, hash digest.Digest) ([]byte, error) {
	if err := hash.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content hash: %w", err)
	}

	data, err := c.rdb.Get(ctx, BlobKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("blob %s: %w", hash, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read blob from relay: %w", err)
	}

	if hash.Algorithm().FromBytes(data) != hash {
		return nil, fmt.Errorf("blob %s: %w", hash, ErrContentMismatch)
	}

	return data, nil
}

// Doc is a handle to one shared document.
type Doc struct {
	c        *Client
	id       string
	secret   string
	writable bool
}

// ID returns the document's UUID.
func (d *Doc) ID() string {
	return d.id
}

// Writable reports whether this handle may add entries.
func (d *Doc) Writable() bool {
	return d.writable
}

// Share produces a ticket for the document.
// Write tickets can only be produced from a writable handle.
func (d *Doc) Share(ctx context.Context, mode ShareMode, opts AddrInfoOptions) (Ticket, error) {
	if err := mode.Validate(); err != nil {
		return Ticket{}, err
	}
	if err := opts.Validate(); err != nil {
		return Ticket{}, err
	}

	exists, err := d.c.rdb.Exists(ctx, DocMetaKey(d.id)).Result()
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to check document existence: %w", err)
	}
	if exists == 0 {
		return Ticket{}, fmt.Errorf("document %s: %w", d.id, ErrNotFound)
	}

	t := Ticket{
		DocID:  d.id,
		NodeID: d.c.nodeID,
	}

	if mode == ShareWrite {
		if !d.writable {
			return Ticket{}, fmt.Errorf("cannot share write ticket: %w", ErrReadOnly)
		}
		t.Secret = d.secret
	}

	if opts.includesRelay() {
		t.Relay = d.c.relay
	}
	if opts.includesAddresses() {
		t.Addrs = append([]string(nil), d.c.addrs...)
	}

	return t, nil
}

// SetBytes stores value in the blob store and points key at it, replacing any
// previous entry for key. A live event is published after the write.
// Returns the content hash of value.
func (d *Doc) SetBytes(ctx context.Context, author AuthorID, key string, value []byte) (digest.Digest, error) {
	if !d.writable {
		return "", ErrReadOnly
	}

	entry := &Entry{
		Key:         key,
		Author:      author,
		ContentHash: digest.FromBytes(value),
		ContentLen:  int64(len(value)),
		TimestampUs: time.Now().UnixMicro(),
	}
	if err := entry.Validate(); err != nil {
		return "", fmt.Errorf("invalid entry: %w", err)
	}

	entryJSON, err := encodeEntry(entry)
	if err != nil {
		return "", err
	}

	// Blob first so a reader that sees the entry can normally fetch it
	_, err = d.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BlobKey(entry.ContentHash), value, 0)
		pipe.HSet(ctx, DocEntriesKey(d.id), key, entryJSON)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to write entry to relay: %w", err)
	}

	if err := d.c.publish(ctx, d.id, entry); err != nil {
		return "", err
	}

	return entry.ContentHash, nil
}

// GetOne returns the entry stored under key.
// Returns an error satisfying IsNotFound if the key has no entry.
func (d *Doc) GetOne(ctx context.Context, key string) (*Entry, error) {
	raw, err := d.c.rdb.HGet(ctx, DocEntriesKey(d.id), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("entry %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read entry from relay: %w", err)
	}

	return decodeEntry(raw)
}

// Subscribe subscribes to the document's live events.
// Caller must call Close() on the subscription when done.
func (d *Doc) Subscribe(ctx context.Context) (*Subscription, error) {
	return d.c.subscribe(ctx, d.id)
}

func (c *Client) publish(ctx context.Context, docID string, entry *Entry) error {
	env := eventEnvelope{
		DocID:  docID,
		Origin: c.nodeID,
		Entry:  *entry,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal live event: %w", err)
	}

	if err := c.rdb.Publish(ctx, DocEventsChannel(docID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish live event: %w", err)
	}

	return nil
}

// Subscription is an active subscription to a document's live events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan LiveEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of live events.
// The channel is closed when the subscription is closed or its context is cancelled.
func (s *Subscription) Events() <-chan LiveEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors are malformed events; the subscription continues after them.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// subscribe waits for the relay to confirm the subscription before returning, so
// every event published after Subscribe returns is delivered.
//
// Events are delivered on a buffered channel (size 64). Redis Pub/Sub is at-most-once:
// a subscriber that falls too far behind loses events.
func (c *Client) subscribe(ctx context.Context, docID string) (*Subscription, error) {
	channel := DocEventsChannel(docID)
	pubsub := c.rdb.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to document events: %w", err)
	}

	eventsChan := make(chan LiveEvent, 64)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				env, err := decodeEnvelope(msg.Payload)
				if err != nil {
					select {
					case errorsChan <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- env.toLiveEvent(c.nodeID):
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
