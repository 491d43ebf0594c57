package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/dyluth/murmur/pkg/docsync"
	"github.com/opencontainers/go-digest"
)

var errInjected = errors.New("injected failure")

// fakeBlobs is an in-memory blob store that can be told to fail fetches.
type fakeBlobs struct {
	mu       sync.Mutex
	data     map[digest.Digest][]byte
	failures map[digest.Digest]int // remaining failing fetches; -1 fails forever
	calls    map[digest.Digest]int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{
		data:     map[digest.Digest][]byte{},
		failures: map[digest.Digest]int{},
		calls:    map[digest.Digest]int{},
	}
}

func (b *fakeBlobs) put(value []byte) digest.Digest {
	b.mu.Lock()
	defer b.mu.Unlock()
	hash := digest.FromBytes(value)
	b.data[hash] = value
	return hash
}

func (b *fakeBlobs) failFor(hash digest.Digest, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[hash] = n
}

func (b *fakeBlobs) callCount(hash digest.Digest) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[hash]
}

func (b *fakeBlobs) ReadToBytes(_ context.Context, hash digest.Digest) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls[hash]++
	if n := b.failures[hash]; n != 0 {
		if n > 0 {
			b.failures[hash] = n - 1
		}
		return nil, docsync.ErrNotFound
	}
	data, ok := b.data[hash]
	if !ok {
		return nil, docsync.ErrNotFound
	}
	return data, nil
}

// fakeDoc is an in-memory document backed by fakeBlobs.
type fakeDoc struct {
	mu       sync.Mutex
	id       string
	blobs    *fakeBlobs
	entries  map[string]docsync.Entry
	keys     []string // write order
	setErr   error
	shareErr error
	subErr   error
	stream   *fakeStream
}

func newFakeDoc(blobs *fakeBlobs) *fakeDoc {
	return &fakeDoc{
		id:      "0b8e4a8e-3f4f-4c43-9a55-6c3f4a1e2d7b",
		blobs:   blobs,
		entries: map[string]docsync.Entry{},
		stream:  newFakeStream(),
	}
}

func (d *fakeDoc) ID() string { return d.id }

func (d *fakeDoc) SetBytes(_ context.Context, author docsync.AuthorID, key string, value []byte) (digest.Digest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.setErr != nil {
		return "", d.setErr
	}
	hash := d.blobs.put(value)
	d.entries[key] = docsync.Entry{Key: key, Author: author, ContentHash: hash, ContentLen: int64(len(value))}
	d.keys = append(d.keys, key)
	return hash, nil
}

func (d *fakeDoc) GetOne(_ context.Context, key string) (*docsync.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[key]
	if !ok {
		return nil, docsync.ErrNotFound
	}
	return &e, nil
}

func (d *fakeDoc) writtenKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.keys...)
}

func (d *fakeDoc) Share(_ context.Context, mode docsync.ShareMode, _ docsync.AddrInfoOptions) (docsync.Ticket, error) {
	if d.shareErr != nil {
		return docsync.Ticket{}, d.shareErr
	}
	t := docsync.Ticket{DocID: d.id, NodeID: "node-fake"}
	if mode == docsync.ShareWrite {
		t.Secret = "0000000000000000000000000000000000000000000000000000000000000001"
	}
	return t, nil
}

func (d *fakeDoc) Subscribe(context.Context) (Stream, error) {
	if d.subErr != nil {
		return nil, d.subErr
	}
	return d.stream, nil
}

// fakeStream is a hand-fed live update stream.
type fakeStream struct {
	events chan docsync.LiveEvent
	errs   chan error
	once   sync.Once
	closed chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		events: make(chan docsync.LiveEvent, 16),
		errs:   make(chan error, 4),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) Events() <-chan docsync.LiveEvent { return s.events }
func (s *fakeStream) Errors() <-chan error             { return s.errs }

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// end simulates the collaborator terminating the subscription.
func (s *fakeStream) end() {
	close(s.events)
	close(s.errs)
}

func (s *fakeStream) remote(entry docsync.Entry) {
	s.events <- docsync.LiveEvent{Kind: docsync.EventInsertRemote, Entry: entry, From: "node-peer"}
}

func (s *fakeStream) local(entry docsync.Entry) {
	s.events <- docsync.LiveEvent{Kind: docsync.EventInsertLocal, Entry: entry, From: "node-fake"}
}

// fakeCollab hands out a single fakeDoc.
type fakeCollab struct {
	*fakeBlobs
	doc       *fakeDoc
	createErr error
	importErr error
}

func newFakeCollab() *fakeCollab {
	blobs := newFakeBlobs()
	return &fakeCollab{fakeBlobs: blobs, doc: newFakeDoc(blobs)}
}

func (c *fakeCollab) CreateDocument(context.Context) (HostedDocument, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	return c.doc, nil
}

func (c *fakeCollab) ImportAndSubscribe(_ context.Context, ticket docsync.Ticket) (Document, Stream, error) {
	if c.importErr != nil {
		return nil, nil, c.importErr
	}
	return c.doc, c.doc.stream, nil
}

// remoteEntry stores msg as a peer would and returns the entry announcing it.
func remoteEntry(blobs *fakeBlobs, key string, msg Message) docsync.Entry {
	data, err := Marshal(msg)
	if err != nil {
		panic(err)
	}
	return docsync.Entry{Key: key, Author: msg.AuthorID(), ContentHash: blobs.put(data), ContentLen: int64(len(data))}
}

// recordingPresenter captures presented events.
type recordingPresenter struct {
	mu     sync.Mutex
	lines  []string
	joined []string
	names  []string
	warns  []string
	errs   []error // Errors passed with warns, in order
	seen   chan struct{}
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{seen: make(chan struct{}, 64)}
}

func (p *recordingPresenter) ChatLine(name, content string) {
	p.mu.Lock()
	p.lines = append(p.lines, name+": "+content)
	p.mu.Unlock()
	p.seen <- struct{}{}
}

func (p *recordingPresenter) PeerJoined(name string) {
	p.mu.Lock()
	p.joined = append(p.joined, name)
	p.mu.Unlock()
	p.seen <- struct{}{}
}

func (p *recordingPresenter) NameSet(name string) {
	p.mu.Lock()
	p.names = append(p.names, name)
	p.mu.Unlock()
	p.seen <- struct{}{}
}

func (p *recordingPresenter) Warn(msg string, err error) {
	p.mu.Lock()
	p.warns = append(p.warns, msg)
	p.errs = append(p.errs, err)
	p.mu.Unlock()
	p.seen <- struct{}{}
}

func (p *recordingPresenter) snapshot() (lines, joined, names, warns []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...),
		append([]string(nil), p.joined...),
		append([]string(nil), p.names...),
		append([]string(nil), p.warns...)
}

func (p *recordingPresenter) warnErrors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}
