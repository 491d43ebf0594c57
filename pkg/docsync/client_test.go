package docsync

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/opencontainers/go-digest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "node-a")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

// peerClient connects a second node to the same relay
func peerClient(t *testing.T, mr *miniredis.Miniredis, nodeID string) *Client {
	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, nodeID)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func testAuthor(t *testing.T) AuthorID {
	a, err := NewAuthor()
	require.NoError(t, err)
	return a.ID()
}

func receiveEvent(t *testing.T, sub *Subscription) LiveEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for live event")
		return LiveEvent{}
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, mr := setupTestClient(t)
		assert.Equal(t, "node-a", client.NodeID())
		assert.Equal(t, "redis://"+mr.Addr()+"/0", client.Relay())
	})

	t.Run("rejects empty node ID", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "node ID cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestCreateDocument(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	doc, err := client.CreateDocument(ctx)
	require.NoError(t, err)

	assert.True(t, isValidUUID(doc.ID()))
	assert.True(t, doc.Writable())
	assert.True(t, mr.Exists(DocMetaKey(doc.ID())))

	// Secret is never stored in the clear
	assert.NotEqual(t, doc.secret, mr.HGet(DocMetaKey(doc.ID()), "secret_digest"))
	assert.Equal(t, digest.FromString(doc.secret).String(), mr.HGet(DocMetaKey(doc.ID()), "secret_digest"))
}

func TestShare(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	doc, err := client.CreateDocument(ctx)
	require.NoError(t, err)

	t.Run("write ticket with relay and addresses", func(t *testing.T) {
		ticket, err := doc.Share(ctx, ShareWrite, AddrRelayAndAddresses)
		require.NoError(t, err)

		assert.Equal(t, doc.ID(), ticket.DocID)
		assert.Equal(t, "node-a", ticket.NodeID)
		assert.Equal(t, ShareWrite, ticket.Mode())
		assert.Equal(t, client.Relay(), ticket.Relay)
		assert.Equal(t, []string{mr.Addr()}, ticket.Addrs)
	})

	t.Run("read ticket with id only", func(t *testing.T) {
		ticket, err := doc.Share(ctx, ShareRead, AddrID)
		require.NoError(t, err)

		assert.Equal(t, ShareRead, ticket.Mode())
		assert.Empty(t, ticket.Secret)
		assert.Empty(t, ticket.Relay)
		assert.Empty(t, ticket.Addrs)
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		_, err := doc.Share(ctx, ShareMode("admin"), AddrID)
		assert.Error(t, err)
	})

	t.Run("rejects write ticket from read-only handle", func(t *testing.T) {
		readTicket, err := doc.Share(ctx, ShareRead, AddrID)
		require.NoError(t, err)

		readOnly, err := client.OpenDocument(ctx, readTicket)
		require.NoError(t, err)

		_, err = readOnly.Share(ctx, ShareWrite, AddrID)
		assert.ErrorIs(t, err, ErrReadOnly)
	})
}

func TestSetBytesAndGetOne(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	author := testAuthor(t)

	doc, err := client.CreateDocument(ctx)
	require.NoError(t, err)

	t.Run("stores blob and entry", func(t *testing.T) {
		hash, err := doc.SetBytes(ctx, author, "greeting", []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, digest.FromBytes([]byte("hello")), hash)

		entry, err := doc.GetOne(ctx, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "greeting", entry.Key)
		assert.Equal(t, author, entry.Author)
		assert.Equal(t, hash, entry.ContentHash)
		assert.Equal(t, int64(5), entry.ContentLen)
		assert.NotZero(t, entry.TimestampUs)

		data, err := client.ReadToBytes(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("overwrites existing key", func(t *testing.T) {
		_, err := doc.SetBytes(ctx, author, "name", []byte("Alice"))
		require.NoError(t, err)
		hash, err := doc.SetBytes(ctx, author, "name", []byte("Alicia"))
		require.NoError(t, err)

		entry, err := doc.GetOne(ctx, "name")
		require.NoError(t, err)
		assert.Equal(t, hash, entry.ContentHash)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := doc.SetBytes(ctx, author, "", []byte("x"))
		assert.Error(t, err)
	})

	t.Run("missing key is not found", func(t *testing.T) {
		_, err := doc.GetOne(ctx, "missing")
		assert.True(t, IsNotFound(err))
	})
}

func TestReadToBytes(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("missing blob is not found", func(t *testing.T) {
		_, err := client.ReadToBytes(ctx, digest.FromString("never stored"))
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects invalid hash", func(t *testing.T) {
		_, err := client.ReadToBytes(ctx, digest.Digest("bogus"))
		assert.Error(t, err)
		assert.False(t, IsNotFound(err))
	})

	t.Run("detects tampered content", func(t *testing.T) {
		hash := digest.FromString("original")
		require.NoError(t, mr.Set(BlobKey(hash), "tampered"))

		_, err := client.ReadToBytes(ctx, hash)
		assert.ErrorIs(t, err, ErrContentMismatch)
	})
}

func TestOpenDocument(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()
	author := testAuthor(t)

	doc, err := client.CreateDocument(ctx)
	require.NoError(t, err)
	writeTicket, err := doc.Share(ctx, ShareWrite, AddrRelayAndAddresses)
	require.NoError(t, err)

	guest := peerClient(t, mr, "node-b")

	t.Run("write ticket gives writable handle", func(t *testing.T) {
		opened, err := guest.OpenDocument(ctx, writeTicket)
		require.NoError(t, err)
		assert.True(t, opened.Writable())

		_, err = opened.SetBytes(ctx, author, "k", []byte("v"))
		assert.NoError(t, err)
	})

	t.Run("read ticket gives read-only handle", func(t *testing.T) {
		readTicket, err := doc.Share(ctx, ShareRead, AddrID)
		require.NoError(t, err)

		opened, err := guest.OpenDocument(ctx, readTicket)
		require.NoError(t, err)
		assert.False(t, opened.Writable())

		_, err = opened.SetBytes(ctx, author, "k", []byte("v"))
		assert.ErrorIs(t, err, ErrReadOnly)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		forged := writeTicket
		forged.Secret = "00000000000000000000000000000000000000000000000000000000000000ff"

		_, err := guest.OpenDocument(ctx, forged)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "secret does not match")
	})

	t.Run("unknown document is not found", func(t *testing.T) {
		unknown := writeTicket
		unknown.DocID = "6f1c2a54-6a4b-4d0f-9d4c-2f9b6c1e8a01"

		_, err := guest.OpenDocument(ctx, unknown)
		assert.True(t, IsNotFound(err))
	})
}

func TestSubscribe(t *testing.T) {
	host, mr := setupTestClient(t)
	guest := peerClient(t, mr, "node-b")
	ctx := context.Background()
	author := testAuthor(t)

	doc, err := host.CreateDocument(ctx)
	require.NoError(t, err)
	ticket, err := doc.Share(ctx, ShareWrite, AddrRelayAndAddresses)
	require.NoError(t, err)

	hostSub, err := doc.Subscribe(ctx)
	require.NoError(t, err)
	defer hostSub.Close()

	guestDoc, guestSub, err := guest.ImportAndSubscribe(ctx, ticket)
	require.NoError(t, err)
	defer guestSub.Close()
	assert.Equal(t, doc.ID(), guestDoc.ID())

	t.Run("writer sees local insert, peer sees remote insert", func(t *testing.T) {
		hash, err := doc.SetBytes(ctx, author, "1", []byte("hi"))
		require.NoError(t, err)

		local := receiveEvent(t, hostSub)
		assert.Equal(t, EventInsertLocal, local.Kind)
		assert.Equal(t, hash, local.Entry.ContentHash)
		assert.Equal(t, "node-a", local.From)

		remote := receiveEvent(t, guestSub)
		assert.Equal(t, EventInsertRemote, remote.Kind)
		assert.Equal(t, "1", remote.Entry.Key)
		assert.Equal(t, author, remote.Entry.Author)
	})

	t.Run("malformed events go to the error channel", func(t *testing.T) {
		mr.Publish(DocEventsChannel(doc.ID()), "{not json")

		select {
		case err := <-guestSub.Errors():
			assert.Contains(t, err.Error(), "failed to unmarshal live event")
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for subscription error")
		}

		// Subscription keeps delivering afterwards
		_, err := guestDoc.SetBytes(ctx, author, "2", []byte("still here"))
		require.NoError(t, err)
		assert.Equal(t, EventInsertRemote, receiveEvent(t, hostSub).Kind)
	})

	t.Run("close ends the event stream", func(t *testing.T) {
		sub, err := doc.Subscribe(ctx)
		require.NoError(t, err)

		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("events channel not closed")
		}
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(ErrReadOnly))
	assert.False(t, IsNotFound(nil))
}
