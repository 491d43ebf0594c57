// Package docsync provides the replicated document engine murmur peers chat over.
//
// # Overview
//
// A document is a key/value store shared by every peer that holds a ticket for it.
// Entries do not carry their payload: an entry maps a key to the content hash of a
// blob, and blobs live in a separate content-addressed store. Peers learn about new
// entries through a live event stream and then fetch the referenced blob.
//
// The engine is relayed through Redis. Every peer connects to the same relay, which
// stores document metadata, entries and blobs, and fans out live events over Pub/Sub.
//
// # Core Concepts
//
// Authors are ed25519 identities. An AuthorID is the base32 form of the public key and
// is attached to every entry an author writes.
//
// Tickets are printable capabilities. A write ticket carries the document's secret and
// lets the holder add entries; a read ticket only lets the holder follow along.
//
// Live events distinguish entries written through this node (InsertLocal) from entries
// written by any other node (InsertRemote).
//
// # Usage Example
//
//	client, err := docsync.NewClient(&redis.Options{Addr: "localhost:6379"}, nodeID)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	doc, err := client.CreateDocument(ctx)
//	ticket, err := doc.Share(ctx, docsync.ShareWrite, docsync.AddrRelayAndAddresses)
//	fmt.Println(ticket) // doc...
//
//	hash, err := doc.SetBytes(ctx, author.ID(), "greeting", []byte("hello"))
//	data, err := client.ReadToBytes(ctx, hash)
//
// # Redis Schema
//
// Document metadata: murmur:doc:{doc_id}:meta
// Document entries: murmur:doc:{doc_id}:entries
// Blobs: murmur:blob:{digest}
//
// Live events: murmur:doc:{doc_id}:events
package docsync
