// Package chunk reads and writes the backup log container: a plain
// concatenation of independently terminated gzip members. Each member is one
// chunk and holds the commands of a single replication session.
//
// The Reader walks members in order without ever materialising one in memory;
// callers stream the decompressed bytes of the current chunk through Read and
// call End to verify the member trailer and move to the next one.
package chunk

// Info describes one chunk as it sits in the log.
type Info struct {
	// Offset is the byte offset of the member header in the log.
	Offset int64
	// Length is the compressed size of the member, trailer included.
	Length int64
	// Digest is the xxh3-64 hash of the decompressed bytes.
	Digest uint64
}
