// Package protocol owns the byte-level primitives shared by the milestone
// wire formats.
//
// Ownership boundary:
// - big-endian integer encoding and decoding
// - 0x-prefixed hex at the process boundary
// - the DecodeError contract used by rlp, directive and milestone
package protocol
