// Package milestone defines the milestone record and its codec.
//
// A proposed milestone plan travels as an RLP list of 9-element byte-string
// lists. Each milestone's payData carries an opaque vault call; when it is a
// recognized payment directive its fields are merged onto the record.
//
// Everything here is pure: no I/O, no shared state, and every decode
// returns records that share nothing with the input or with each other.
package milestone
