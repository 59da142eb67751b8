// Package protocol implements the binary wire format used to stream
// committed passes to remote hosts.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameTree (0x01): Snapshot of the committed host tree
//   - FramePatches (0x02): Patches of one committed pass
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: unsigned integers in 7-bit groups, least significant first
//   - Length-prefixed: strings carry a varint byte length
//   - Bool: a single 0x00 or 0x01 byte
//
// Patch and tree frames are sequenced: their payload starts with a varint
// sequence number, one per frame. A pass too large for one frame is split,
// and only its last frame carries FlagFinal.
//
// # Patches
//
// A patch is its op byte, its host path (a count followed by one varint per
// level) and op-specific data. Paths are valid at the moment the patch is
// applied, so a client applies a frame's patches strictly in order:
//
//	[Op: 0x01][Path: 3, 0, 1, 0][Value: "5"]   SetText 0/1/0 "5"
//
// # Security
//
// Decoding enforces allocation limits on strings and collections and a
// depth limit on nested nodes, so a malicious payload cannot exhaust memory
// or the stack.
package protocol
