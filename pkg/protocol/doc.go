// Package protocol implements the binary wire protocol spoken between the
// hallway server and its clients.
//
// Every message travels as a frame: a 4-byte big-endian payload length
// followed by the payload itself. The first payload byte is the message tag
// (see Tag). All multi-byte integers are big-endian. Strings are encoded as a
// 2-byte length prefix followed by UTF-8 bytes, with one exception: the
// in-room display name inside Join requests and NewUser announcements uses a
// 1-byte length prefix. Data-object values are encoded as repeated
// [2-byte key][4-byte length][bytes] groups running to the end of the payload.
//
// The package is stateless: Encoder and Decoder operate on byte buffers, the
// Encode*/Decode* helpers build and parse complete message payloads, and
// FrameBuffer reassembles frames from an arbitrary byte stream. Encoding is
// deterministic (identical logical input always yields identical bytes) and
// decoding fails with an error, never a panic, on truncated or oversized
// input.
package protocol
