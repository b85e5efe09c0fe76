package node

import (
	"encoding/binary"

	"nyzo.dev/verifier/consensus"
)

// MessageType tags the payload carried by an Envelope (§6.1).
type MessageType uint8

const (
	MessageBlockCandidate  MessageType = 1
	MessageTransaction     MessageType = 2
	MessageVote            MessageType = 3
	MessageMissingRequest  MessageType = 4
	MessageMissingResponse MessageType = 5
)

// Envelope is the wire framing every gossiped message travels in: a type
// tag followed by a u32 length-prefixed payload, matching the rest of the
// module's big-endian, length-prefixed wire conventions (§6.1, §6.2).
type Envelope struct {
	Type    MessageType
	Payload []byte
}

// Encode serializes e as type(u8) ‖ payload_len(u32) ‖ payload.
func (e Envelope) Encode() []byte {
	out := make([]byte, 0, 1+4+len(e.Payload))
	out = append(out, byte(e.Type))
	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(e.Payload)))
	out = append(out, tmp4[:]...)
	out = append(out, e.Payload...)
	return out
}

// DecodeEnvelope parses one Envelope from the front of b, returning the
// number of bytes consumed.
func DecodeEnvelope(b []byte) (Envelope, int, error) {
	if len(b) < 5 {
		return Envelope{}, 0, consensusErrf(consensus.KindInvalid, consensus.ErrParse, "envelope header truncated")
	}
	typ := MessageType(b[0])
	length := binary.BigEndian.Uint32(b[1:5])
	if uint32(len(b)-5) < length {
		return Envelope{}, 0, consensusErrf(consensus.KindInvalid, consensus.ErrParse, "envelope payload truncated")
	}
	payload := append([]byte(nil), b[5:5+length]...)
	return Envelope{Type: typ, Payload: payload}, 5 + int(length), nil
}

// VoteMessage is one verifier's vote for a candidate block at a height
// (§4.4, §4.7, C10).
type VoteMessage struct {
	Height        uint64
	CandidateHash consensus.Hash
	Voter         consensus.Identifier
	TimestampMs   int64
	Signature     consensus.Signature
}

// SigningBody returns the bytes a voter signs: height ‖ candidate_hash ‖
// voter ‖ timestamp_ms. The signature itself is excluded.
func (m VoteMessage) SigningBody() []byte {
	out := make([]byte, 0, 8+32+32+8)
	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], m.Height)
	out = append(out, tmp8[:]...)
	out = append(out, m.CandidateHash[:]...)
	out = append(out, m.Voter[:]...)
	binary.BigEndian.PutUint64(tmp8[:], uint64(m.TimestampMs))
	out = append(out, tmp8[:]...)
	return out
}

// Sign computes m.Signature over m.SigningBody() under secret.
func (m *VoteMessage) Sign(scheme consensus.SignatureScheme, secret []byte) error {
	sig, err := scheme.Sign(m.SigningBody(), secret)
	if err != nil {
		return err
	}
	m.Signature = sig
	return nil
}

// Verify reports whether m.Signature verifies over m.SigningBody() under
// m.Voter.
func (m VoteMessage) Verify(scheme consensus.SignatureScheme) bool {
	if scheme == nil {
		return false
	}
	return scheme.Verify(m.Signature, m.SigningBody(), m.Voter)
}

// Encode serializes m as SigningBody() ‖ signature(64).
func (m VoteMessage) Encode() []byte {
	return append(m.SigningBody(), m.Signature[:]...)
}

// DecodeVoteMessage parses a VoteMessage produced by Encode.
func DecodeVoteMessage(b []byte) (VoteMessage, error) {
	const want = 8 + 32 + 32 + 8 + 64
	if len(b) != want {
		return VoteMessage{}, consensusErrf(consensus.KindInvalid, consensus.ErrParse, "vote message has wrong length")
	}
	var m VoteMessage
	off := 0
	m.Height = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	copy(m.CandidateHash[:], b[off:off+32])
	off += 32
	copy(m.Voter[:], b[off:off+32])
	off += 32
	m.TimestampMs = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	copy(m.Signature[:], b[off:off+64])
	return m, nil
}

// MissingRequest asks a peer for frozen blocks starting at FromHeight
// (§5 "request-missing phase", C11).
type MissingRequest struct {
	FromHeight uint64
	Limit      uint32
}

// Encode serializes r as from_height(u64) ‖ limit(u32).
func (r MissingRequest) Encode() []byte {
	out := make([]byte, 12)
	binary.BigEndian.PutUint64(out[0:8], r.FromHeight)
	binary.BigEndian.PutUint32(out[8:12], r.Limit)
	return out
}

// DecodeMissingRequest parses a MissingRequest produced by Encode.
func DecodeMissingRequest(b []byte) (MissingRequest, error) {
	if len(b) != 12 {
		return MissingRequest{}, consensusErrf(consensus.KindInvalid, consensus.ErrParse, "missing-request has wrong length")
	}
	return MissingRequest{
		FromHeight: binary.BigEndian.Uint64(b[0:8]),
		Limit:      binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// MissingResponse carries the blocks a peer had available starting at the
// requested height, in ascending order.
type MissingResponse struct {
	Blocks []*consensus.Block
}

// Encode serializes r as count(u32) ‖ (block_len(u32) ‖ block)*.
func (r MissingResponse) Encode() []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(r.Blocks)))
	for _, b := range r.Blocks {
		enc := b.Encode()
		var tmp4 [4]byte
		binary.BigEndian.PutUint32(tmp4[:], uint32(len(enc)))
		out = append(out, tmp4[:]...)
		out = append(out, enc...)
	}
	return out
}

// DecodeMissingResponse parses a MissingResponse produced by Encode.
func DecodeMissingResponse(b []byte) (MissingResponse, error) {
	if len(b) < 4 {
		return MissingResponse{}, consensusErrf(consensus.KindInvalid, consensus.ErrParse, "missing-response header truncated")
	}
	count := binary.BigEndian.Uint32(b[0:4])
	off := 4
	blocks := make([]*consensus.Block, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < off+4 {
			return MissingResponse{}, consensusErrf(consensus.KindInvalid, consensus.ErrParse, "missing-response entry truncated")
		}
		n := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if len(b) < off+n {
			return MissingResponse{}, consensusErrf(consensus.KindInvalid, consensus.ErrParse, "missing-response block truncated")
		}
		block, err := consensus.DecodeBlock(b[off : off+n])
		if err != nil {
			return MissingResponse{}, err
		}
		blocks = append(blocks, block)
		off += n
	}
	return MissingResponse{Blocks: blocks}, nil
}
