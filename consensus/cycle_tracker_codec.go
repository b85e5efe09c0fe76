package consensus

import "encoding/binary"

// Encode serializes t to its canonical wire bytes: genesis_anchored(u8) ‖
// identifiers_count(u32) ‖ identifiers… ‖ (start_index(i32) ‖ length(u32))*4
// ‖ closed_cycles(u8) ‖ complete(u8) ‖ continuity(u8) ‖
// new_verifier_states_count(u32) ‖ states…
func (t *CycleTracker) Encode() []byte {
	if t == nil {
		return NewGenesisCycleTracker().Encode()
	}
	out := make([]byte, 0, 256)
	if t.GenesisAnchored {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(t.Identifiers)))
	out = append(out, tmp4[:]...)
	for _, id := range t.Identifiers {
		out = append(out, id[:]...)
	}

	for i := 0; i < CycleHistoryCount; i++ {
		binary.BigEndian.PutUint32(tmp4[:], uint32(int32(t.CycleStartIndices[i])))
		out = append(out, tmp4[:]...)
		binary.BigEndian.PutUint32(tmp4[:], t.CycleLengths[i])
		out = append(out, tmp4[:]...)
	}

	out = append(out, byte(t.ClosedCycles))
	if t.Complete {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, byte(t.Continuity))

	binary.BigEndian.PutUint32(tmp4[:], uint32(len(t.NewVerifierState)))
	out = append(out, tmp4[:]...)
	for _, s := range t.NewVerifierState {
		out = append(out, byte(s))
	}
	return out
}

// DecodeCycleTracker parses a CycleTracker from its canonical wire bytes.
func DecodeCycleTracker(b []byte) (*CycleTracker, error) {
	if len(b) < 1+4 {
		return nil, invalidErr(ErrParse, "cycle tracker header truncated")
	}
	t := &CycleTracker{}
	off := 0
	t.GenesisAnchored = b[off] == 1
	off++

	idCount := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	if len(b) < off+int(idCount)*32 {
		return nil, invalidErr(ErrParse, "cycle tracker identifiers truncated")
	}
	t.Identifiers = make([]Identifier, idCount)
	for i := range t.Identifiers {
		copy(t.Identifiers[i][:], b[off:off+32])
		off += 32
	}

	if len(b) < off+CycleHistoryCount*8 {
		return nil, invalidErr(ErrParse, "cycle tracker history truncated")
	}
	for i := 0; i < CycleHistoryCount; i++ {
		t.CycleStartIndices[i] = int(int32(binary.BigEndian.Uint32(b[off : off+4])))
		off += 4
		t.CycleLengths[i] = binary.BigEndian.Uint32(b[off : off+4])
		off += 4
	}

	if len(b) < off+3+4 {
		return nil, invalidErr(ErrParse, "cycle tracker trailer truncated")
	}
	t.ClosedCycles = int(b[off])
	off++
	t.Complete = b[off] == 1
	off++
	t.Continuity = Continuity(b[off])
	off++

	stateCount := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	if len(b) < off+int(stateCount) {
		return nil, invalidErr(ErrParse, "cycle tracker states truncated")
	}
	t.NewVerifierState = make([]NewVerifierState, stateCount)
	for i := range t.NewVerifierState {
		t.NewVerifierState[i] = NewVerifierState(b[off])
		off++
	}
	return t, nil
}

