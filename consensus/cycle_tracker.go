package consensus

// Continuity is the cycle tracker's Proof-of-Diversity verdict for a
// candidate block (§3.4, §4.1 step 7).
type Continuity int

const (
	ContinuityUndetermined Continuity = iota
	ContinuityContinuous
	ContinuityDiscontinuous
)

// NewVerifierState classifies whether an identifier's appearance in the
// rolling buffer is its first ever appearance (§3.4, §4.1 step 6).
type NewVerifierState int

const (
	NewVerifierUndetermined NewVerifierState = iota
	NewVerifierNew
	NewVerifierExisting
)

// CycleTracker is the incrementally maintained summary of recent signers
// (§3.4, C5). It is derived purely from the parent tracker's Identifiers and
// the next block's signer id — no back-references, no ambient chain access
// (§9 "replace cyclic back-to-previous-block traversal").
type CycleTracker struct {
	Identifiers []Identifier

	// GenesisAnchored is true when Identifiers[0] is the chain's actual
	// Genesis signer (height 0), i.e. nothing has ever been trimmed from
	// the front of the buffer. It lets Next recognise "buffer reaches
	// height 0" (§4.1 step 3) even after older entries are discarded.
	GenesisAnchored bool

	// CycleStartIndices[i] is the index into Identifiers where the i-th
	// most recent cycle begins; -1 if not yet determined. CycleLengths[0]
	// always satisfies CycleLengths[0] = len(Identifiers) - CycleStartIndices[0]
	// once it is determined (§3.4 invariant).
	CycleStartIndices [CycleHistoryCount]int
	CycleLengths      [CycleHistoryCount]uint32
	ClosedCycles      int

	Complete         bool
	Continuity       Continuity
	NewVerifierState []NewVerifierState
}

// NewGenesisCycleTracker returns the tracker state before any block has been
// signed: an empty, genesis-anchored buffer.
func NewGenesisCycleTracker() *CycleTracker {
	t := &CycleTracker{GenesisAnchored: true}
	for i := range t.CycleStartIndices {
		t.CycleStartIndices[i] = -1
	}
	return t
}

// Next derives the cycle tracker for the block that signerID is about to
// sign, given the parent tracker t (§4.1). t is never mutated.
func (t *CycleTracker) Next(signerID Identifier) *CycleTracker {
	ids := make([]Identifier, len(t.Identifiers)+1)
	copy(ids, t.Identifiers)
	ids[len(ids)-1] = signerID

	var startIdx [CycleHistoryCount]int
	for i := range startIdx {
		startIdx[i] = -1
	}
	closed := 0
	seen := make(map[Identifier]struct{}, 16)

	i := len(ids) - 1
	for i >= 0 && closed < CycleHistoryCount {
		id := ids[i]
		if _, dup := seen[id]; dup {
			startIdx[closed] = i + 1
			closed++
			seen = make(map[Identifier]struct{}, 16)
			seen[id] = struct{}{}
			i--
			continue
		}
		seen[id] = struct{}{}
		i--
	}

	reachedGenesis := i < 0 && t.GenesisAnchored
	complete := closed == CycleHistoryCount
	if !complete && reachedGenesis {
		startIdx[closed] = 0
		closed++
		complete = true
	}

	var lengths [CycleHistoryCount]uint32
	for k := 0; k < closed; k++ {
		upper := len(ids)
		if k > 0 {
			upper = startIdx[k-1]
		}
		lengths[k] = uint32(upper - startIdx[k])
	}

	trimFrom := 0
	if closed == CycleHistoryCount && startIdx[CycleHistoryCount-1] > 0 {
		trimFrom = startIdx[CycleHistoryCount-1] - 1
		if trimFrom < 0 {
			trimFrom = 0
		}
	}

	genesisAnchored := t.GenesisAnchored && trimFrom == 0

	if trimFrom > 0 {
		ids = append([]Identifier(nil), ids[trimFrom:]...)
		for k := 0; k < closed; k++ {
			startIdx[k] -= trimFrom
		}
	}

	determinable := complete || genesisAnchored
	states := make([]NewVerifierState, len(ids))
	if determinable {
		localSeen := make(map[Identifier]struct{}, len(ids))
		for idx, id := range ids {
			if _, dup := localSeen[id]; dup {
				states[idx] = NewVerifierExisting
			} else {
				states[idx] = NewVerifierNew
				localSeen[id] = struct{}{}
			}
		}
	}

	next := &CycleTracker{
		Identifiers:       ids,
		GenesisAnchored:   genesisAnchored,
		CycleStartIndices: startIdx,
		CycleLengths:      lengths,
		ClosedCycles:      closed,
		Complete:          complete,
		NewVerifierState:  states,
	}

	if complete {
		next.Continuity = evaluateContinuity(next)
	} else {
		next.Continuity = ContinuityUndetermined
	}
	return next
}

// evaluateContinuity implements §4.1 step 7: Rule A (new-verifier spacing)
// and Rule B (cycle-shrinkage bound). Both must hold for Continuous.
func evaluateContinuity(t *CycleTracker) Continuity {
	last := len(t.Identifiers) - 1
	if last < 0 {
		return ContinuityDiscontinuous
	}

	if t.NewVerifierState[last] == NewVerifierNew {
		window := int(t.CycleLengths[0]) - 1
		for k := 1; k <= window; k++ {
			idx := last - k
			if idx < 0 {
				break
			}
			if t.NewVerifierState[idx] == NewVerifierNew {
				return ContinuityDiscontinuous
			}
		}
	}

	var maxPrior uint32
	for k := 1; k < CycleHistoryCount; k++ {
		if k < t.ClosedCycles && t.CycleLengths[k] > maxPrior {
			maxPrior = t.CycleLengths[k]
		}
	}
	minAllowed := uint32(ceilDiv(int(maxPrior), 2)) + 1
	if t.CycleLengths[0] < minAllowed {
		return ContinuityDiscontinuous
	}

	return ContinuityContinuous
}

// CycleSet returns the distinct identifiers of the freshest (0th) cycle,
// i.e. the authorised signer committee (§2 C5 "identifies the authorised
// signer committee").
func (t *CycleTracker) CycleSet() map[Identifier]struct{} {
	out := make(map[Identifier]struct{})
	if t.CycleStartIndices[0] < 0 {
		for _, id := range t.Identifiers {
			out[id] = struct{}{}
		}
		return out
	}
	for _, id := range t.Identifiers[t.CycleStartIndices[0]:] {
		out[id] = struct{}{}
	}
	return out
}

// CycleList returns the ordered identifiers of the freshest (0th) cycle.
func (t *CycleTracker) CycleList() []Identifier {
	start := t.CycleStartIndices[0]
	if start < 0 {
		start = 0
	}
	return append([]Identifier(nil), t.Identifiers[start:]...)
}
