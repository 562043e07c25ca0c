package dietplans

// ActionState is the armed-clipboard state of one editing session.
// IDLE when Source is nil, ARMED otherwise. Not persisted.
type ActionState struct {
	Action string  `json:"action,omitempty"`
	Source *Target `json:"source,omitempty"`
}

func (s *ActionState) Armed() bool {
	return s.Source != nil
}

// SelectResult reports what a grid click did.
type SelectResult struct {
	// Applied is true when the click completed a copy or swap.
	Applied bool
	// Source and Destination are set when Applied is true.
	Source      Target
	Destination Target
	// Cancelled is true when reclicking the armed source disarmed it.
	Cancelled bool
}

// Select feeds one grid click into the state machine and reports the
// transition. It decides WHAT should happen; the caller applies the
// resulting operation to the week and disarms on a successful swap.
//
//	IDLE   --click-->                      ARMED
//	ARMED  --same source again-->          IDLE (cancel by reclick)
//	ARMED  --same scope, other target-->   apply; swap disarms, copy re-arms
//	ARMED  --different scope or action-->  ARMED on the new selection
func (s *ActionState) Select(action string, t Target) SelectResult {
	if !s.Armed() {
		s.Action = action
		s.Source = &t
		return SelectResult{}
	}

	if s.Source.equal(t) {
		s.Action = ""
		s.Source = nil
		return SelectResult{Cancelled: true}
	}

	if s.Source.Scope != t.Scope || s.Action != action {
		// Silent restart: the old selection is dropped, nothing applies.
		s.Action = action
		s.Source = &t
		return SelectResult{}
	}

	return SelectResult{Applied: true, Source: *s.Source, Destination: t}
}

// Disarm clears the state after a completed swap or an explicit cancel.
func (s *ActionState) Disarm() {
	s.Action = ""
	s.Source = nil
}
