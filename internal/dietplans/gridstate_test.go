package dietplans

import "testing"

func TestSelectArmAndCancelByReclick(t *testing.T) {
	var s ActionState

	res := s.Select(ActionCopy, Target{Scope: ScopeCell, Day: 0, Meal: 1})
	if res.Applied || res.Cancelled || !s.Armed() {
		t.Fatalf("first click must arm: %+v state=%+v", res, s)
	}

	res = s.Select(ActionCopy, Target{Scope: ScopeCell, Day: 0, Meal: 1})
	if !res.Cancelled || s.Armed() {
		t.Fatalf("reclicking the source must cancel: %+v state=%+v", res, s)
	}
}

func TestSelectCopyStaysArmedForMultiPaste(t *testing.T) {
	var s ActionState
	src := Target{Scope: ScopeCell, Day: 0, Meal: 0}

	s.Select(ActionCopy, src)

	res := s.Select(ActionCopy, Target{Scope: ScopeCell, Day: 1, Meal: 0})
	if !res.Applied || res.Source != src {
		t.Fatalf("expected applied copy from source: %+v", res)
	}
	if !s.Armed() || *s.Source != src {
		t.Fatal("copy must stay armed on the same source after a paste")
	}

	res = s.Select(ActionCopy, Target{Scope: ScopeCell, Day: 2, Meal: 0})
	if !res.Applied || res.Source != src {
		t.Fatalf("second paste from same source must apply: %+v", res)
	}
}

func TestSelectSwapDisarmsViaCaller(t *testing.T) {
	var s ActionState
	src := Target{Scope: ScopeColumn, Day: 0}

	s.Select(ActionSwap, src)
	res := s.Select(ActionSwap, Target{Scope: ScopeColumn, Day: 3})
	if !res.Applied {
		t.Fatalf("expected applied swap: %+v", res)
	}
	// The service disarms after a successful swap.
	s.Disarm()
	if s.Armed() {
		t.Fatal("state must be idle after disarm")
	}
}

func TestSelectScopeChangeSilentlyRestarts(t *testing.T) {
	var s ActionState

	s.Select(ActionCopy, Target{Scope: ScopeRow, Meal: 2})
	res := s.Select(ActionCopy, Target{Scope: ScopeColumn, Day: 4})
	if res.Applied || res.Cancelled {
		t.Fatalf("scope change must not apply or cancel: %+v", res)
	}
	if !s.Armed() || s.Source.Scope != ScopeColumn || s.Source.Day != 4 {
		t.Fatalf("state must re-arm on the new selection: %+v", s)
	}
}

func TestSelectActionChangeSilentlyRestarts(t *testing.T) {
	var s ActionState

	s.Select(ActionCopy, Target{Scope: ScopeCell, Day: 0, Meal: 0})
	res := s.Select(ActionSwap, Target{Scope: ScopeCell, Day: 1, Meal: 1})
	if res.Applied {
		t.Fatalf("action change must not apply the old selection: %+v", res)
	}
	if s.Action != ActionSwap || s.Source.Day != 1 {
		t.Fatalf("state must re-arm with the new action: %+v", s)
	}
}

func TestTargetEqualIgnoresIrrelevantAxis(t *testing.T) {
	// Row targets compare by meal index only, column targets by day only.
	a := Target{Scope: ScopeRow, Day: 3, Meal: 2}
	b := Target{Scope: ScopeRow, Day: 5, Meal: 2}
	if !a.equal(b) {
		t.Error("row targets with same meal index must be equal")
	}
	c := Target{Scope: ScopeColumn, Day: 3, Meal: 0}
	d := Target{Scope: ScopeColumn, Day: 3, Meal: 6}
	if !c.equal(d) {
		t.Error("column targets with same day index must be equal")
	}
	if a.equal(c) {
		t.Error("targets with different scopes must not be equal")
	}
}
