package chain

import "testing"

func TestOption(t *testing.T) {
	some := Some(42)
	if !some.Present() {
		t.Error("Some must be present")
	}
	if v, ok := some.Value(); !ok || v != 42 {
		t.Errorf("Unexpected unwrap: %v %v", v, ok)
	}

	none := None[int]()
	if none.Present() {
		t.Error("None must be absent")
	}
	if v, ok := none.Value(); ok || v != 0 {
		t.Errorf("Absent unwrap must yield zero value and false, got %v %v", v, ok)
	}
}
