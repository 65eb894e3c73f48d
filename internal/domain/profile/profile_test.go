package profile

import "testing"

func TestFieldsApplyMaterial(t *testing.T) {
	p := &Profile{Name: "Ada", Role: "CTO"}

	if (Fields{Goals: String("raise seed")}).Apply(p) {
		t.Fatalf("goals should not be material")
	}
	if p.Goals != "raise seed" {
		t.Fatalf("goals not applied")
	}
	if (Fields{Role: String("CTO")}).Apply(p) {
		t.Fatalf("unchanged role should not be material")
	}
	if !(Fields{Asks: Strings("fundraising")}).Apply(p) {
		t.Fatalf("asks change should be material")
	}
	if !(Fields{Company: String("Acme")}).Apply(p) {
		t.Fatalf("company change should be material")
	}
	if (Fields{Asks: Strings("fundraising")}).Apply(p) {
		t.Fatalf("identical asks should not be material")
	}
}

func TestQuietHoursAccessor(t *testing.T) {
	p := &Profile{}
	if p.QuietHours() != nil {
		t.Fatalf("expected nil quiet hours")
	}
	(Fields{QuietHours: &QuietHours{Start: "22:00", End: "07:00", Timezone: "UTC"}}).Apply(p)
	qh := p.QuietHours()
	if qh == nil || qh.Start != "22:00" || qh.End != "07:00" || qh.Timezone != "UTC" {
		t.Fatalf("quiet hours=%+v", qh)
	}
}

func TestFieldsAppendCall(t *testing.T) {
	p := &Profile{Name: "Ada"}
	(Fields{AppendCall: &CallHistoryEntry{CallID: "c1"}}).Apply(p)
	(Fields{AppendCall: &CallHistoryEntry{CallID: "c2"}}).Apply(p)
	if len(p.CallHistory) != 2 || p.CallHistory[1].CallID != "c2" {
		t.Fatalf("call history=%+v", p.CallHistory)
	}
}
