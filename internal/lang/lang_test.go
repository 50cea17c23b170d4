package lang

import "testing"

func TestValid(t *testing.T) {
	for _, l := range All() {
		if !Valid(string(l.Code)) {
			t.Errorf("Valid(%q) = false, want true", l.Code)
		}
	}
	for _, bad := range []string{"", "xx-XX", "hi", "HI-IN", "en-US"} {
		if Valid(bad) {
			t.Errorf("Valid(%q) = true, want false", bad)
		}
	}
}

func TestAll_TwelveLanguages(t *testing.T) {
	if got := len(All()); got != 12 {
		t.Fatalf("len(All()) = %d, want 12", got)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	a[0].Name = "changed"
	if All()[0].Name != "Hindi" {
		t.Error("All() exposed the internal table")
	}
}

func TestName_Fallback(t *testing.T) {
	if got := Name(Tamil, "Hindi"); got != "Tamil" {
		t.Errorf("Name(ta-IN) = %q, want Tamil", got)
	}
	if got := Name(Code("xx-XX"), "English"); got != "English" {
		t.Errorf("Name(xx-XX) = %q, want fallback English", got)
	}
}
