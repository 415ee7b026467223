package keyboard

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Combo
		wantErr bool
	}{
		{"", Combo{}, false},
		{"  ", Combo{}, false},
		{"PageDown", Combo{Key: "PAGEDOWN"}, false},
		{"ctrl+end", Combo{Modifiers: []Modifier{Ctrl}, Key: "END"}, false},
		{"Control + Shift + Tab", Combo{Modifiers: []Modifier{Ctrl, Shift}, Key: "TAB"}, false},
		{"Alt+Win+a", Combo{Modifiers: []Modifier{Alt, Win}, Key: "A"}, false},
		{"Ctrl+", Combo{}, true},
		{"Hyper+A", Combo{}, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestComboString(t *testing.T) {
	c, err := Parse("shift+ctrl+down")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.String(); got != "Shift+Ctrl+DOWN" {
		t.Errorf("String = %q", got)
	}
}

func TestSendEmptyIsNoop(t *testing.T) {
	if err := Send(Combo{}); err != nil {
		t.Errorf("Send(empty) = %v", err)
	}
	if err := (Scroller{}).Scroll(); err != nil {
		t.Errorf("Scroll(empty) = %v", err)
	}
}
