package proto

import (
	"errors"
	"strings"
	"testing"
)

func parseStatus(t *testing.T, input string) Status {
	t.Helper()
	_, err := Parse([]byte(input))
	if err == nil {
		t.Fatalf("Parse(%q): expected an error", input)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Parse(%q): error %v is not a StatusError", input, err)
	}
	return se.Status
}

func TestParse_SimpleOpcodes(t *testing.T) {
	cases := []struct {
		input string
		want  Command
	}{
		{"?", Help{}},
		{"a", ReadAnalog{}},
		{"e", ReadSwitches{}},
		{"r", ReadClock{}},
		{"x", ClearEvents{}},
		{"n", EventCount{}},
		{"h", DrainEvents{}},
		{"n\r\n", EventCount{}},
	}
	for _, tc := range cases {
		cmd, err := Parse([]byte(tc.input))
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.input, err)
			continue
		}
		if cmd != tc.want {
			t.Errorf("Parse(%q) = %#v, want %#v", tc.input, cmd, tc.want)
		}
	}
}

func TestParse_Calibrate(t *testing.T) {
	cmd, err := Parse([]byte("c1\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd != (Calibrate{Axis: 1}) {
		t.Errorf("Parse = %#v, want Calibrate{1}", cmd)
	}

	if got := parseStatus(t, "c"); got != StatusNoArg {
		t.Errorf("c without argument byte: status = %d, want -1", got)
	}
	if got := parseStatus(t, "c2"); got != StatusBadArg {
		t.Errorf("c with invalid axis: status = %d, want -2", got)
	}
	if got := parseStatus(t, "cx"); got != StatusBadArg {
		t.Errorf("c with junk argument: status = %d, want -2", got)
	}
}

func TestParse_Move(t *testing.T) {
	cmd, err := Parse([]byte("m0,100\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd != (Move{Axis: 0, Position: 100}) {
		t.Errorf("Parse = %#v, want Move{0, 100}", cmd)
	}

	// Boundary of the valid position range.
	if cmd, err := Parse([]byte("m1,12799")); err != nil || cmd != (Move{Axis: 1, Position: 12799}) {
		t.Errorf("Parse(m1,12799) = %#v, %v", cmd, err)
	}

	cases := []struct {
		input string
		want  Status
	}{
		{"m", StatusNoArg},
		{"m12345,67890x", StatusNoArg}, // argument block longer than 10 chars
		{"m1", StatusBadArg},
		{"mx,y", StatusBadArg},
		{"m1,2,3", StatusBadArg},
		{"m2,10", StatusInvalid},    // axis 2 does not exist
		{"m0,12800", StatusInvalid}, // valid range is 0..12799
		{"m0,-1", StatusInvalid},
	}
	for _, tc := range cases {
		if got := parseStatus(t, tc.input); got != tc.want {
			t.Errorf("Parse(%q): status = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestParse_SetClock(t *testing.T) {
	cmd, err := Parse([]byte("s2026,1,22,10,30,0\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := SetClock{Year: 2026, Month: 1, Day: 22, Hour: 10, Minute: 30, Second: 0}
	if cmd != want {
		t.Errorf("Parse = %#v, want %#v", cmd, want)
	}

	if got := parseStatus(t, "s"); got != StatusNoArg {
		t.Errorf("s without arguments: status = %d, want -1", got)
	}
	long := "s" + strings.Repeat("1", 30)
	if got := parseStatus(t, long); got != StatusNoArg {
		t.Errorf("s with >29 argument chars: status = %d, want -1", got)
	}
	if got := parseStatus(t, "s2026,1,22,10,30"); got != StatusBadArg {
		t.Errorf("s with five integers: status = %d, want -2", got)
	}
	if got := parseStatus(t, "s2026,1,22,x,30,0"); got != StatusBadArg {
		t.Errorf("s with junk field: status = %d, want -2", got)
	}
}

func TestParse_UnknownOpcode(t *testing.T) {
	for _, input := range []string{"z", "Z123", "", "\r\n"} {
		_, err := Parse([]byte(input))
		if !errors.Is(err, ErrUnknownOpcode) {
			t.Errorf("Parse(%q) = %v, want ErrUnknownOpcode", input, err)
		}
	}
}

func TestParse_ArgBlockStopsAtLineEnding(t *testing.T) {
	// Bytes after the line ending belong to no command; a second
	// request on the same connection is never served.
	cmd, err := Parse([]byte("m0,5\r\nm1,6\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd != (Move{Axis: 0, Position: 5}) {
		t.Errorf("Parse = %#v, want Move{0, 5}", cmd)
	}
}
