package bot

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{"/start", "start", nil, true},
		{"/help@gitping_bot", "help", nil, true},
		{"  /subscribe torvalds/linux drivers/**  ", "subscribe", []string{"torvalds/linux", "drivers/**"}, true},
		{"/UNSUBSCRIBE 3", "unsubscribe", []string{"3"}, true},
		{"hello there", "", nil, false},
		{"", "", nil, false},
		{"/", "", nil, false},
	}
	for _, tt := range tests {
		cmd, ok := ParseCommand(tt.text)
		if ok != tt.wantOK {
			t.Errorf("ParseCommand(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if cmd.Name != tt.wantName {
			t.Errorf("ParseCommand(%q) name = %q, want %q", tt.text, cmd.Name, tt.wantName)
		}
		if len(cmd.Args) != len(tt.wantArgs) {
			t.Errorf("ParseCommand(%q) args = %v, want %v", tt.text, cmd.Args, tt.wantArgs)
			continue
		}
		for i := range cmd.Args {
			if cmd.Args[i] != tt.wantArgs[i] {
				t.Errorf("ParseCommand(%q) args = %v, want %v", tt.text, cmd.Args, tt.wantArgs)
				break
			}
		}
	}
}

func TestParseRepo(t *testing.T) {
	owner, name, err := ParseRepo("torvalds/linux")
	if err != nil {
		t.Fatalf("ParseRepo: %v", err)
	}
	if owner != "torvalds" || name != "linux" {
		t.Fatalf("ParseRepo = %q/%q", owner, name)
	}

	for _, bad := range []string{"torvalds", "/linux", "torvalds/", "a/b/c", "", "  /  "} {
		if _, _, err := ParseRepo(bad); err == nil {
			t.Errorf("ParseRepo(%q) accepted invalid input", bad)
		}
	}
}

func TestParseSeq(t *testing.T) {
	seq, err := ParseSeq("12")
	if err != nil {
		t.Fatalf("ParseSeq: %v", err)
	}
	if seq != 12 {
		t.Fatalf("ParseSeq = %d, want 12", seq)
	}
	for _, bad := range []string{"0", "-1", "abc", ""} {
		if _, err := ParseSeq(bad); err == nil {
			t.Errorf("ParseSeq(%q) accepted invalid input", bad)
		}
	}
}
