package combatlog

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  Trigger
		match bool
	}{
		{"encounter start", `10/19/2026 21:03:11.482-4  ENCOUNTER_START,2902,"Ulgrax the Devourer",16,20,2657`, EncounterStart, true},
		{"encounter end", `10/19/2026 21:09:40.001-4  ENCOUNTER_END,2902,"Ulgrax the Devourer",16,20,1,389211`, EncounterEnd, true},
		{"challenge start", `10/19/2026 20:00:02.100-4  CHALLENGE_MODE_START,"The Stonevault",2652,501,10,[9,10,147]`, ChallengeModeStart, true},
		{"challenge end", `10/19/2026 20:31:55.900-4  CHALLENGE_MODE_END,2652,1,10,1913201,312.5,2345.1`, ChallengeModeEnd, true},
		{"unrelated", `10/19/2026 21:03:12.000-4  SPELL_CAST_SUCCESS,Player-1-0A,"Drathion"`, TriggerNone, false},
		{"marker mid-line", `garbage ENCOUNTER_END garbage`, EncounterEnd, true},
		{"challenge wins over encounter", `ENCOUNTER_START CHALLENGE_MODE_END`, ChallengeModeEnd, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.line)
			if ok != tt.match || got != tt.want {
				t.Errorf("Classify() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.match)
			}
		})
	}
}

func TestTrigger_String(t *testing.T) {
	if got := EncounterStart.String(); got != "ENCOUNTER_START" {
		t.Fatalf("EncounterStart.String() = %q, want ENCOUNTER_START", got)
	}
	if got := TriggerNone.String(); got != "NONE" {
		t.Fatalf("TriggerNone.String() = %q, want NONE", got)
	}
	if len(Triggers()) != 4 {
		t.Fatalf("Triggers() returned %d entries, want 4", len(Triggers()))
	}
}

func TestRecordName(t *testing.T) {
	tests := []struct {
		line    string
		trigger Trigger
		want    string
	}{
		{`10/19/2026 21:03:11.482-4  ENCOUNTER_START,2902,"Ulgrax the Devourer",16,20,2657`, EncounterStart, "Ulgrax the Devourer"},
		{`10/19/2026 20:00:02.100-4  CHALLENGE_MODE_START,"The Stonevault",2652,501,10`, ChallengeModeStart, "The Stonevault"},
		{`10/19/2026 20:31:55.900-4  CHALLENGE_MODE_END,2652,1,10,1913201`, ChallengeModeEnd, ""},
		{`ENCOUNTER_START,2902,"unterminated`, EncounterStart, ""},
		{`no marker "here"`, EncounterStart, ""},
	}

	for _, tt := range tests {
		if got := RecordName(tt.line, tt.trigger); got != tt.want {
			t.Errorf("RecordName(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
