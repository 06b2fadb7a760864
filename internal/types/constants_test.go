package types

import (
	"testing"
)

func TestUpdateModeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    UpdateMode
		wantErr bool
	}{
		{"overwrite valid", ModeOverwriteFiles, false},
		{"delete-all valid", ModeDeleteAllFiles, false},
		{"empty invalid", "", true},
		{"invalid value", "replace", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mode.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("UpdateMode.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseUpdateMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    UpdateMode
		wantErr bool
	}{
		{"canonical overwrite", "overwrite", ModeOverwriteFiles, false},
		{"canonical delete-all", "delete-all", ModeDeleteAllFiles, false},
		{"numeric overwrite", "1", ModeOverwriteFiles, false},
		{"numeric delete-all", "2", ModeDeleteAllFiles, false},
		{"camel overwrite", "OverwriteFiles", ModeOverwriteFiles, false},
		{"camel delete-all", "DeleteAllFiles", ModeDeleteAllFiles, false},
		{"padded", "  Delete-All ", ModeDeleteAllFiles, false},
		{"empty", "", "", true},
		{"invalid", "3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUpdateMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseUpdateMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseUpdateMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestUpdateModeHelpers(t *testing.T) {
	if ModeOverwriteFiles.PurgesRoot() {
		t.Error("overwrite.PurgesRoot() should be false")
	}
	if !ModeDeleteAllFiles.PurgesRoot() {
		t.Error("delete-all.PurgesRoot() should be true")
	}
	if got := UpdateMode("").Default(); got != ModeOverwriteFiles {
		t.Errorf("empty.Default() = %v, want %v", got, ModeOverwriteFiles)
	}
	if got := ModeDeleteAllFiles.Default(); got != ModeDeleteAllFiles {
		t.Errorf("delete-all.Default() = %v, want %v", got, ModeDeleteAllFiles)
	}
	if len(AllUpdateModes()) != 2 {
		t.Errorf("AllUpdateModes() returned %d modes, want 2", len(AllUpdateModes()))
	}
}

func TestStateIsTerminal(t *testing.T) {
	for _, s := range AllStates() {
		want := s == StateDone || s == StateFailed
		if got := s.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}

func TestHashAlgorithm(t *testing.T) {
	tests := []struct {
		algo    HashAlgorithm
		hexLen  int
		wantErr bool
	}{
		{HashMD5, 32, false},
		{HashSHA256, 64, false},
		{"sha1", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			if err := tt.algo.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("HashAlgorithm.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := tt.algo.HexLen(); got != tt.hexLen {
				t.Errorf("HashAlgorithm.HexLen() = %d, want %d", got, tt.hexLen)
			}
		})
	}
}
