package track

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMergeOverwritesOnlyNonEmptyFields(t *testing.T) {
	base := State{Cover: "https://img/1.jpg", Song: "Old Song", Artist: "Old Artist"}

	tests := []struct {
		name      string
		candidate Candidate
		want      State
		eligible  bool
	}{
		{
			name:      "song only",
			candidate: Candidate{Song: Some("New Song")},
			want:      State{Cover: "https://img/1.jpg", Song: "New Song", Artist: "Old Artist"},
			eligible:  true,
		},
		{
			name:      "empty strings are ignored",
			candidate: Candidate{Cover: Some(""), Song: Some("New Song"), Artist: Some("")},
			want:      State{Cover: "https://img/1.jpg", Song: "New Song", Artist: "Old Artist"},
			eligible:  true,
		},
		{
			name:      "all fields",
			candidate: Candidate{Cover: Some("c"), Song: Some("s"), Artist: Some("a")},
			want:      State{Cover: "c", Song: "s", Artist: "a"},
			eligible:  true,
		},
		{
			name:      "nothing usable",
			candidate: Candidate{Cover: nil, Song: Some(""), Artist: nil},
			want:      base,
			eligible:  false,
		},
		{
			name:      "zero candidate",
			candidate: Candidate{},
			want:      base,
			eligible:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			got := s.Merge(tt.candidate)
			if got != tt.eligible {
				t.Errorf("Merge() eligible = %v, want %v", got, tt.eligible)
			}
			if s != tt.want {
				t.Errorf("state = %+v, want %+v", s, tt.want)
			}
			if tt.candidate.IsEmpty() == tt.eligible {
				t.Errorf("Candidate.IsEmpty() = %v, inconsistent with eligible %v", tt.candidate.IsEmpty(), tt.eligible)
			}
		})
	}
}

func TestMarshalIndentOmitsUnobservedFields(t *testing.T) {
	var s State
	s.Merge(Candidate{Song: Some("Song A"), Artist: Some("Artist X")})

	data, err := s.MarshalIndent()
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	want := "{\n  \"song\": \"Song A\",\n  \"artist\": \"Artist X\"\n}"
	if string(data) != want {
		t.Errorf("MarshalIndent() = %s, want %s", data, want)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := decoded["cover"]; ok {
		t.Error("cover should not be present before it was observed")
	}
	if decoded["song"] != "Song A" || decoded["artist"] != "Artist X" {
		t.Errorf("round trip mismatch: %v", decoded)
	}
}

func TestMarshalIndentKeyOrder(t *testing.T) {
	s := State{Cover: "https://i.scdn.co/image/x", Song: "B", Artist: "A, C"}
	data, err := s.MarshalIndent()
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	out := string(data)
	ci, si, ai := strings.Index(out, `"cover"`), strings.Index(out, `"song"`), strings.Index(out, `"artist"`)
	if !(ci < si && si < ai) {
		t.Errorf("unexpected key order in %s", out)
	}
}

func TestSameTrack(t *testing.T) {
	a := State{Cover: "x", Song: "S", Artist: "A"}
	b := State{Cover: "y", Song: "S", Artist: "A"}
	if !a.SameTrack(b) {
		t.Error("cover change alone should not count as a new track")
	}
	b.Song = "T"
	if a.SameTrack(b) {
		t.Error("different song should be a different track")
	}
}

func TestCandidateString(t *testing.T) {
	c := Candidate{Song: Some("Song A"), Artist: Some("")}
	want := `{cover:<absent> song:"Song A" artist:""}`
	if got := c.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestStateIsEmpty(t *testing.T) {
	var s State
	if !s.IsEmpty() {
		t.Error("zero state should be empty")
	}
	s.Merge(Candidate{Cover: Some("c")})
	if s.IsEmpty() {
		t.Error("state with a cover should not be empty")
	}
}
