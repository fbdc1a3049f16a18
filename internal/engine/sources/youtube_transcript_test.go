package sources

import (
	"errors"
	"testing"
)

func TestFormatTimestamps(t *testing.T) {
	lines := []TranscriptLine{
		{Start: 0.4, Text: "intro"},
		{Start: 65.9, Text: "first topic"},
		{Start: 600, Text: "ten minutes"},
		{Start: 3725, Text: "over an hour"},
	}
	want := "0:00 - intro\n1:05 - first topic\n10:00 - ten minutes\n62:05 - over an hour"
	if got := FormatTimestamps(lines); got != want {
		t.Errorf("FormatTimestamps() = %q, want %q", got, want)
	}
	if got := FormatTimestamps(nil); got != "" {
		t.Errorf("FormatTimestamps(nil) = %q, want empty", got)
	}
}

func TestParseTimedText(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">Hello &amp;amp; welcome</text>
<text start="3" dur="1">it&amp;#39;s &lt;font color=&quot;#fff&quot;&gt;Go&lt;/font&gt;</text>
<text start="5" dur="1">   </text>
</transcript>`)
	lines, err := parseTimedText(body)
	if err != nil {
		t.Fatalf("parseTimedText() error = %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("parseTimedText() returned %d lines, want 2", len(lines))
	}
	if lines[0].Text != "Hello & welcome" || lines[0].Start != 0.5 || lines[0].Duration != 2.1 {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if lines[1].Text != "it's Go" {
		t.Errorf("line 1 text = %q, want %q", lines[1].Text, "it's Go")
	}
}

func TestPickTrack(t *testing.T) {
	tests := []struct {
		name    string
		tracks  []captionTrack
		want    string
		wantErr error
	}{
		{
			name: "manual preferred over asr",
			tracks: []captionTrack{
				{BaseURL: "asr", LanguageCode: "en", Kind: "asr"},
				{BaseURL: "manual", LanguageCode: "en"},
			},
			want: "manual",
		},
		{
			name:   "asr when no manual",
			tracks: []captionTrack{{BaseURL: "asr", LanguageCode: "en", Kind: "asr"}},
			want:   "asr",
		},
		{
			name:    "other language only",
			tracks:  []captionTrack{{BaseURL: "de", LanguageCode: "de"}},
			wantErr: ErrNoTranscriptFound,
		},
		{
			name:    "potoken only",
			tracks:  []captionTrack{{BaseURL: "https://x/?a=1&exp=xpe", LanguageCode: "en"}},
			wantErr: errPoTokenOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickTrack(tt.tracks, []string{"en"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("pickTrack() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("pickTrack() error = %v", err)
			}
			if got.BaseURL != tt.want {
				t.Errorf("pickTrack() = %q, want %q", got.BaseURL, tt.want)
			}
		})
	}
}

func TestPlayerFromWatchPageClassification(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		wantErr error
	}{
		{
			name:    "captions missing",
			page:    `<script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"}};</script>`,
			wantErr: ErrTranscriptsDisabled,
		},
		{
			name:    "unplayable",
			page:    `<script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}};</script>`,
			wantErr: ErrVideoUnavailable,
		},
		{
			name:    "empty track list",
			page:    `<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[]}}};</script>`,
			wantErr: ErrTranscriptsDisabled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, err := playerFromWatchPage([]byte(tt.page))
			if err != nil {
				t.Fatalf("playerFromWatchPage() error = %v", err)
			}
			_, err = tracksFromPlayer(pr)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("tracksFromPlayer() error = %v, want %v", err, tt.wantErr)
			}
			if !isClassified(err) {
				t.Errorf("isClassified(%v) = false", err)
			}
		})
	}
}

func TestPlayerFromWatchPageMissingMarker(t *testing.T) {
	_, err := playerFromWatchPage([]byte(`<html>consent wall</html>`))
	if err == nil {
		t.Fatal("expected error")
	}
	if isClassified(err) {
		t.Errorf("missing marker should not be classified: %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":{"b":1}};var x = 1;`, `{"a":{"b":1}}`},
		{`{"s":"brace } in \"string\""} tail`, `{"s":"brace } in \"string\""}`},
		{`{"s":"ends with backslash \\"} tail`, `{"s":"ends with backslash \\"}`},
		{`not json`, ``},
		{`{"unterminated":`, ``},
	}
	for _, tt := range tests {
		if got := string(extractJSON([]byte(tt.in))); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
