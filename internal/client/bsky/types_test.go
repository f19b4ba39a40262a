package bsky

import (
	"testing"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestEmbeddedPost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		embed   string
		wantURI string
		wantOK  bool
	}{
		{
			name:    "record view",
			embed:   `{"$type":"app.bsky.embed.record#view","record":{"$type":"app.bsky.embed.record#viewRecord","uri":"at://q/1","cid":"c","author":{"did":"d","handle":"h"},"indexedAt":"2024-01-01T00:00:00Z"}}`,
			wantURI: "at://q/1",
			wantOK:  true,
		},
		{
			name:    "record with media view",
			embed:   `{"$type":"app.bsky.embed.recordWithMedia#view","media":{"$type":"app.bsky.embed.images#view","images":[]},"record":{"$type":"app.bsky.embed.record#view","record":{"$type":"app.bsky.embed.record#viewRecord","uri":"at://q/2","cid":"c","author":{"did":"d","handle":"h"},"indexedAt":"2024-01-01T00:00:00Z"}}}`,
			wantURI: "at://q/2",
			wantOK:  true,
		},
		{
			name:   "not found record",
			embed:  `{"$type":"app.bsky.embed.record#view","record":{"$type":"app.bsky.embed.record#viewNotFound","uri":"at://q/3"}}`,
			wantOK: false,
		},
		{
			name:   "blocked record",
			embed:  `{"$type":"app.bsky.embed.record#view","record":{"$type":"app.bsky.embed.record#viewBlocked","uri":"at://q/4"}}`,
			wantOK: false,
		},
		{
			name:   "images only",
			embed:  `{"$type":"app.bsky.embed.images#view","images":[]}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var embed EmbedView
			if err := go_json.Unmarshal([]byte(tt.embed), &embed); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			got, ok := EmbeddedPost(&embed)
			if ok != tt.wantOK {
				t.Fatalf("EmbeddedPost() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.URI != tt.wantURI {
				t.Errorf("EmbeddedPost() uri = %q, want %q", got.URI, tt.wantURI)
			}
		})
	}

	if _, ok := EmbeddedPost(nil); ok {
		t.Error("EmbeddedPost(nil) ok = true")
	}
}

func TestViewRecordPostView(t *testing.T) {
	t.Parallel()

	indexed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	inner := EmbedView{Type: TypeEmbedImagesView}
	v := ViewRecord{
		URI:        "at://q/1",
		CID:        "cid",
		Author:     Actor{DID: "did:plc:q", Handle: "q.test"},
		Value:      go_json.RawMessage(`{"text":"hi"}`),
		Embeds:     []EmbedView{inner, {Type: TypeEmbedRecordView}},
		LikeCount:  3,
		QuoteCount: 1,
		IndexedAt:  indexed,
	}

	want := PostView{
		URI:        "at://q/1",
		CID:        "cid",
		Author:     Actor{DID: "did:plc:q", Handle: "q.test"},
		Record:     go_json.RawMessage(`{"text":"hi"}`),
		Embed:      &inner,
		LikeCount:  3,
		QuoteCount: 1,
		IndexedAt:  indexed,
	}
	if diff := cmp.Diff(want, v.PostView()); diff != "" {
		t.Errorf("PostView() mismatch (-want +got):\n%s", diff)
	}
}
