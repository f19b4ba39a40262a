package bsky

import (
	"time"

	go_json "github.com/goccy/go-json"
)

const (
	TypeEmbedRecordView          = "app.bsky.embed.record#view"
	TypeEmbedRecordWithMediaView = "app.bsky.embed.recordWithMedia#view"
	TypeEmbedRecordViewRecord    = "app.bsky.embed.record#viewRecord"
	TypeEmbedRecordViewNotFound  = "app.bsky.embed.record#viewNotFound"
	TypeEmbedRecordViewBlocked   = "app.bsky.embed.record#viewBlocked"
	TypeEmbedImagesView          = "app.bsky.embed.images#view"
)

type Label struct {
	Src string    `json:"src"`
	URI string    `json:"uri"`
	Val string    `json:"val"`
	Neg bool      `json:"neg,omitempty"`
	Cts time.Time `json:"cts"`
}

type Actor struct {
	DID         string  `json:"did"`
	Handle      string  `json:"handle"`
	DisplayName string  `json:"displayName,omitempty"`
	Avatar      string  `json:"avatar,omitempty"`
	Labels      []Label `json:"labels,omitempty"`
}

type PostView struct {
	URI         string             `json:"uri"`
	CID         string             `json:"cid"`
	Author      Actor              `json:"author"`
	Record      go_json.RawMessage `json:"record,omitempty"`
	Embed       *EmbedView         `json:"embed,omitempty"`
	ReplyCount  int                `json:"replyCount,omitempty"`
	RepostCount int                `json:"repostCount,omitempty"`
	LikeCount   int                `json:"likeCount,omitempty"`
	QuoteCount  int                `json:"quoteCount,omitempty"`
	IndexedAt   time.Time          `json:"indexedAt"`
	Labels      []Label            `json:"labels,omitempty"`
}

// EmbedView is the union of embed views attached to a post. Only the record
// variants are decoded structurally; media is kept raw.
type EmbedView struct {
	Type   string             `json:"$type"`
	Record *EmbedRecord       `json:"record,omitempty"`
	Media  go_json.RawMessage `json:"media,omitempty"`
	Images go_json.RawMessage `json:"images,omitempty"`
}

// EmbedRecord holds a record#view payload. Under a record#view it is the
// record itself; under a recordWithMedia#view it wraps another EmbedRecord.
type EmbedRecord struct {
	Type string `json:"$type,omitempty"`
	ViewRecord
	Record *EmbedRecord `json:"record,omitempty"`
}

type ViewRecord struct {
	URI         string             `json:"uri,omitempty"`
	CID         string             `json:"cid,omitempty"`
	Author      Actor              `json:"author"`
	Value       go_json.RawMessage `json:"value,omitempty"`
	Labels      []Label            `json:"labels,omitempty"`
	Embeds      []EmbedView        `json:"embeds,omitempty"`
	ReplyCount  int                `json:"replyCount,omitempty"`
	RepostCount int                `json:"repostCount,omitempty"`
	LikeCount   int                `json:"likeCount,omitempty"`
	QuoteCount  int                `json:"quoteCount,omitempty"`
	IndexedAt   time.Time          `json:"indexedAt"`
}

// PostView normalizes an embedded record to the full post shape.
func (v ViewRecord) PostView() PostView {
	p := PostView{
		URI:         v.URI,
		CID:         v.CID,
		Author:      v.Author,
		Record:      v.Value,
		ReplyCount:  v.ReplyCount,
		RepostCount: v.RepostCount,
		LikeCount:   v.LikeCount,
		QuoteCount:  v.QuoteCount,
		IndexedAt:   v.IndexedAt,
		Labels:      v.Labels,
	}
	if len(v.Embeds) > 0 {
		embed := v.Embeds[0]
		p.Embed = &embed
	}
	return p
}

// EmbeddedPost returns the quoted post carried by a record or
// record-with-media embed. Not-found, blocked and detached records are not posts.
func EmbeddedPost(embed *EmbedView) (ViewRecord, bool) {
	if embed == nil || embed.Record == nil {
		return ViewRecord{}, false
	}

	var rec *EmbedRecord
	switch embed.Type {
	case TypeEmbedRecordView:
		rec = embed.Record
	case TypeEmbedRecordWithMediaView:
		rec = embed.Record.Record
	default:
		return ViewRecord{}, false
	}

	if rec == nil || rec.Type != TypeEmbedRecordViewRecord {
		return ViewRecord{}, false
	}
	return rec.ViewRecord, true
}

type Notification struct {
	URI           string             `json:"uri"`
	CID           string             `json:"cid"`
	Author        Actor              `json:"author"`
	Reason        string             `json:"reason"`
	ReasonSubject string             `json:"reasonSubject,omitempty"`
	Record        go_json.RawMessage `json:"record,omitempty"`
	IsRead        bool               `json:"isRead"`
	IndexedAt     time.Time          `json:"indexedAt"`
	Labels        []Label            `json:"labels,omitempty"`
}

type ListNotificationsParams struct {
	Limit  int
	Cursor string
}

type ListNotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	Cursor        string         `json:"cursor,omitempty"`
	SeenAt        string         `json:"seenAt,omitempty"`
	Priority      bool           `json:"priority,omitempty"`
}

func (r *ListNotificationsResponse) HasMore() bool {
	return r.Cursor != ""
}

type getPostsResponse struct {
	Posts []PostView `json:"posts"`
}

type updateSeenRequest struct {
	SeenAt string `json:"seenAt"`
}
