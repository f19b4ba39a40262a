package xslog

import (
	"log/slog"
	"strings"
	"time"

	"github.com/garrettladley/bnotif/internal/version"
)

const (
	keyError = "error"
)

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Version() slog.Attr {
	const versionKey = "version"
	return slog.String(versionKey, version.Get())
}

func SessionID(id string) slog.Attr {
	const sessionIDKey = "session_id"
	return slog.String(sessionIDKey, id)
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}

func Unread(count int) slog.Attr {
	const unreadKey = "unread"
	return slog.Int(unreadKey, count)
}

func Cursor(cursor string) slog.Attr {
	const cursorKey = "cursor"
	return slog.String(cursorKey, cursor)
}

func Limit(limit int) slog.Attr {
	const limitKey = "limit"
	return slog.Int(limitKey, limit)
}

func URI(uri string) slog.Attr {
	const uriKey = "uri"
	return slog.String(uriKey, uri)
}

func Key(key []string) slog.Attr {
	const queryKey = "query_key"
	return slog.String(queryKey, strings.Join(key, "/"))
}

func Pages(n int) slog.Attr {
	const pagesKey = "pages"
	return slog.Int(pagesKey, n)
}

func Invalidate(invalidate bool) slog.Attr {
	const invalidateKey = "invalidate"
	return slog.Bool(invalidateKey, invalidate)
}

func Interval(d time.Duration) slog.Attr {
	const intervalKey = "interval"
	return slog.Duration(intervalKey, d)
}

func Reason(reason string) slog.Attr {
	const reasonKey = "reason"
	return slog.String(reasonKey, reason)
}
