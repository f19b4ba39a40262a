package xhttp

import (
	"net/http"
)

const (
	ContentType   = "Content-Type"
	Accept        = "Accept"
	Authorization = "Authorization"
	XSessionID    = "X-Session-ID"
)

const ApplicationJSON = "application/json"

func SetRequestHeaderSessionID(r *http.Request, sessionID string) {
	r.Header.Set(XSessionID, sessionID)
}

func GetRequestHeaderSessionID(r *http.Request) string {
	return r.Header.Get(XSessionID)
}

func SetRequestHeaderBearer(r *http.Request, token string) {
	r.Header.Set(Authorization, "Bearer "+token)
}

func SetRequestHeaderAcceptJSON(r *http.Request) {
	r.Header.Set(Accept, ApplicationJSON)
}

func SetRequestHeaderContentTypeJSON(r *http.Request) {
	r.Header.Set(ContentType, ApplicationJSON)
}
