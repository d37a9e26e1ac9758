// handlers.go - Shared request and response helpers
package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is negotiated through the Accept header.
const MIMEApplicationMsgpack = "application/msgpack"

// respond writes v as msgpack when the client asks for it, JSON otherwise.
func respond(c echo.Context, status int, v interface{}) error {
	if !wantsMsgpack(c.Request()) {
		return c.JSON(status, v)
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, data)
}

func wantsMsgpack(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get(echo.HeaderAccept), ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(mt, MIMEApplicationMsgpack) || strings.EqualFold(mt, "application/x-msgpack") {
			return true
		}
	}
	return false
}

// readLimited reads at most limit bytes from r. Larger inputs are rejected
// with a 413 instead of being truncated.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, NewBadRequestError("failed to read body", err)
	}
	if int64(len(data)) > limit {
		return nil, NewPayloadTooLargeError(limit)
	}
	return data, nil
}

// sessionParam returns the session_id query or form value.
func sessionParam(c echo.Context) string {
	if s := strings.TrimSpace(c.QueryParam("session_id")); s != "" {
		return s
	}
	return strings.TrimSpace(c.FormValue("session_id"))
}
