package realtime

import (
	"errors"
	"net/http"

	"github.com/anbuneel/zenote-sub001/internal/auth"
	"github.com/anbuneel/zenote-sub001/internal/common"
	ws "github.com/coder/websocket"
)

// Handler upgrades authenticated requests to a websocket and streams the
// user's change events. The access token travels in the query string since
// browsers cannot set headers on websocket requests.
func Handler(hub *Hub, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.GetUserIDFromToken(r.URL.Query().Get(common.AccessTokenHeaderName), secret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				http.Error(w, common.ErrTokenExpired.Error(), http.StatusUnauthorized)
				return
			}
			http.Error(w, common.ErrorUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			hub.log.Warn(r.Context(), "websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		hub.log.Debug(r.Context(), "client connected", "user_id", userID)
		NewClient(hub, userID, conn).Run(r.Context())
		hub.log.Debug(r.Context(), "client disconnected", "user_id", userID)
	}
}

// Mux serves the realtime endpoint and a liveness probe.
func Mux(hub *Hub, secret []byte) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /v1/realtime", Handler(hub, secret))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
