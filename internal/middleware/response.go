package middleware

import (
	"net/http"

	"github.com/streamgate/gate-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
