package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/order"
)

// actorFrom resolves the acting account from the gateway headers. The
// gateway authenticates the user and forwards their identity; requests
// without an X-User-Id header are anonymous.
func actorFrom(r *http.Request) (order.Account, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
	if err != nil || id <= 0 {
		return order.Account{}, false
	}

	var roles []order.Role
	for _, role := range strings.Split(r.Header.Get("X-User-Roles"), ",") {
		role = strings.TrimSpace(role)
		if role != "" {
			roles = append(roles, order.Role(role))
		}
	}

	return order.Account{
		ID:       id,
		Username: r.Header.Get("X-User-Name"),
		Email:    r.Header.Get("X-User-Email"),
		Roles:    roles,
	}, true
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// queryID parses an optional int64 query parameter. Absent or malformed
// values mean "no filter".
func queryID(r *http.Request, name string) *int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func queryStatus(r *http.Request) *order.Status {
	v := r.URL.Query().Get("status")
	if v == "" {
		return nil
	}
	s := order.Status(strings.ToUpper(v))
	return &s
}

// pageRequest reads pagination query parameters. The service normalizes the
// result, so out-of-range values are safe to pass through.
func pageRequest(r *http.Request) order.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("pNo"))
	size, _ := strconv.Atoi(q.Get("pSize"))
	return order.PageRequest{
		Page:    page,
		Size:    size,
		SortBy:  q.Get("sortBy"),
		SortDir: strings.ToLower(q.Get("sortDir")),
	}
}

// remoteIP extracts the client IP, preferring the gateway-set
// X-Forwarded-For header.
func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
