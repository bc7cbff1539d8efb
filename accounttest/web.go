package accounttest

import (
	"net/http"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"google.golang.org/grpc"

	"xdao.co/hermes/account"
)

// WebHandler serves srv as gRPC-Web (binary and text) from a dedicated
// grpc.Server. Call stop once the handler is no longer served.
func WebHandler(srv account.AccountServiceServer) (h http.Handler, stop func()) {
	gs := grpc.NewServer()
	account.RegisterAccountServiceServer(gs, srv)
	return WrapWeb(gs), gs.Stop
}

// WrapWeb exposes every service registered on gs over gRPC-Web. Requests
// that are not gRPC-Web are rejected with 400.
func WrapWeb(gs *grpc.Server) http.Handler {
	wrapped := grpcweb.WrapServer(gs)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !wrapped.IsGrpcWebRequest(r) {
			http.Error(w, "expected a gRPC-Web request", http.StatusBadRequest)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}
