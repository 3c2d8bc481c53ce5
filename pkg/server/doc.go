// Package server implements an embeddable HTTP and WebSocket server.
//
// The Server owns a listening socket, dispatches HTTP requests through an
// ordered route table, and tracks WebSocket connections in a registry keyed
// by opaque client identifiers. Lifecycle, connection, and message events
// are delivered to a registered Observer on a single dispatch goroutine, so
// observer implementations never need their own synchronization.
//
// Basic usage:
//
//	s := server.New(nil)
//	s.GET("/users/:id", func(req *server.Request) *server.Response {
//	    return server.Text(http.StatusOK, "user "+req.Param("id"))
//	})
//	if err := s.Start(8080); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Stop()
//
// WebSocket connections are upgraded automatically for requests carrying an
// upgrade header, on any path. Use SendText, SendData, BroadcastText, and
// BroadcastData to push messages to connected clients.
package server
