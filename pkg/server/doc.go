// Package server implements the inspector: a vango.Host that mirrors every
// committed render pass and streams it to WebSocket clients.
//
// # Usage
//
//	srv := server.New(&server.ServerConfig{Address: ":8080"})
//	r := vango.NewRenderer(sched, srv)
//	go srv.Run(ctx)
//
// # Frame Stream
//
// A client connecting to /ws first receives a FrameTree snapshot of the
// mirrored host tree, tagged with the sequence number of the last patch
// frame it includes. Every later pass arrives as one or more FramePatches
// frames; the last frame of a pass carries protocol.FlagFinal.
//
// A client that reconnects with /ws?since=<seq> is sent the frames it
// missed from the replay buffer (PatchHistory). If they are no longer
// buffered it gets a fresh snapshot instead.
//
// Clients are read-only. A client that cannot keep up with its frame queue
// (ServerConfig.ClientBuffer) is disconnected.
//
// # Thread Safety
//
// Apply may be called concurrently with HTTP handlers. Frames are queued
// to clients in sequence order.
package server
