package grpc

import (
	"google.golang.org/grpc"
)

// MaxMessageBytes bounds every DocumentStore message in both directions.
// A Watch message carries a whole collection snapshot with screenshots
// inline (up to about 1.07 MB each once base64 encoded), so the 4 MB gRPC
// default breaks after three or four screenshots.
const MaxMessageBytes = 256 << 20

// ServerOptions returns the server options every DocumentStore server needs
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(MaxMessageBytes),
		grpc.MaxSendMsgSize(MaxMessageBytes),
	}
}

// DialOptions returns the dial options every DocumentStore client needs
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(MaxMessageBytes),
			grpc.MaxCallSendMsgSize(MaxMessageBytes),
		),
	}
}
