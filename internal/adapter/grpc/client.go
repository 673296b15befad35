package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/tradejournal-backend/internal/adapter/docstore"
	"github.com/simaogato/tradejournal-backend/internal/adapter/session"
	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// Client implements domain.DocumentStore against a remote DocumentStore service
type Client struct {
	conn     grpc.ClientConnInterface
	provider session.Provider
}

// NewClient creates a client. Calls carry provider's token; SignInAnonymously never does.
func NewClient(conn grpc.ClientConnInterface, provider session.Provider) *Client {
	return &Client{conn: conn, provider: provider}
}

// WithProvider returns a client on the same connection using provider
func (c *Client) WithProvider(provider session.Provider) *Client {
	return &Client{conn: c.conn, provider: provider}
}

func (c *Client) callOptions() []grpc.CallOption {
	if c.provider == nil {
		return nil
	}
	return []grpc.CallOption{grpc.PerRPCCredentials(session.Credentials{Provider: c.provider})}
}

// SignInAnonymously asks the server for a new anonymous identity and returns its token
func (c *Client) SignInAnonymously(ctx context.Context) (string, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, SignInAnonymouslyMethod, &emptypb.Empty{}, out); err != nil {
		return "", fromStatus(err)
	}
	token := stringField(out, "token")
	if token == "" {
		return "", errors.New("sign-in response carries no token")
	}
	return token, nil
}

// Create implements domain.DocumentStore
func (c *Client) Create(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	wire, err := fieldsToValue(fields)
	if err != nil {
		return "", err
	}
	in, err := structpb.NewStruct(map[string]any{"collection": collection, "fields": wire})
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, CreateMethod, in, out, c.callOptions()...); err != nil {
		return "", fromStatus(err)
	}
	return stringField(out, "id"), nil
}

// Set implements domain.DocumentStore
func (c *Client) Set(ctx context.Context, path string, fields domain.Fields) error {
	return c.write(ctx, SetMethod, path, fields)
}

// Merge implements domain.DocumentStore
func (c *Client) Merge(ctx context.Context, path string, fields domain.Fields) error {
	return c.write(ctx, MergeMethod, path, fields)
}

func (c *Client) write(ctx context.Context, method, path string, fields domain.Fields) error {
	wire, err := fieldsToValue(fields)
	if err != nil {
		return err
	}
	in, err := structpb.NewStruct(map[string]any{"path": path, "fields": wire})
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	if err := c.conn.Invoke(ctx, method, in, new(emptypb.Empty), c.callOptions()...); err != nil {
		return fromStatus(err)
	}
	return nil
}

// Delete implements domain.DocumentStore
func (c *Client) Delete(ctx context.Context, path string) error {
	in, err := structpb.NewStruct(map[string]any{"path": path})
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	if err := c.conn.Invoke(ctx, DeleteMethod, in, new(emptypb.Empty), c.callOptions()...); err != nil {
		return fromStatus(err)
	}
	return nil
}

// WatchCollection implements domain.DocumentStore
func (c *Client) WatchCollection(ctx context.Context, collection string) (domain.Watch, error) {
	return c.watch(ctx, collection, false)
}

// WatchDocument implements domain.DocumentStore
func (c *Client) WatchDocument(ctx context.Context, path string) (domain.Watch, error) {
	return c.watch(ctx, path, true)
}

// watch opens the stream and waits for the first snapshot, so an
// unreachable server is reported here rather than on the channel.
func (c *Client) watch(ctx context.Context, path string, document bool) (domain.Watch, error) {
	in, err := structpb.NewStruct(map[string]any{"path": path, "document": document})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := c.conn.NewStream(streamCtx, &DocumentStore_ServiceDesc.Streams[0], WatchMethod, c.callOptions()...)
	if err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	if err := stream.SendMsg(in); err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, fromStatus(err)
	}

	first, err := recvSnapshot(stream)
	if err != nil {
		cancel()
		return nil, fromStatus(err)
	}

	w := docstore.NewWatch(cancel)
	w.Push(first)

	go func() {
		for {
			snap, err := recvSnapshot(stream)
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
					w.Close(nil)
				} else {
					logger.Error("Watch stream on %s failed: %v", path, err)
					w.Close(fromStatus(err))
				}
				cancel()
				return
			}
			w.Push(snap)
		}
	}()

	return w, nil
}

func recvSnapshot(stream grpc.ClientStream) (domain.Snapshot, error) {
	msg := new(structpb.Struct)
	if err := stream.RecvMsg(msg); err != nil {
		return domain.Snapshot{}, err
	}
	snap, err := structToSnapshot(msg)
	if err != nil {
		return domain.Snapshot{}, status.Errorf(codes.DataLoss, "malformed snapshot: %v", err)
	}
	return snap, nil
}

// fromStatus converts gRPC status errors back to domain errors
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", domain.ErrConnectionUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidOperation, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", domain.ErrPayloadTooLarge, st.Message())
	}
	return err
}
