package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// AnonymousIssuer creates identities for SignInAnonymously
type AnonymousIssuer interface {
	IssueAnonymous() (token, userID string, err error)
}

// Server implements the DocumentStore gRPC server
type Server struct {
	Store  domain.DocumentStore
	Issuer AnonymousIssuer
}

// NewServer creates a new gRPC server instance
func NewServer(store domain.DocumentStore, issuer AnonymousIssuer) *Server {
	return &Server{
		Store:  store,
		Issuer: issuer,
	}
}

// Create handles the Create RPC
func (s *Server) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection := stringField(req, "collection")
	if err := authorize(ctx, collection); err != nil {
		return nil, err
	}

	fields, err := valueToFields(req.AsMap()["fields"])
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid fields: %v", err)
	}

	id, err := s.Store.Create(ctx, collection, fields)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]any{"id": id})
}

// Set handles the Set RPC
func (s *Server) Set(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	path := stringField(req, "path")
	if err := authorize(ctx, path); err != nil {
		return nil, err
	}

	fields, err := valueToFields(req.AsMap()["fields"])
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid fields: %v", err)
	}

	if err := s.Store.Set(ctx, path, fields); err != nil {
		return nil, mapError(err)
	}

	return &emptypb.Empty{}, nil
}

// Merge handles the Merge RPC
func (s *Server) Merge(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	path := stringField(req, "path")
	if err := authorize(ctx, path); err != nil {
		return nil, err
	}

	fields, err := valueToFields(req.AsMap()["fields"])
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid fields: %v", err)
	}

	if err := s.Store.Merge(ctx, path, fields); err != nil {
		return nil, mapError(err)
	}

	return &emptypb.Empty{}, nil
}

// Delete handles the Delete RPC
func (s *Server) Delete(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	path := stringField(req, "path")
	if err := authorize(ctx, path); err != nil {
		return nil, err
	}

	if err := s.Store.Delete(ctx, path); err != nil {
		return nil, mapError(err)
	}

	return &emptypb.Empty{}, nil
}

// Watch handles the Watch RPC: one full snapshot per change until the
// client goes away or the backend ends the watch.
func (s *Server) Watch(req *structpb.Struct, stream DocumentStore_WatchServer) error {
	ctx := stream.Context()
	path := stringField(req, "path")
	if err := authorize(ctx, path); err != nil {
		return err
	}

	var (
		w   domain.Watch
		err error
	)
	if boolField(req, "document") {
		w, err = s.Store.WatchDocument(ctx, path)
	} else {
		w, err = s.Store.WatchCollection(ctx, path)
	}
	if err != nil {
		return mapError(err)
	}
	defer w.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-w.Snapshots():
			if !ok {
				if err := w.Err(); err != nil {
					logger.Error("Watch on %s ended: %v", path, err)
					return mapError(err)
				}
				return nil
			}
			msg, err := snapshotToStruct(snap)
			if err != nil {
				return status.Errorf(codes.Internal, "failed to encode snapshot: %v", err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// SignInAnonymously handles the SignInAnonymously RPC
func (s *Server) SignInAnonymously(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	token, userID, err := s.Issuer.IssueAnonymous()
	if err != nil {
		return nil, mapError(err)
	}

	logger.Info("Issued anonymous identity %s", userID)
	return structpb.NewStruct(map[string]any{
		"token":  token,
		"userId": userID,
	})
}

// authorize allows only paths under users/{uid}/ of the authenticated user
func authorize(ctx context.Context, path string) error {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "no authenticated user")
	}
	if domain.PathOwner(path) != userID {
		return status.Errorf(codes.PermissionDenied, "path %q does not belong to the caller", path)
	}
	return nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrInvalidOperation), errors.Is(err, domain.ErrInvalidTrade):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return status.Errorf(codes.ResourceExhausted, "%s", errorMsg)
	case errors.Is(err, domain.ErrConnectionUnavailable):
		return status.Errorf(codes.Unavailable, "%s", errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
