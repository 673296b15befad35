package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages are google.protobuf.Struct so the service needs no generated code.
const (
	ServiceName = "tradejournal.v1.DocumentStore"

	CreateMethod            = "/" + ServiceName + "/Create"
	SetMethod               = "/" + ServiceName + "/Set"
	MergeMethod             = "/" + ServiceName + "/Merge"
	DeleteMethod            = "/" + ServiceName + "/Delete"
	WatchMethod             = "/" + ServiceName + "/Watch"
	SignInAnonymouslyMethod = "/" + ServiceName + "/SignInAnonymously"
)

// DocumentStoreServer is the server API for the DocumentStore service
type DocumentStoreServer interface {
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Set(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Merge(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Delete(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Watch(*structpb.Struct, DocumentStore_WatchServer) error
	SignInAnonymously(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// DocumentStore_WatchServer is the server side of the Watch stream
type DocumentStore_WatchServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type documentStoreWatchServer struct {
	grpc.ServerStream
}

func (x *documentStoreWatchServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterDocumentStoreServer registers srv on s
func RegisterDocumentStoreServer(s grpc.ServiceRegistrar, srv DocumentStoreServer) {
	s.RegisterService(&DocumentStore_ServiceDesc, srv)
}

func _DocumentStore_Create_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentStoreServer).Create(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentStoreServer).Create(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentStore_Set_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentStoreServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SetMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentStoreServer).Set(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentStore_Merge_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentStoreServer).Merge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MergeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentStoreServer).Merge(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentStore_Delete_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentStoreServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeleteMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentStoreServer).Delete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentStore_SignInAnonymously_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentStoreServer).SignInAnonymously(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SignInAnonymouslyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentStoreServer).SignInAnonymously(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentStore_Watch_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DocumentStoreServer).Watch(m, &documentStoreWatchServer{stream})
}

// DocumentStore_ServiceDesc is the grpc.ServiceDesc for the DocumentStore service
var DocumentStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: _DocumentStore_Create_Handler},
		{MethodName: "Set", Handler: _DocumentStore_Set_Handler},
		{MethodName: "Merge", Handler: _DocumentStore_Merge_Handler},
		{MethodName: "Delete", Handler: _DocumentStore_Delete_Handler},
		{MethodName: "SignInAnonymously", Handler: _DocumentStore_SignInAnonymously_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _DocumentStore_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "tradejournal/v1/document_store.proto",
}
