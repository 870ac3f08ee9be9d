package command

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names on the wire.
const (
	MonitorServiceName = "orderalert.v1.MonitorService"
	AudioServiceName   = "orderalert.v1.AudioService"
	executeMethodName  = "Execute"

	// MonitorExecuteMethod is the full method name of MonitorService.Execute.
	MonitorExecuteMethod = "/" + MonitorServiceName + "/" + executeMethodName
	// AudioExecuteMethod is the full method name of AudioService.Execute.
	AudioExecuteMethod = "/" + AudioServiceName + "/" + executeMethodName
)

// Executor is the server API shared by both services.
type Executor interface {
	Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// MonitorServiceDesc describes MonitorService.
//
//nolint:gochecknoglobals // Service descriptors are static, like generated code.
var MonitorServiceDesc = newServiceDesc(MonitorServiceName, MonitorExecuteMethod)

// AudioServiceDesc describes AudioService.
//
//nolint:gochecknoglobals // See MonitorServiceDesc.
var AudioServiceDesc = newServiceDesc(AudioServiceName, AudioExecuteMethod)

// RegisterMonitorServer registers srv as MonitorService.
func RegisterMonitorServer(registrar grpc.ServiceRegistrar, srv Executor) {
	registrar.RegisterService(&MonitorServiceDesc, srv)
}

// RegisterAudioServer registers srv as AudioService.
func RegisterAudioServer(registrar grpc.ServiceRegistrar, srv Executor) {
	registrar.RegisterService(&AudioServiceDesc, srv)
}

// RegisterHealth registers the standard health service reporting services as serving.
// Call Shutdown on the result before stopping the server.
func RegisterHealth(registrar grpc.ServiceRegistrar, services ...string) *health.Server {
	hs := health.NewServer()
	for _, service := range services {
		hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	}

	healthpb.RegisterHealthServer(registrar, hs)

	return hs
}

// newServiceDesc builds a descriptor with a single unary Execute method.
func newServiceDesc(serviceName, fullMethod string) grpc.ServiceDesc {
	return grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*Executor)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: executeMethodName,
				Handler:    executeHandler(fullMethod),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "orderalert/v1/command.proto",
	}
}

// executeHandler decodes the request and runs it through the interceptor chain.
func executeHandler(fullMethod string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		executor, _ := srv.(Executor)
		if interceptor == nil {
			return executor.Execute(ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			in, _ := req.(*structpb.Struct)

			return executor.Execute(ctx, in)
		}

		return interceptor(ctx, in, info, handler)
	}
}
