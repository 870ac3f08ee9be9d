package command

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

// HandlerFunc executes a decoded request. Command errors belong in the response.
type HandlerFunc func(ctx context.Context, req domain.Request) domain.Response

// Server adapts a HandlerFunc to the Execute RPC.
type Server struct {
	// handle runs the business logic.
	handle HandlerFunc
}

// NewServer wires handle into a gRPC handler usable by both services.
func NewServer(handle HandlerFunc) *Server {
	return &Server{
		handle: handle,
	}
}

// Execute decodes the request, runs the handler and encodes its acknowledgment.
// Only malformed messages fail at the transport level.
func (s *Server) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	request, err := DecodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	response := s.handle(ctx, request)

	result, err := EncodeResponse(response)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode response", "action", string(request.Action), "error", err)

		return nil, status.Error(codes.Internal, "unable to encode response")
	}

	return result, nil
}
