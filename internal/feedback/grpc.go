package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName       = "voicepad.feedback.v1.Feedback"
	getFeedbackMethod = "/" + serviceName + "/GetFeedback"

	// RequestIDKey is the metadata key carrying the per-call request id.
	RequestIDKey = "x-request-id"

	defaultDialTimeout = 3 * time.Second
	defaultCallTimeout = 30 * time.Second
)

// feedbackServer is the handler contract registered with grpc.
type feedbackServer interface {
	GetFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*feedbackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetFeedback", Handler: getFeedbackHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voicepad/feedback/v1/feedback.proto",
}

func getFeedbackHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(feedbackServer).GetFeedback(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getFeedbackMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(feedbackServer).GetFeedback(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Server exposes a Service over grpc.
type Server struct {
	svc    Service
	logger *slog.Logger
}

// RegisterServer registers svc on registrar and returns the wrapping Server.
func RegisterServer(registrar grpc.ServiceRegistrar, svc Service, logger *slog.Logger) *Server {
	srv := &Server{svc: svc, logger: logger}
	registrar.RegisterService(&serviceDesc, srv)
	return srv
}

// GetFeedback validates the request struct and delegates to the Service.
func (s *Server) GetFeedback(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := requestFromStruct(in)
	requestID := requestIDFrom(ctx)

	if req.Action != ActionGetFeedback {
		return nil, status.Errorf(codes.InvalidArgument, "unsupported action %q", req.Action)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, status.Error(codes.InvalidArgument, "text is empty")
	}

	started := time.Now()
	resp, err := s.svc.Feedback(ctx, req)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("feedback request failed", "request_id", requestID, "error", err.Error())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, status.Error(codes.DeadlineExceeded, err.Error())
		}
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	if s.logger != nil {
		s.logger.Info("feedback request served",
			"request_id", requestID,
			"chars", len(req.Text),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}

	return structpb.NewStruct(map[string]any{"feedback": resp.Feedback})
}

// ListenAndServe serves svc on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, svc Service, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return Serve(ctx, lis, svc, logger)
}

// Serve serves svc on lis until ctx is cancelled.
func Serve(ctx context.Context, lis net.Listener, svc Service, logger *slog.Logger) error {
	server := grpc.NewServer()
	RegisterServer(server, svc, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(lis) }()
	if logger != nil {
		logger.Info("feedback server listening", "addr", lis.Addr().String())
	}

	select {
	case <-ctx.Done():
		server.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// GRPCClient calls a remote feedback Server.
type GRPCClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// GRPCConfig controls client dialing.
type GRPCConfig struct {
	Endpoint    string
	DialTimeout time.Duration
	CallTimeout time.Duration
}

// DialGRPC connects to cfg.Endpoint and waits for the connection to become ready.
func DialGRPC(ctx context.Context, cfg GRPCConfig, opts ...grpc.DialOption) (*GRPCClient, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("feedback endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial feedback grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for feedback grpc readiness: %w", err)
	}

	return &GRPCClient{conn: conn, timeout: cfg.CallTimeout}, nil
}

// Feedback performs one unary GetFeedback call.
func (c *GRPCClient) Feedback(ctx context.Context, req Request) (Response, error) {
	in, err := structpb.NewStruct(map[string]any{
		"action":  req.Action,
		"text":    req.Text,
		"context": req.Context,
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode feedback request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDKey, uuid.NewString())

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, getFeedbackMethod, in, out); err != nil {
		return Response{}, fmt.Errorf("feedback rpc: %s", status.Convert(err).Message())
	}

	value, ok := out.GetFields()["feedback"]
	if !ok {
		return Response{}, errors.New("feedback response has no feedback field")
	}
	return Response{Feedback: value.GetStringValue()}, nil
}

// Close releases the connection.
func (c *GRPCClient) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func requestFromStruct(in *structpb.Struct) Request {
	fields := in.GetFields()
	return Request{
		Action:  fields["action"].GetStringValue(),
		Text:    fields["text"].GetStringValue(),
		Context: fields["context"].GetStringValue(),
	}
}

func requestIDFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if ids := md.Get(RequestIDKey); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// waitForReady blocks until the connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
