package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/translate"
)

// jsonCodec lets the Advisor service speak gRPC without generated stubs.
type jsonCodec struct{}

const codecName = "json"

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const (
	ServiceName        = "agrimonitor.advisor.v1.Advisor"
	evaluateFullMethod = "/" + ServiceName + "/Evaluate"
	classifyFullMethod = "/" + ServiceName + "/Classify"
)

type EvaluateRequest struct {
	Reading entities.Reading `json:"reading"`
	Lang    string           `json:"lang,omitempty"`
}

type EvaluateResponse struct {
	Evaluation Evaluation `json:"evaluation"`
}

type ClassifyRequest struct {
	Readings []entities.Reading `json:"readings"`
}

type ClassifyResponse struct {
	Farms []advisor.FarmAlerts `json:"farms"`
}

// AdvisorServer is the server API of the Advisor gRPC service.
type AdvisorServer interface {
	Evaluate(context.Context, *EvaluateRequest) (*EvaluateResponse, error)
	Classify(context.Context, *ClassifyRequest) (*ClassifyResponse, error)
}

var advisorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdvisorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "Classify", Handler: classifyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "advisor.json",
}

// RegisterAdvisorServer attaches srv to s.
func RegisterAdvisorServer(s grpc.ServiceRegistrar, srv AdvisorServer) {
	s.RegisterService(&advisorServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EvaluateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisorServer).Evaluate(ctx, req.(*EvaluateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func classifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ClassifyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisorServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: classifyFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisorServer).Classify(ctx, req.(*ClassifyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// GrpcHandler implements AdvisorServer on top of the decision engine.
type GrpcHandler struct {
	translator translate.Translator
	metrics    *Metrics
}

func NewGrpcHandler(tr translate.Translator, m *Metrics) *GrpcHandler {
	if tr == nil {
		tr = translate.Passthrough{}
	}
	return &GrpcHandler{translator: tr, metrics: m}
}

func (h *GrpcHandler) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	ev, err := Evaluate(req.Reading)
	if err != nil {
		h.metrics.invalid()
		return nil, toStatus(err)
	}
	h.metrics.observe(ev)
	return &EvaluateResponse{Evaluation: Localize(ctx, h.translator, req.Lang, ev)}, nil
}

func (h *GrpcHandler) Classify(_ context.Context, req *ClassifyRequest) (*ClassifyResponse, error) {
	return &ClassifyResponse{Farms: advisor.ClassifyFarms(req.Readings)}, nil
}

func toStatus(err error) error {
	if errors.Is(err, advisor.ErrInvalidInput) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// AdvisorClient is the client API of the Advisor gRPC service.
type AdvisorClient interface {
	Evaluate(ctx context.Context, in *EvaluateRequest, opts ...grpc.CallOption) (*EvaluateResponse, error)
	Classify(ctx context.Context, in *ClassifyRequest, opts ...grpc.CallOption) (*ClassifyResponse, error)
}

type advisorClient struct {
	cc grpc.ClientConnInterface
}

func NewAdvisorClient(cc grpc.ClientConnInterface) AdvisorClient {
	return &advisorClient{cc: cc}
}

func (c *advisorClient) Evaluate(ctx context.Context, in *EvaluateRequest, opts ...grpc.CallOption) (*EvaluateResponse, error) {
	out := new(EvaluateResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, evaluateFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *advisorClient) Classify(ctx context.Context, in *ClassifyRequest, opts ...grpc.CallOption) (*ClassifyResponse, error) {
	out := new(ClassifyResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, classifyFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Dial opens a lazy client connection to an advisory service.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial advisory %s: %w", addr, err)
	}
	return conn, nil
}
