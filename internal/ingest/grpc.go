package ingest

import (
	"context"

	"google.golang.org/grpc/status"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	evalerrors "github.com/aiqaio/evalserver/internal/errors"
)

// TraceServiceServer implements opentelemetry.proto.collector.trace.v1's
// TraceService/Export over gRPC (spec.md section 6), the third of the three
// transports the ingestion pipeline serves.
type TraceServiceServer struct {
	coltracepb.UnimplementedTraceServiceServer

	Pipeline *Pipeline
}

// NewTraceServiceServer builds a gRPC TraceService backed by pipeline.
func NewTraceServiceServer(pipeline *Pipeline) *TraceServiceServer {
	return &TraceServiceServer{Pipeline: pipeline}
}

// Export ingests one OTLP batch and always returns a (possibly empty)
// ExportTraceServiceResponse on success, or a mapped gRPC status on failure
// (spec.md section 7).
func (s *TraceServiceServer) Export(ctx context.Context, req *coltracepb.ExportTraceServiceRequest) (*coltracepb.ExportTraceServiceResponse, error) {
	if _, err := s.Pipeline.Ingest(ctx, "grpc", req); err != nil {
		if e, ok := evalerrors.As(err); ok {
			return nil, status.Error(evalerrors.GRPCCode(e.Kind), e.Message)
		}
		return nil, status.Error(evalerrors.GRPCCode(evalerrors.KindInternal), "internal error")
	}
	return &coltracepb.ExportTraceServiceResponse{}, nil
}
