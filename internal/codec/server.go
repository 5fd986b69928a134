package codec

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/smartkyc/internal/analysis"
	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// #region server
type analyzerServer struct {
	analyzer analysis.Analyzer
}

// RegisterAnalysisServer exposes a on s as the FrameAnalysis service.
func RegisterAnalysisServer(s grpc.ServiceRegistrar, a analysis.Analyzer) {
	s.RegisterService(&analysisServiceDesc, &analyzerServer{analyzer: a})
}

func (s *analyzerServer) Analyze(ctx context.Context, frame *wrapperspb.BytesValue) (*structpb.Struct, error) {
	m, err := s.analyzer.Analyze(ctx, frame.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return metricsToStruct(m), nil
}

// #endregion server

// #region helpers
func toStatus(err error) error {
	switch {
	case errors.Is(err, analysis.ErrEmptyFrame),
		errors.Is(err, analysis.ErrDecode),
		errors.Is(err, analysis.ErrFrameTooSmall):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

func metricsToStruct(m gate.Metrics) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"blur":     structpb.NewNumberValue(m.Blur),
		"glare":    structpb.NewNumberValue(m.Glare),
		"shadow":   structpb.NewNumberValue(m.Shadow),
		"coverage": structpb.NewNumberValue(m.Coverage),
	}}
}

// #endregion helpers
