package server

import (
	"bytes"
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/casperlabs/engine-grpc-server/pkg/engine"
	"github.com/casperlabs/engine-grpc-server/pkg/globalstate"
	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
	"github.com/casperlabs/engine-grpc-server/pkg/storage/trie"
)

// engineService serves the engine RPCs from an EngineState.
type engineService struct {
	es *engine.EngineState
}

var _ ExecutionEngineServer = (*engineService)(nil)

func (s *engineService) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	root, err := parseHash("state_hash", req.StateHash)
	if err != nil {
		return nil, err
	}
	value, err := s.es.Query(ctx, root, req.Key, req.Path)
	if err != nil {
		return nil, toStatus(err)
	}
	return &QueryResponse{Value: value}, nil
}

func (s *engineService) Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error) {
	prestate, err := parseHash("prestate_hash", req.PrestateHash)
	if err != nil {
		return nil, err
	}
	post, err := s.es.Commit(ctx, prestate, req.Transforms)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CommitResponse{PoststateHash: post.Bytes()}, nil
}

func (s *engineService) StateRoot(ctx context.Context, _ *StateRootRequest) (*StateRootResponse, error) {
	return &StateRootResponse{StateHash: s.es.StateRoot().Bytes()}, nil
}

func (s *engineService) Metrics(ctx context.Context, _ *MetricsRequest) (*MetricsResponse, error) {
	s.es.GlobalState().ReportMetrics()

	var buf bytes.Buffer
	if err := metrics.WriteText(&buf); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &MetricsResponse{Text: buf.String()}, nil
}

func parseHash(field string, b []byte) (trie.Digest, error) {
	d, err := trie.DigestFromBytes(b)
	if err != nil {
		return trie.Digest{}, status.Errorf(codes.InvalidArgument, "%s: %v", field, err)
	}
	return d, nil
}

// toStatus maps engine errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, globalstate.ErrRootNotFound), errors.Is(err, engine.ErrValueNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrNotAccount):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, globalstate.ErrInvalidKey), errors.Is(err, globalstate.ErrInvalidValue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, globalstate.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
