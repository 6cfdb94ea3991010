package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/casperlabs/engine-grpc-server/pkg/engine"
	"github.com/casperlabs/engine-grpc-server/pkg/globalstate"
	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
	promrec "github.com/casperlabs/engine-grpc-server/pkg/metrics/prometheus"
	"github.com/casperlabs/engine-grpc-server/pkg/storage"
)

// shortTempDir returns a directory short enough for a sun_path (108 bytes).
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "srv")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func newEngine(t *testing.T) *engine.EngineState {
	t.Helper()
	es, err := engine.Bootstrap(context.Background(), t.TempDir(), engine.WithStorageOptions(storage.WithInMemory()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = es.Close() })
	return es
}

func startServer(t *testing.T, opts ...Option) (*Server, *Client, *grpc.ClientConn) {
	t.Helper()

	path := filepath.Join(shortTempDir(t), "engine.sock")
	srv, err := New(path, newEngine(t), opts...).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	conn, err := grpc.NewClient("unix://"+path, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, NewClient(conn), conn
}

func TestBuild_BindsSocket(t *testing.T) {
	srv, _, _ := startServer(t)

	assert.True(t, srv.Socket().Exists())
	assert.NotEmpty(t, srv.InstanceID())
	assert.Equal(t, "unix", srv.Addr().Network())
}

func TestBuild_SocketInUse(t *testing.T) {
	path := filepath.Join(shortTempDir(t), "engine.sock")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	_, err := New(path, newEngine(t)).Build()
	require.Error(t, err)
}

func TestBuild_RequiresEngine(t *testing.T) {
	_, err := New(filepath.Join(shortTempDir(t), "engine.sock"), nil).Build()
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	_, _, conn := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestQueryCommitRoundTrip(t *testing.T) {
	_, client, _ := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	root, err := client.StateRoot(ctx, &StateRootRequest{})
	require.NoError(t, err)
	require.Len(t, root.StateHash, 32)

	seed, err := client.Query(ctx, &QueryRequest{StateHash: root.StateHash, Key: globalstate.AccountKey(globalstate.SeedAddress)})
	require.NoError(t, err)
	assert.Equal(t, globalstate.ValueAccount, seed.Value.Kind)

	key := globalstate.URefKey([32]byte{3})
	commit, err := client.Commit(ctx, &CommitRequest{
		PrestateHash: root.StateHash,
		Transforms:   []globalstate.Transform{{Key: key, Value: globalstate.StringValue("hello")}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, root.StateHash, commit.PoststateHash)

	got, err := client.Query(ctx, &QueryRequest{StateHash: commit.PoststateHash, Key: key})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Value.String)

	latest, err := client.StateRoot(ctx, &StateRootRequest{})
	require.NoError(t, err)
	assert.Equal(t, commit.PoststateHash, latest.StateHash)
}

func TestErrorCodes(t *testing.T) {
	_, client, _ := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Query(ctx, &QueryRequest{StateHash: []byte{1, 2}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Query(ctx, &QueryRequest{StateHash: make([]byte, 32), Key: globalstate.AccountKey(globalstate.SeedAddress)})
	assert.Equal(t, codes.NotFound, status.Code(err))

	root, err := client.StateRoot(ctx, &StateRootRequest{})
	require.NoError(t, err)
	_, err = client.Query(ctx, &QueryRequest{
		StateHash: root.StateHash,
		Key:       globalstate.AccountKey(globalstate.SeedAddress),
		Path:      []string{"nope"},
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Commit(ctx, &CommitRequest{
		PrestateHash: root.StateHash,
		Transforms:   []globalstate.Transform{{Key: globalstate.Key{Tag: 0}, Value: globalstate.StringValue("x")}},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	alias := globalstate.AccountKey(globalstate.SeedAddress)
	alias.Tag = 257
	_, err = client.Query(ctx, &QueryRequest{StateHash: root.StateHash, Key: alias})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	latest, err := client.StateRoot(ctx, &StateRootRequest{})
	require.NoError(t, err)
	assert.Equal(t, root.StateHash, latest.StateHash)
}

func TestMetricsRPC(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	_, client, _ := startServer(t, WithMetrics(promrec.NewRPCMetrics()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.StateRoot(ctx, &StateRootRequest{})
	require.NoError(t, err)

	resp, err := client.Metrics(ctx, &MetricsRequest{})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "engine_rpc_requests_total")
	assert.Contains(t, resp.Text, "StateRoot")
}

func TestStop(t *testing.T) {
	srv, client, _ := startServer(t)

	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, srv.Stop(context.Background()), "second stop is a no-op")

	select {
	case err := <-srv.Done():
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not report completion")
	}

	assert.False(t, srv.Socket().Exists(), "listener close unlinks the socket")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := client.StateRoot(ctx, &StateRootRequest{})
	assert.Error(t, err)
}

func TestInterceptorRecoversPanic(t *testing.T) {
	intercept := unaryInterceptor(nil)

	resp, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: MethodQuery},
		func(context.Context, any) (any, error) {
			panic("handler exploded")
		})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, err.Error(), "handler exploded")
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{globalstate.ErrRootNotFound, codes.NotFound},
		{engine.ErrValueNotFound, codes.NotFound},
		{engine.ErrNotAccount, codes.FailedPrecondition},
		{globalstate.ErrInvalidValue, codes.InvalidArgument},
		{globalstate.ErrClosed, codes.Unavailable},
		{context.Canceled, codes.Canceled},
		{errors.New("disk"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}

func TestCodec(t *testing.T) {
	c := xdrCodec{}
	assert.Equal(t, CodecName, c.Name())

	data, err := c.Marshal(&CommitResponse{PoststateHash: []byte{1, 2, 3}})
	require.NoError(t, err)

	var out CommitResponse
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, []byte{1, 2, 3}, out.PoststateHash)

	assert.Error(t, c.Unmarshal([]byte{0xff}, &out))
}
