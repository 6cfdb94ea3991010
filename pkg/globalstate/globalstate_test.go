package globalstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/engine-grpc-server/pkg/storage"
	"github.com/casperlabs/engine-grpc-server/pkg/storage/trie"
)

// openLayers opens an environment and trie store at dir and returns them
// with a function that drops the caller's references.
func openLayers(t *testing.T, dir string, opts ...storage.Option) (*storage.Environment, *trie.Store, func()) {
	t.Helper()

	env, err := storage.NewEnvironment(dir, opts...)
	require.NoError(t, err)

	store, err := trie.NewStore(env, trie.DefaultNamespace, 0)
	require.NoError(t, err)

	return env, store, func() {
		_ = store.Close()
		_ = env.Release()
	}
}

func newState(t *testing.T) *GlobalState {
	t.Helper()

	env, store, release := openLayers(t, t.TempDir(), storage.WithInMemory())
	defer release()

	gs, err := FromPairs(context.Background(), env, store, MockedAccount(SeedAddress))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	return gs
}

func TestSeedAddress(t *testing.T) {
	assert.Equal(t, "00000000000000000000", string(SeedAddress[:]))
	assert.Equal(t, KeyAccount, AccountKey(SeedAddress).Tag)
}

func TestKeyRoundTrip(t *testing.T) {
	k := AccountKey(SeedAddress)
	raw := k.Bytes()
	assert.Len(t, raw, KeySize)

	parsed, err := ParseKey(raw)
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = ParseKey(raw[:5])
	assert.ErrorIs(t, err, ErrInvalidKey)

	bad := append([]byte(nil), raw...)
	bad[0] = 9
	_, err = ParseKey(bad)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValueEncoding(t *testing.T) {
	values := []Value{
		AccountValue(Account{Nonce: 3, NamedKeys: []NamedKey{{Name: "n", Key: HashKey([32]byte{1})}}}),
		BytesValue([]byte{1, 2, 3}),
		Uint64Value(42),
		StringValue("hello"),
	}
	for _, v := range values {
		t.Run(v.Kind.String(), func(t *testing.T) {
			data, err := v.Encode()
			require.NoError(t, err)
			decoded, err := DecodeValue(data)
			require.NoError(t, err)
			assert.Equal(t, v.Kind, decoded.Kind)
		})
	}

	_, err := Value{}.Encode()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestFromPairs_SeedsOnlyTheMockedAccount(t *testing.T) {
	gs := newState(t)
	ctx := context.Background()

	entries, err := gs.Entries(ctx, gs.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, AccountKey(SeedAddress), entries[0].Key)
	assert.Equal(t, ValueAccount, entries[0].Value.Kind)
	assert.Zero(t, entries[0].Value.Account.Nonce)
	assert.Empty(t, entries[0].Value.Account.NamedKeys)
}

func TestFromPairs_EmptySeed(t *testing.T) {
	env, store, release := openLayers(t, t.TempDir(), storage.WithInMemory())
	defer release()

	_, err := FromPairs(context.Background(), env, store, nil)
	assert.ErrorIs(t, err, ErrEmptySeed)
	assert.Equal(t, int64(2), env.Refs(), "failed construction releases its references")
	assert.Equal(t, int64(1), store.Refs())
}

func TestFromPairs_NoReseedOnRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	other := Address{1}

	env, store, release := openLayers(t, dir)
	gs, err := FromPairs(ctx, env, store, MockedAccount(SeedAddress))
	require.NoError(t, err)
	release()

	post, err := gs.Commit(ctx, gs.Root(), []Transform{{Key: HashKey([32]byte{7}), Value: Uint64Value(7)}})
	require.NoError(t, err)
	require.NoError(t, gs.Close())
	assert.True(t, env.DB().IsClosed())

	env, store, release = openLayers(t, dir)
	defer release()

	reopened, err := FromPairs(ctx, env, store, MockedAccount(other))
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, post, reopened.Root())

	_, found, err := reopened.Read(ctx, reopened.Root(), AccountKey(other))
	require.NoError(t, err)
	assert.False(t, found, "a persisted store must not be re-seeded")

	v, found, err := reopened.Read(ctx, reopened.Root(), HashKey([32]byte{7}))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(7), v.Uint64)
}

func TestCommit(t *testing.T) {
	gs := newState(t)
	ctx := context.Background()
	genesis := gs.Root()

	key := URefKey([32]byte{0xab})
	post, err := gs.Commit(ctx, genesis, []Transform{{Key: key, Value: StringValue("v1")}})
	require.NoError(t, err)
	assert.NotEqual(t, genesis, post)
	assert.Equal(t, post, gs.Root())

	v, found, err := gs.Read(ctx, post, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", v.String)

	_, found, err = gs.Read(ctx, genesis, key)
	require.NoError(t, err)
	assert.False(t, found, "earlier roots stay readable and unchanged")
}

func TestCommit_UnknownPrestate(t *testing.T) {
	gs := newState(t)

	_, err := gs.Commit(context.Background(), trie.Digest{0xde, 0xad}, nil)
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, _, err = gs.Read(context.Background(), trie.Digest{0xde, 0xad}, AccountKey(SeedAddress))
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestCommit_RejectsUnknownKeyTag(t *testing.T) {
	gs := newState(t)
	ctx := context.Background()
	genesis := gs.Root()

	for _, tag := range []KeyTag{0, KeyURef + 1, 257} {
		_, err := gs.Commit(ctx, genesis, []Transform{{Key: Key{Tag: tag}, Value: StringValue("x")}})
		assert.ErrorIs(t, err, ErrInvalidKey, "tag %d", tag)
	}
	assert.Equal(t, genesis, gs.Root(), "a rejected commit leaves the root unchanged")

	entries, err := gs.Entries(ctx, genesis)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRead_RejectsUnknownKeyTag(t *testing.T) {
	gs := newState(t)

	alias := AccountKey(SeedAddress)
	alias.Tag = 257
	_, found, err := gs.Read(context.Background(), gs.Root(), alias)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.False(t, found)
}

func TestClose(t *testing.T) {
	env, store, release := openLayers(t, t.TempDir(), storage.WithInMemory())

	gs, err := FromPairs(context.Background(), env, store, MockedAccount(SeedAddress))
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.Refs())
	assert.Equal(t, int64(2), store.Refs())

	release()
	assert.False(t, env.DB().IsClosed(), "global state keeps the environment open")

	require.NoError(t, gs.Close())
	require.NoError(t, gs.Close())
	assert.True(t, env.DB().IsClosed())

	_, err = gs.Commit(context.Background(), gs.Root(), nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = gs.Entries(context.Background(), gs.Root())
	assert.ErrorIs(t, err, ErrClosed)
}
