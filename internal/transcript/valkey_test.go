package transcript

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

// fakeValkey answers the string and list commands ValkeyStore sends from
// process memory.
type fakeValkey struct {
	strings map[string]string
	lists   map[string][]string
	seen    []string
}

func newFakeValkey(t *testing.T) (*fakeValkey, *mock.Client) {
	t.Helper()

	f := &fakeValkey{strings: make(map[string]string), lists: make(map[string][]string)}
	client := mock.NewClient(gomock.NewController(t))
	client.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd valkey.Completed) valkey.ValkeyResult {
			return f.exec(cmd.Commands())
		}).AnyTimes()
	client.EXPECT().DoMulti(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, multi ...valkey.Completed) []valkey.ValkeyResult {
			out := make([]valkey.ValkeyResult, len(multi))
			for i, cmd := range multi {
				out[i] = f.exec(cmd.Commands())
			}
			return out
		}).AnyTimes()
	client.EXPECT().Close().AnyTimes()
	return f, client
}

func (f *fakeValkey) exec(args []string) valkey.ValkeyResult {
	name := strings.ToUpper(args[0])
	f.seen = append(f.seen, name)

	switch name {
	case "PING":
		return mock.Result(mock.ValkeyString("PONG"))
	case "SET":
		f.strings[args[1]] = args[2]
		return mock.Result(mock.ValkeyString("OK"))
	case "GET":
		v, ok := f.strings[args[1]]
		if !ok {
			return mock.Result(mock.ValkeyNil())
		}
		return mock.Result(mock.ValkeyString(v))
	case "MGET":
		values := make([]valkey.ValkeyMessage, 0, len(args)-1)
		for _, k := range args[1:] {
			if v, ok := f.strings[k]; ok {
				values = append(values, mock.ValkeyString(v))
			} else {
				values = append(values, mock.ValkeyNil())
			}
		}
		return mock.Result(mock.ValkeyArray(values...))
	case "LPUSH":
		f.lists[args[1]] = append([]string{args[2]}, f.lists[args[1]]...)
		return mock.Result(mock.ValkeyInt64(int64(len(f.lists[args[1]]))))
	case "LREM":
		before := len(f.lists[args[1]])
		f.lists[args[1]] = slices.DeleteFunc(f.lists[args[1]], func(s string) bool { return s == args[3] })
		return mock.Result(mock.ValkeyInt64(int64(before - len(f.lists[args[1]]))))
	case "LTRIM", "LRANGE":
		list := f.lists[args[1]]
		start, _ := strconv.Atoi(args[2])
		stop, _ := strconv.Atoi(args[3])
		stop = min(stop+1, len(list))
		start = min(start, stop)
		if name == "LTRIM" {
			f.lists[args[1]] = list[start:stop]
			return mock.Result(mock.ValkeyString("OK"))
		}
		values := make([]valkey.ValkeyMessage, 0, stop-start)
		for _, v := range list[start:stop] {
			values = append(values, mock.ValkeyString(v))
		}
		return mock.Result(mock.ValkeyArray(values...))
	}
	return mock.ErrorResult(valkey.ErrClosing)
}

func TestValkeyStore(t *testing.T) {
	_, client := newFakeValkey(t)
	s := NewValkeyStoreWithClient(client, "test:", 10, time.Minute)
	defer s.Close()

	storeContract(t, s)
}

func TestValkeyStore_Keys(t *testing.T) {
	f, client := newFakeValkey(t)
	s := NewValkeyStoreWithClient(client, "", 2, 0)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(context.Background(), record(id)))
	}

	assert.Contains(t, f.strings, DefaultKeyPrefix+"transcript:a")
	assert.Equal(t, []string{"c", "b"}, f.lists[DefaultKeyPrefix+"transcripts"])
	assert.Equal(t, []string{"SET", "LREM", "LPUSH", "LTRIM"}, f.seen[:4])
}

func TestValkeyStore_SkipsExpired(t *testing.T) {
	f, client := newFakeValkey(t)
	s := NewValkeyStoreWithClient(client, "test:", 10, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, record("old")))
	require.NoError(t, s.Save(ctx, record("new")))
	delete(f.strings, "test:transcript:old")

	recent, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].RunID)

	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValkeyStore_Errors(t *testing.T) {
	_, client := newFakeValkey(t)
	s := NewValkeyStoreWithClient(client, "test:", 10, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, client.Do(ctx, client.B().Set().Key("test:transcript:bad").Value("{").Build()).Error())
	_, err = s.Get(ctx, "bad")
	assert.ErrorContains(t, err, "failed to decode transcript bad")
}
