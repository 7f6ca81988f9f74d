package devserver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldersOf(t *testing.T) {
	keys := []string{"a.jpg", "x/y/z.png", "x/w.png", "xy/q.png", "x/y/_"}

	require.Equal(t, []string{"x", "x/y", "xy"}, foldersOf(keys, ""))
	require.Equal(t, []string{"x", "x/y"}, foldersOf(keys, "x"))
	require.Empty(t, foldersOf(keys, "nope"))
}

func TestMemoryStoreObjects(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	store := NewMemoryStore("http://localhost/media/")
	for _, key := range []string{"root.png", "a/one.png", "a/two.png", "a/b/three.png"} {
		r.NoError(store.Put(ctx, key, "image/png", strings.NewReader(key), -1))
	}

	root, err := store.Objects(ctx, "")
	r.NoError(err)
	r.Len(root, 1)
	r.Equal("root.png", root[0].Key)

	objs, err := store.Objects(ctx, "/a/")
	r.NoError(err)
	r.Len(objs, 2)
	r.Equal("a/one.png", objs[0].Key)
	r.Equal(int64(len("a/one.png")), objs[0].Size)

	r.Equal("http://localhost/media/a/one.png", store.URL("a/one.png"))
}
