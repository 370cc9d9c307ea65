package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/model"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/queue"
	"github.com/kurirhub/kurir/core/registry"
	core "github.com/kurirhub/kurir/core/snapshot"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "kurir.json")
	fs, err := NewFileStore(path, nil)
	require.NoError(t, err)

	clk := clock.NewFake(time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC))
	reg := registry.New(clk)
	store := orders.New(clk)
	q := queue.New(clk)

	_, err = reg.Register("d1", "Budi", "+62 811-1111")
	require.NoError(t, err)
	o, err := store.Create(model.TypeDelivery, "cust1", map[string]string{"pickup": "Warung A"})
	require.NoError(t, err)
	_, err = store.Transition(o.Number, model.OrderAwaitingDriver, "")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(o.Number))

	require.NoError(t, fs.Save(core.Capture(reg, store, q, clk.Now())))

	loaded, ok, err := fs.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, clk.Now(), loaded.SavedAt)

	reg2 := registry.New(clk)
	store2 := orders.New(clk)
	q2 := queue.New(clk)
	core.Apply(loaded, reg2, store2, q2)

	d, err := reg2.GetByContact("+62 811-1111")
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)

	got, err := store2.Get(o.Number)
	require.NoError(t, err)
	assert.Equal(t, model.OrderAwaitingDriver, got.Status)
	assert.Equal(t, "Warung A", got.Payload["pickup"])

	head, ok := q2.PeekHead()
	require.True(t, ok)
	assert.Equal(t, o.Number, head.OrderNumber)

	// The order number sequence continues after restore.
	next, err := store2.Create(model.TypeRide, "cust2", nil)
	require.NoError(t, err)
	assert.Equal(t, "KRK-20260829-002", next.Number)
}

func TestFileStore_LoadMissing(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "none.json"), nil)
	require.NoError(t, err)

	_, ok, err := fs.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	fs, err := NewFileStore(path, nil)
	require.NoError(t, err)
	_, _, err = fs.Load()
	require.Error(t, err)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kurir.json")
	fs, err := NewFileStore(path, nil)
	require.NoError(t, err)

	require.NoError(t, fs.Save(core.Snapshot{Seq: 1}))
	require.NoError(t, fs.Save(core.Snapshot{Seq: 2}))

	loaded, ok, err := fs.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, loaded.Seq)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	_, err := NewFileStore("", nil)
	require.Error(t, err)
}
