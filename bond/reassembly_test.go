package bond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kydos/bnd-socket/bond"
	"github.com/kydos/bnd-socket/errors"
)

func TestReassembly_push(t *testing.T) {
	t.Run("順不同の到達 [2,0,3,1] を [0,1,2,3] で引き渡す", func(t *testing.T) {
		r := bond.NewReassembly(16)
		var got [][]byte

		push := func(seq uint64, p string) {
			delivered, stale, err := r.Push(seq, []byte(p))
			require.NoError(t, err)
			require.False(t, stale)
			got = append(got, delivered...)
		}

		push(2, "c")
		push(0, "a")
		push(3, "d")
		push(1, "b")

		require.Len(t, got, 4)
		assert.Equal(t, "a", string(got[0]))
		assert.Equal(t, "b", string(got[1]))
		assert.Equal(t, "c", string(got[2]))
		assert.Equal(t, "d", string(got[3]))
		assert.Zero(t, r.PendingCount())
	})

	t.Run("連続した保留分をまとめて引き渡す", func(t *testing.T) {
		r := bond.NewReassembly(16)
		for seq := uint64(1); seq <= 5; seq++ {
			delivered, _, err := r.Push(seq, []byte{byte(seq)})
			require.NoError(t, err)
			require.Empty(t, delivered)
		}
		delivered, stale, err := r.Push(0, []byte{0})
		require.NoError(t, err)
		require.False(t, stale)
		assert.Len(t, delivered, 6)
	})

	t.Run("引き渡し済みの番号は読み捨てる", func(t *testing.T) {
		r := bond.NewReassembly(16)
		_, _, err := r.Push(0, []byte("a"))
		require.NoError(t, err)

		delivered, stale, err := r.Push(0, []byte("again"))
		require.NoError(t, err)
		assert.True(t, stale)
		assert.Empty(t, delivered)
	})

	t.Run("保留中の番号への重複は読み捨てる", func(t *testing.T) {
		r := bond.NewReassembly(16)
		_, _, err := r.Push(5, []byte("x"))
		require.NoError(t, err)

		_, stale, err := r.Push(5, []byte("y"))
		require.NoError(t, err)
		assert.True(t, stale)

		// 先に登録したペイロードが残っている
		delivered, _, err := r.Push(4, nil)
		require.NoError(t, err)
		require.Empty(t, delivered)
		assert.Equal(t, 2, r.PendingCount())
	})

	t.Run("保留数の上限超過はErrReassemblyOverflow", func(t *testing.T) {
		r := bond.NewReassembly(3)
		for seq := uint64(1); seq <= 3; seq++ {
			_, _, err := r.Push(seq, nil)
			require.NoError(t, err)
		}
		_, _, err := r.Push(4, nil)
		assert.ErrorIs(t, err, errors.ErrReassemblyOverflow)
	})
}
