package fat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFreeTableAllocateWorkedExample traces the same add_free_range/allocate
// sequence a 50-slot directory shrink would produce: a single 50-slot run is
// split into MaxBucket-sized chunks, four 10-slot allocations carve it up,
// a fifth finds nothing left, and the remainders get handed back out one
// slot at a time.
func TestFreeTableAllocateWorkedExample(t *testing.T) {
	ft := newFreeTable()
	require.NoError(t, ft.addFreeRange(0, 50))

	pos, ok, err := ft.allocate(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 0, pos)

	pos, ok, err = ft.allocate(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 320, pos)

	pos, ok, err = ft.allocate(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 672, pos)

	pos, ok, err = ft.allocate(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 992, pos)

	_, ok, err = ft.allocate(10)
	require.NoError(t, err)
	require.False(t, ok, "50 slots minus 4*10 leaves two 1-slot runs and one 8-slot run")

	pos, ok, err = ft.allocate(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 640, pos)

	pos, ok, err = ft.allocate(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1312, pos)

	want := []uint32{1344, 1376, 1408, 1440, 1472, 1504, 1536, 1568}
	for _, w := range want {
		pos, ok, err := ft.allocate(1)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, w, pos)
	}

	_, ok, err = ft.allocate(1)
	require.NoError(t, err)
	require.False(t, ok, "the 50-slot range is now fully allocated")
}

// TestFreeTableAllocateConservesSlotCount checks that every slot handed out
// by allocate is distinct and that the total allocated never exceeds what
// was freed, regardless of how the runs get split and recombined.
func TestFreeTableAllocateConservesSlotCount(t *testing.T) {
	ft := newFreeTable()
	require.NoError(t, ft.addFreeRange(0, 100))

	seen := map[uint32]bool{}
	allocated := 0
	for {
		pos, ok, err := ft.allocate(3)
		require.NoError(t, err)
		if !ok {
			break
		}
		for i := 0; i < 3; i++ {
			slot := pos + uint32(i)*32
			require.False(t, seen[slot], "slot %d allocated twice", slot)
			seen[slot] = true
		}
		allocated += 3
	}
	require.LessOrEqual(t, allocated, 100)
}

// TestFreeTableAllocateOrderIsLowestFirst checks the best-fit/lowest-position
// tie-break: among equally-sized runs, allocate always returns the one at
// the lowest position first.
func TestFreeTableAllocateOrderIsLowestFirst(t *testing.T) {
	ft := newFreeTable()
	require.NoError(t, ft.addFreeRange(3200, 2))
	require.NoError(t, ft.addFreeRange(64, 2))
	require.NoError(t, ft.addFreeRange(1600, 2))

	pos, ok, err := ft.allocate(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 64, pos)

	pos, ok, err = ft.allocate(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1600, pos)

	pos, ok, err = ft.allocate(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3200, pos)
}

// TestFreeTableAllocateSplitsLargerBucketWhenExactMissing checks best-fit
// behavior: a request that doesn't match any exact bucket is served from the
// smallest bucket that's big enough, and the remainder is reinserted.
func TestFreeTableAllocateSplitsLargerBucketWhenExactMissing(t *testing.T) {
	ft := newFreeTable()
	require.NoError(t, ft.addFreeRange(0, 5))

	pos, ok, err := ft.allocate(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 0, pos)

	pos, ok, err = ft.allocate(3)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 64, pos)

	_, ok, err = ft.allocate(1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFreeTableAllocateRejectsOutOfRangeCount(t *testing.T) {
	ft := newFreeTable()
	require.NoError(t, ft.addFreeRange(0, 10))

	_, _, err := ft.allocate(0)
	require.Error(t, err)

	_, _, err = ft.allocate(MaxBucket + 1)
	require.Error(t, err)
}

func TestFreeTableAddFreeRangeRejectsNonPositiveCount(t *testing.T) {
	ft := newFreeTable()
	require.Error(t, ft.addFreeRange(0, 0))
	require.Error(t, ft.addFreeRange(0, -1))
}
