package ring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRing(t *testing.T, n int) (*Segment, *Ring[uint64]) {
	dir := t.TempDir()
	seg, err := CreateOrJoin(dir, "test", n, 8, false)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, seg.Close()) })

	r, err := Open[uint64](seg, n)
	require.NoError(t, err)
	return seg, r
}

func TestRing_PopOnEmptyReturnsFalse(t *testing.T) {
	_, r := newTestRing(t, 8)
	c := NewConsumer(r)

	_, ok := c.Pop()

	require.False(t, ok)
}

func TestRing_PushThenPopPreservesFIFOOrder(t *testing.T) {
	_, r := newTestRing(t, 8)
	p := NewProducer(r)
	c := NewConsumer(r)

	for i := uint64(0); i < 5; i++ {
		p.Push(i)
	}
	p.Sync()

	for i := uint64(0); i < 5; i++ {
		v, ok := c.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := c.Pop()
	require.False(t, ok)
}

func TestRing_TryPushFailsAtCapacityAndSucceedsAfterDrain(t *testing.T) {
	_, r := newTestRing(t, 4)
	p := NewProducer(r)
	c := NewConsumer(r)

	for i := uint64(0); i < 4; i++ {
		require.True(t, p.TryPush(i))
	}
	require.False(t, p.TryPush(99))

	p.Sync()
	v, ok := c.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(0), v)
	c.Sync()

	require.True(t, p.TryPush(4))
}

func TestRing_ConservationOfPushedAndPopped(t *testing.T) {
	_, r := newTestRing(t, 16)
	p := NewProducer(r)
	c := NewConsumer(r)

	const total = 1000
	pushed, popped := 0, 0
	next := uint64(0)
	for pushed < total {
		for pushed < total && p.TryPush(next) {
			next++
			pushed++
		}
		p.Sync()
		for {
			_, ok := c.Pop()
			if !ok {
				break
			}
			popped++
		}
		c.Sync()
	}
	for {
		_, ok := c.Pop()
		if !ok {
			break
		}
		popped++
	}

	require.Equal(t, pushed, popped)
	require.Equal(t, total, pushed)
}

func TestRing_BeatAndHeartbeatVisibility(t *testing.T) {
	_, r := newTestRing(t, 4)
	p := NewProducer(r)
	c := NewConsumer(r)

	require.False(t, p.ConsumerHeartbeat())
	require.False(t, c.ProducerHeartbeat())

	p.Beat()
	c.Beat()

	require.True(t, p.ConsumerHeartbeat())
	require.True(t, c.ProducerHeartbeat())
}

func TestRing_SeedRoundTripsThroughHeaderPadding(t *testing.T) {
	_, r := newTestRing(t, 4)
	p := NewProducer(r)
	c := NewConsumer(r)

	p.SetSeed(0x123456789abcdef0)

	require.Equal(t, uint64(0x123456789abcdef0), c.Seed())
}

func TestNewRing_RejectsNonPowerOfTwoCapacity(t *testing.T) {
	h := &Header{}
	_, err := newRing(h, make([]uint64, 3))

	require.Error(t, err)
}

func TestCreateOrJoin_RejectsSizeMismatchBetweenProducerAndConsumer(t *testing.T) {
	dir := t.TempDir()

	seg, err := CreateOrJoin(dir, "mismatch", 8, 8, false)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	_, err = CreateOrJoin(dir, "mismatch", 16, 8, false)

	require.Error(t, err)
}

func TestCreateOrJoin_SecondOpenJoinsExistingSegment(t *testing.T) {
	dir := t.TempDir()

	segA, err := CreateOrJoin(dir, "shared", 8, 8, false)
	require.NoError(t, err)
	t.Cleanup(func() { segA.Close() })

	ringA, err := Open[uint64](segA, 8)
	require.NoError(t, err)
	producerA := NewProducer(ringA)
	producerA.Push(42)
	producerA.Sync()

	segB, err := CreateOrJoin(dir, "shared", 8, 8, false)
	require.NoError(t, err)
	t.Cleanup(func() { segB.Close() })

	ringB, err := Open[uint64](segB, 8)
	require.NoError(t, err)
	v, ok := NewConsumer(ringB).Pop()

	require.True(t, ok)
	require.Equal(t, uint64(42), v)
}

func TestPath_JoinsDirAndNameWithRingExtension(t *testing.T) {
	require.Equal(t, filepath.Join("/dev/shm", "scheduler.ring"), Path("/dev/shm", "scheduler"))
}
