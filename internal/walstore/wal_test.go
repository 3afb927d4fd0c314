package walstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "walstore-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestWAL_AppendAssignsIncreasingSeq(t *testing.T) {
	w, err := Open(Config{Dir: tempDir(t)})
	require.NoError(t, err)
	defer w.Close()

	seq1, err := w.Append(&Record{Kind: RecordSubmit, Data: []byte("order-1")})
	require.NoError(t, err)
	seq2, err := w.Append(&Record{Kind: RecordSubmit, Data: []byte("order-2")})
	require.NoError(t, err)

	require.Equal(t, uint64(1), seq1)
	require.Equal(t, uint64(2), seq2)
}

func TestWAL_ReplayAllRecoversAppendedRecords(t *testing.T) {
	dir := tempDir(t)
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	_, err = w.Append(&Record{Kind: RecordSubmit, Data: []byte("submit-a")})
	require.NoError(t, err)
	_, err = w.Append(&Record{Kind: RecordCancel, Data: []byte("cancel-b")})
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	var got []*Record
	require.NoError(t, ReplayAll(dir, func(r *Record) error {
		got = append(got, r)
		return nil
	}))

	require.Len(t, got, 2)
	require.Equal(t, RecordSubmit, got[0].Kind)
	require.Equal(t, "submit-a", string(got[0].Data))
	require.Equal(t, uint64(1), got[0].Seq)
	require.Equal(t, RecordCancel, got[1].Kind)
	require.Equal(t, "cancel-b", string(got[1].Data))
	require.Equal(t, uint64(2), got[1].Seq)
}

func TestWAL_RotatesOnSize(t *testing.T) {
	dir := tempDir(t)
	w, err := Open(Config{Dir: dir, SegmentSize: 32})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 10; i++ {
		_, err := w.Append(&Record{Kind: RecordSubmit, Data: []byte("payload-needs-more-than-32-bytes")})
		require.NoError(t, err)
	}

	entries, err := loadIndex(dir)
	require.NoError(t, err)
	require.Greater(t, len(entries), 0)
}

func TestWAL_DecodeFrameDetectsCorruption(t *testing.T) {
	frame := encode(&Record{Kind: RecordSubmit, Seq: 1, Data: []byte("hello")})
	frame[len(frame)-1] ^= 0xFF

	_, _, _, err := decodeFrame(frame)
	require.ErrorIs(t, err, ErrCorruptRecord)
}
