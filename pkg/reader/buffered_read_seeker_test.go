package reader_test

import (
	"bytes"
	"io"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/gofatfs/internal/blockdev"
	"github.com/ostafen/gofatfs/internal/fattable"
	"github.com/ostafen/gofatfs/pkg/fat"
	"github.com/ostafen/gofatfs/pkg/reader"
)

func openTestStream(t *testing.T, payload []byte) fat.ClusterStream {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vol.img")
	dev, err := blockdev.CreateFileDevice(path, 4*1024*1024)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	vol, err := fattable.Format(dev, fattable.FormatOptions{
		Type:              fattable.FAT16,
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           2,
		RootDirEntries:    512,
	})
	require.NoError(t, err)

	_, stream, err := vol.OpenFile("PAYLOAD.BIN", fat.ModeCreate)
	require.NoError(t, err)
	_, err = stream.Write(payload)
	require.NoError(t, err)
	require.NoError(t, vol.Flush())

	_, readStream, err := vol.OpenFile("PAYLOAD.BIN", fat.ModeOpen)
	require.NoError(t, err)
	return readStream
}

// TestClusterReaderRandomSeekRead drives random Seek+Read trials against a
// ClusterReader wrapping a real cluster chain, checking every read matches
// the payload that was written through the same volume.
func TestClusterReaderRandomSeekRead(t *testing.T) {
	data := make([]byte, 10*1024)
	_, err := rand.New(rand.NewSource(time.Now().UnixNano())).Read(data)
	require.NoError(t, err)

	stream := openTestStream(t, data)
	cr := reader.NewClusterReader(stream, 4096)
	require.Equal(t, uint32(len(data)), cr.Len())

	const trials = 200
	rng := rand.New(rand.NewSource(1))
	var buf [64]byte
	for i := 0; i < trials; i++ {
		offset := rng.Intn(len(data))
		maxLen := len(data) - offset
		readLen := rng.Intn(64)
		if readLen > maxLen {
			readLen = maxLen
		}
		if readLen == 0 {
			readLen = 1
		}

		_, err := cr.Seek(int64(offset), io.SeekStart)
		require.NoErrorf(t, err, "trial %d: seek to %d", i, offset)

		n, err := cr.Read(buf[:readLen])
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
		}

		require.True(t, bytes.Equal(buf[:n], data[offset:offset+n]), "trial %d: mismatch at offset %d", i, offset)
	}
}

func TestClusterReaderSequentialRead(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeated many times. ")
	payload := bytes.Repeat(data, 200)

	stream := openTestStream(t, payload)
	cr := reader.NewClusterReader(stream, 37) // deliberately not a multiple of len(data)

	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}
