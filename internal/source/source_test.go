package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/banshee-data/dance.report/internal/fsutil"
	"github.com/banshee-data/dance.report/internal/pose"
	"github.com/banshee-data/dance.report/internal/testutil"
)

func TestJSONLSource(t *testing.T) {
	in := `{"timestamp": 10, "video_ms": 40, "poses": [{"keypoints": [{"name": "nose", "x": 1, "y": 2, "score": 0.5}]}]}

{"timestamp": 20, "poses": []}
`
	src := NewJSONLSource(strings.NewReader(in))
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, f.Set.Timestamp)
	assert.Equal(t, 40.0, f.VideoPositionMs)
	require.Len(t, f.Set.Poses, 1)

	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20.0, f.VideoPositionMs, "video position defaults to the timestamp")

	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, src.Close())
}

func TestJSONLSourceBadLine(t *testing.T) {
	src := NewJSONLSource(strings.NewReader("{\"timestamp\": 1}\nnot json\n"))
	_, err := src.Next(context.Background())
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestJSONLSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewJSONLSource(strings.NewReader("{}\n")).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeRoundTrip(t *testing.T) {
	frames := []LiveFrame{
		{Set: testutil.Frame(0, testutil.NeutralPose()), VideoPositionMs: 5},
		{Set: testutil.Frame(33, testutil.RaisedArmPose()), VideoPositionMs: 38},
	}
	path := filepath.Join(t.TempDir(), "live.jsonl.zst")
	w, err := fsutil.CreateWriter(path)
	require.NoError(t, err)
	for _, f := range frames {
		require.NoError(t, Encode(w, f))
	}
	require.NoError(t, w.Close())

	src, err := OpenJSONL(path)
	require.NoError(t, err)
	defer src.Close()

	got, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, frames, got)
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]LiveFrame{{VideoPositionMs: 1}, {VideoPositionMs: 2}})
	assert.Equal(t, 2, src.Len())

	got, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = src.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

type fakeFrames struct{ frames []Frame }

func (f *fakeFrames) NextFrame(ctx context.Context) (Frame, error) {
	if len(f.frames) == 0 {
		return Frame{}, io.EOF
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, nil
}

type fakeEstimator struct {
	failAt float64
}

var errModel = errors.New("model failure")

func (e fakeEstimator) Estimate(ctx context.Context, f Frame) ([]pose.Pose, error) {
	if f.TimestampMs == e.failAt {
		return nil, errModel
	}
	return []pose.Pose{testutil.NeutralPose()}, nil
}

func TestEstimatingSource(t *testing.T) {
	frames := &fakeFrames{frames: []Frame{
		{TimestampMs: 0, VideoPositionMs: 100},
		{TimestampMs: 33, VideoPositionMs: 133},
		{TimestampMs: 66, VideoPositionMs: 166},
	}}
	src := NewEstimatingSource(frames, fakeEstimator{failAt: 66})
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, f.VideoPositionMs)
	assert.Len(t, f.Set.Poses, 1)

	_, err = src.Next(ctx)
	require.NoError(t, err)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, errModel)
	assert.Contains(t, err.Error(), "66ms")

	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func writeFrame(t *testing.T, path string, f LiveFrame) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, f))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "0002.json"), LiveFrame{Set: testutil.Frame(2, testutil.NeutralPose()), VideoPositionMs: 2})
	writeFrame(t, filepath.Join(dir, "0001.json"), LiveFrame{Set: testutil.Frame(1, testutil.NeutralPose()), VideoPositionMs: 1})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	src, err := WatchDir(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.Set.Timestamp)
	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f.Set.Timestamp)

	writeFrame(t, filepath.Join(dir, "0003.json"), LiveFrame{Set: testutil.Frame(3, testutil.NeutralPose()), VideoPositionMs: 3})
	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f.Set.Timestamp)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DoneFile), nil, 0o644))
	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestDirSourceCancelled(t *testing.T) {
	src, err := WatchDir(t.TempDir(), nil)
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchDirMissing(t *testing.T) {
	_, err := WatchDir(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
