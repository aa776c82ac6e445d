package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice_story/internal/apperr"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"riff", []byte("RIFF\x24\x00\x00\x00WAVE"), FormatWAV},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F}, FormatWebM},
		{"id3", []byte("ID3\x04\x00"), FormatMP3},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x64}, FormatMP3},
		{"ogg defaults to webm", []byte("OggS\x00\x02"), FormatWebM},
		{"empty defaults to webm", nil, FormatWebM},
		{"short riff prefix", []byte("RIF"), FormatWebM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

// fakeRunner 记录调用并返回预设结果
type fakeRunner struct {
	calls  [][]string
	stderr []byte
	err    error
	block  bool
	output []byte
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.block {
		<-ctx.Done()
		return f.stderr, ctx.Err()
	}
	if f.err == nil && f.output != nil {
		if err := os.WriteFile(args[len(args)-1], f.output, 0600); err != nil {
			return nil, err
		}
	}
	return f.stderr, f.err
}

func TestNormalize_WAVPassThrough(t *testing.T) {
	runner := &fakeRunner{}
	n := NewNormalizer(NormalizerConfig{}, runner)
	dir := t.TempDir()
	wav := Silence(0.5)

	pcm, err := n.Normalize(context.Background(), dir, wav)
	require.NoError(t, err)

	assert.Empty(t, runner.calls, "wav input must not invoke ffmpeg")
	assert.False(t, pcm.WasConverted)
	assert.Equal(t, FormatWAV, pcm.Source)
	assert.Equal(t, filepath.Join(dir, "input.wav"), pcm.Path)

	written, err := os.ReadFile(pcm.Path)
	require.NoError(t, err)
	assert.Equal(t, wav, written)
}

func TestNormalize_ConvertsWebM(t *testing.T) {
	runner := &fakeRunner{output: Silence(0.1)}
	n := NewNormalizer(NormalizerConfig{FFmpegPath: "/opt/ffmpeg"}, runner)
	dir := t.TempDir()

	pcm, err := n.Normalize(context.Background(), dir, []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01})
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"/opt/ffmpeg", "-y",
		"-i", filepath.Join(dir, "input.webm"),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		filepath.Join(dir, "output.wav"),
	}, runner.calls[0])
	assert.True(t, pcm.WasConverted)
	assert.Equal(t, FormatWebM, pcm.Source)
	assert.Equal(t, filepath.Join(dir, "output.wav"), pcm.Path)
}

func TestNormalize_NonZeroExit(t *testing.T) {
	runner := &fakeRunner{
		stderr: []byte("input.mp3: Invalid data found when processing input\n"),
		err:    errors.New("exit status 1"),
	}
	n := NewNormalizer(NormalizerConfig{}, runner)

	pcm, err := n.Normalize(context.Background(), t.TempDir(), []byte("ID3garbage"))
	assert.Nil(t, pcm)
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConversion, appErr.Kind)
	assert.Equal(t, "Audio conversion failed", appErr.Message)
	assert.Equal(t, "input.mp3: Invalid data found when processing input", appErr.Details)
}

func TestNormalize_Timeout(t *testing.T) {
	runner := &fakeRunner{block: true}
	n := NewNormalizer(NormalizerConfig{Timeout: 20 * time.Millisecond}, runner)

	start := time.Now()
	pcm, err := n.Normalize(context.Background(), t.TempDir(), []byte("not audio"))
	assert.Nil(t, pcm)
	assert.Equal(t, apperr.KindConversion, apperr.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)

	appErr, _ := apperr.As(err)
	assert.Contains(t, appErr.Details, "timed out")
}

func TestNormalize_ToolNotFound(t *testing.T) {
	runner := &fakeRunner{err: &exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}}
	n := NewNormalizer(NormalizerConfig{}, runner)

	_, err := n.Normalize(context.Background(), t.TempDir(), []byte("webm?"))
	assert.Equal(t, apperr.KindToolNotFound, apperr.KindOf(err))
}

func TestExecRunner_MissingBinary(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{FFmpegPath: "ffmpeg-binary-that-does-not-exist"}, nil)

	_, err := n.Normalize(context.Background(), t.TempDir(), []byte("webm?"))
	assert.Equal(t, apperr.KindToolNotFound, apperr.KindOf(err))
}

func TestReadFrames(t *testing.T) {
	header := bytes.Repeat([]byte{'h'}, WAVHeaderSize)
	body := bytes.Repeat([]byte{1}, FrameSize*2+100)

	var sizes []int
	sent, err := ReadFrames(bytes.NewReader(append(header, body...)), WAVHeaderSize, FrameSize, func(frame []byte) (bool, error) {
		assert.NotContains(t, string(frame), "h")
		sizes = append(sizes, len(frame))
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, []int{FrameSize, FrameSize, 100}, sizes)
}

func TestReadFrames_StopSignal(t *testing.T) {
	data := append(make([]byte, WAVHeaderSize), make([]byte, FrameSize*5)...)

	calls := 0
	sent, err := ReadFrames(bytes.NewReader(data), WAVHeaderSize, FrameSize, func([]byte) (bool, error) {
		calls++
		return calls < 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 2, calls)
}

func TestReadFrames_HeaderOnly(t *testing.T) {
	sent, err := ReadFrames(bytes.NewReader([]byte("RIFF")), WAVHeaderSize, FrameSize, func([]byte) (bool, error) {
		t.Fatal("no frames expected")
		return false, nil
	})
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestEncodeWAV(t *testing.T) {
	data, err := EncodeWAV(make([]int16, SampleRate*2), SampleRate)
	require.NoError(t, err)

	assert.Len(t, data, WAVHeaderSize+SampleRate*2*2)
	assert.Equal(t, FormatWAV, Sniff(data))
	assert.Equal(t, "WAVE", string(data[8:12]))

	_, err = EncodeWAV(nil, 0)
	assert.Error(t, err)
}
