package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// PCMAudio 规范化后的音频文件（16kHz、16bit、单声道WAV）
type PCMAudio struct {
	Path         string // 文件路径，位于请求的临时目录中
	Source       Format // 原始格式
	WasConverted bool   // 是否经过ffmpeg转换
}

// FrameFunc 处理一帧音频，返回false时停止发送
type FrameFunc func(frame []byte) (bool, error)

// ReadFrames 跳过文件头后按固定大小分帧，最后一帧可能不足frameSize
func ReadFrames(r io.Reader, headerSize, frameSize int, fn FrameFunc) (int, error) {
	if frameSize <= 0 {
		return 0, fmt.Errorf("帧大小必须大于0: %d", frameSize)
	}
	if headerSize > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(headerSize)); err != nil {
			if errors.Is(err, io.EOF) {
				return 0, nil
			}
			return 0, fmt.Errorf("跳过WAV头失败: %w", err)
		}
	}

	sent := 0
	buf := make([]byte, frameSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			sent++
			more, ferr := fn(frame)
			if ferr != nil {
				return sent, ferr
			}
			if !more {
				return sent, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return sent, nil
			}
			return sent, fmt.Errorf("读取音频失败: %w", err)
		}
	}
}

// Frames 打开音频文件并逐帧回调
func (p *PCMAudio) Frames(fn FrameFunc) (int, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return 0, fmt.Errorf("打开音频文件失败: %w", err)
	}
	defer f.Close()
	return ReadFrames(f, WAVHeaderSize, FrameSize, fn)
}
