// Package audio 负责上传音频的格式识别、转换和分帧
package audio

import "bytes"

// Format 音频容器格式
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatWAV     Format = "wav"
	FormatWebM    Format = "webm"
	FormatMP3     Format = "mp3"
)

var (
	riffMagic = []byte("RIFF")
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3} // WebM/Matroska
	id3Magic  = []byte("ID3")
	mpegSync  = []byte{0xFF, 0xFB}
)

// Sniff 根据文件头识别音频格式，无法识别时按浏览器默认录音格式 webm 处理
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, riffMagic):
		return FormatWAV
	case bytes.HasPrefix(data, ebmlMagic):
		return FormatWebM
	case bytes.HasPrefix(data, id3Magic), bytes.HasPrefix(data, mpegSync):
		return FormatMP3
	default:
		return FormatWebM
	}
}
