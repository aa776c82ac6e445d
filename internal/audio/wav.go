package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// 规范化后的音频参数
const (
	SampleRate     = 16000
	Channels       = 1
	BitsPerSample  = 16
	WAVHeaderSize  = 44
	FrameSize      = 3200 // 16kHz 16bit 单声道约100ms
	bytesPerSample = BitsPerSample / 8
)

// wavHeader 标准44字节WAV头
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV 把16bit单声道PCM采样编码为WAV
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("采样率必须大于0: %d", sampleRate)
	}

	dataSize := uint32(len(samples) * bytesPerSample)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * Channels * bytesPerSample),
		BlockAlign:    Channels * bytesPerSample,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+int(dataSize)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("写入WAV头失败: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("写入PCM数据失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Silence 生成指定时长的静音WAV
func Silence(seconds float64) []byte {
	samples := make([]int16, int(seconds*SampleRate))
	data, _ := EncodeWAV(samples, SampleRate)
	return data
}
