package voice

import "encoding/binary"

// EncodePCM16 concatenates float32 frames in arrival order and
// quantizes them to little-endian 16-bit PCM. Samples are clamped to
// [-1, 1]; the conversion is deterministic and lossy, no dithering.
func EncodePCM16(frames [][]float32) []byte {
	total := 0
	for _, frame := range frames {
		total += len(frame)
	}

	out := make([]byte, 0, total*2)
	for _, frame := range frames {
		for _, sample := range frame {
			if sample > 1 {
				sample = 1
			} else if sample < -1 {
				sample = -1
			}

			var quantized int16
			if sample < 0 {
				quantized = int16(sample * 0x8000)
			} else {
				quantized = int16(sample * 0x7FFF)
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(quantized))
		}
	}
	return out
}

// DecodePCM16 converts little-endian 16-bit PCM back to float32
// samples. Used by playback tooling and tests; the round trip is exact
// up to quantization error.
func DecodePCM16(data []byte) []float32 {
	samples := make([]float32, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		quantized := int16(binary.LittleEndian.Uint16(data[i:]))
		var sample float32
		if quantized < 0 {
			sample = float32(quantized) / 0x8000
		} else {
			sample = float32(quantized) / 0x7FFF
		}
		samples = append(samples, sample)
	}
	return samples
}
