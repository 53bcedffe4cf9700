package audio

import "encoding/binary"

// SniffSampleRate extracts the sample rate from a RIFF/WAVE header.
// Returns 0 when the data is not a WAV file or the fmt chunk is missing;
// callers fall back to the declared or default rate.
func SniffSampleRate(data []byte) int {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0
	}
	// Walk the chunk list looking for "fmt ".
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if size < 0 || off+8+size > len(data) {
			return 0
		}
		if id == "fmt " {
			if size < 16 {
				return 0
			}
			return int(binary.LittleEndian.Uint32(data[off+12 : off+16]))
		}
		// Chunks are word-aligned.
		off += 8 + size + size%2
	}
	return 0
}
