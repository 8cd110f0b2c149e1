package media

import "encoding/binary"

// probeMP4Duration reads the movie-header box of an MP4 container and returns
// the duration in whole seconds. Anything unparseable yields zero; duration is
// advisory metadata and never blocks an upload.
func probeMP4Duration(data []byte) int {
	moov, ok := findBox(data, "moov")
	if !ok {
		return 0
	}
	mvhd, ok := findBox(moov, "mvhd")
	if !ok || len(mvhd) < 1 {
		return 0
	}

	version := mvhd[0]
	switch version {
	case 0:
		// version(1) flags(3) creation(4) modification(4) timescale(4) duration(4)
		if len(mvhd) < 20 {
			return 0
		}
		timescale := binary.BigEndian.Uint32(mvhd[12:16])
		duration := binary.BigEndian.Uint32(mvhd[16:20])
		if timescale == 0 {
			return 0
		}
		return int(uint64(duration) / uint64(timescale))
	case 1:
		// version(1) flags(3) creation(8) modification(8) timescale(4) duration(8)
		if len(mvhd) < 32 {
			return 0
		}
		timescale := binary.BigEndian.Uint32(mvhd[20:24])
		duration := binary.BigEndian.Uint64(mvhd[24:32])
		if timescale == 0 {
			return 0
		}
		return int(duration / uint64(timescale))
	}
	return 0
}

// findBox scans sibling boxes in data and returns the payload of the first
// box with the requested type.
func findBox(data []byte, boxType string) ([]byte, bool) {
	offset := uint64(0)
	length := uint64(len(data))
	for offset+8 <= length {
		size := uint64(binary.BigEndian.Uint32(data[offset : offset+4]))
		name := string(data[offset+4 : offset+8])
		headerLen := uint64(8)
		switch size {
		case 0:
			// Box extends to the end of the buffer.
			size = length - offset
		case 1:
			if offset+16 > length {
				return nil, false
			}
			size = binary.BigEndian.Uint64(data[offset+8 : offset+16])
			headerLen = 16
		}
		if size < headerLen || offset+size > length {
			return nil, false
		}
		if name == boxType {
			return data[offset+headerLen : offset+size], true
		}
		offset += size
	}
	return nil, false
}
