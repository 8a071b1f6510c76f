package transport

var (
	cmdInit     = []byte{0x1b, 0x40}
	cmdTextMode = []byte{0x1b, 0x21, 0x00}
	cmdFeed     = []byte{0x1b, 0x64, 0x03}
	cmdCut      = []byte{0x1d, 0x56, 0x41, 0x00}
)

// FrameStream wraps a control stream for a directly attached printer:
// initialize, reset text mode, the stream, feed, cut.
func FrameStream(stream []byte) []byte {
	return frame(stream, cmdInit, cmdTextMode)
}

// FrameRaster wraps a GS v 0 raster block: initialize, image, feed, cut.
func FrameRaster(raster []byte) []byte {
	return frame(raster, cmdInit)
}

func frame(body []byte, prefix ...[]byte) []byte {
	size := len(body) + len(cmdFeed) + len(cmdCut)
	for _, p := range prefix {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range prefix {
		buf = append(buf, p...)
	}
	buf = append(buf, body...)
	buf = append(buf, cmdFeed...)
	return append(buf, cmdCut...)
}
