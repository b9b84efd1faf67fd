package bridge

// Conn is one live duplex connection to a page. Implementations must
// tolerate concurrent WriteText calls and repeated Close.
type Conn interface {
	// WriteText sends one text frame to the page.
	WriteText(payload []byte) error
	Close() error
}
