package wasmfilter

import "testing"

func TestOutputParams(t *testing.T) {
	b := []byte{0x10, 0x27, 0x00, 0x00, 0x2a, 0x01, 0x00, 0x00}
	ptr, n := outputParams(b)
	if ptr != 10000 || n != 298 {
		t.Errorf("outputParams = (%d, %d), want (10000, 298)", ptr, n)
	}
}
