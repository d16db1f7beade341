package format

import "testing"

func TestPutReadU32(t *testing.T) {
	buf := make([]byte, 8)
	PutU32(buf, 2, 0xDEADBEEF)
	if got := ReadU32(buf, 2); got != 0xDEADBEEF {
		t.Fatalf("ReadU32: got 0x%X", got)
	}
	// Little-endian byte order.
	if buf[2] != 0xEF || buf[5] != 0xDE {
		t.Fatalf("unexpected byte order: % X", buf)
	}
}

func TestPutReadI32(t *testing.T) {
	buf := make([]byte, 4)
	PutI32(buf, 0, -2)
	if got := ReadI32(buf, 0); got != -2 {
		t.Fatalf("ReadI32: got %d", got)
	}
	if got := ReadU32(buf, 0); got != 0xFFFFFFFE {
		t.Fatalf("two's complement: got 0x%X", got)
	}
}

func TestPutReadU64(t *testing.T) {
	buf := make([]byte, 8)
	PutU64(buf, 0, 0x0102030405060708)
	if got := ReadU64(buf, 0); got != 0x0102030405060708 {
		t.Fatalf("ReadU64: got 0x%X", got)
	}
	if buf[0] != 0x08 || buf[7] != 0x01 {
		t.Fatalf("unexpected byte order: % X", buf)
	}
}
