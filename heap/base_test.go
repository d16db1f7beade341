package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/internal/format"
)

func validHeader() []byte {
	buf := make([]byte, format.HeaderSize)
	writeBaseHeader(buf, 0)
	return buf
}

func Test_ParseBaseBlock_Valid(t *testing.T) {
	bb, err := ParseBaseBlock(validHeader())
	require.NoError(t, err)

	require.Equal(t, format.Signature, bb.Signature())
	require.Equal(t, uint32(format.Version), bb.Version())
	require.Equal(t, uint32(format.NullOffset), bb.Head())
	require.Equal(t, uint32(format.NullOffset), bb.Tail())
	require.Equal(t, uint32(0), bb.DataSize())
	require.Equal(t, format.HeaderSize, bb.RegionLength())
	require.True(t, bb.ChecksumOK())
}

func Test_ParseBaseBlock_TooShort(t *testing.T) {
	_, err := ParseBaseBlock(make([]byte, format.HeaderSize-1))
	require.Error(t, err)
}

func Test_ParseBaseBlock_BadSignature(t *testing.T) {
	buf := validHeader()
	buf[0] = 'X'
	_, err := ParseBaseBlock(buf)
	require.Error(t, err)
}

func Test_Validate_BadVersion(t *testing.T) {
	buf := validHeader()
	format.PutU32(buf, format.VersionOffset, 2)
	updateHeaderChecksum(buf)

	bb, err := ParseBaseBlock(buf)
	require.NoError(t, err)
	require.ErrorContains(t, bb.Validate(len(buf)), "version")
}

func Test_Validate_ChecksumMismatch(t *testing.T) {
	buf := validHeader()
	format.PutU32(buf, format.DataSizeOffset, 1234) // no checksum refresh

	bb, err := ParseBaseBlock(buf)
	require.NoError(t, err)
	require.ErrorContains(t, bb.Validate(len(buf)), "checksum")
}

func Test_Validate_ReportedLengthExceedsRegion(t *testing.T) {
	buf := validHeader()
	format.PutU32(buf, format.DataSizeOffset, 4096)
	updateHeaderChecksum(buf)

	bb, err := ParseBaseBlock(buf)
	require.NoError(t, err)
	require.ErrorContains(t, bb.Validate(len(buf)), "region size")
	require.Error(t, bb.ValidateSanity(len(buf)))
}

func Test_Validate_HeadTailNullAgreement(t *testing.T) {
	buf := validHeader()
	format.PutU32(buf, format.HeadOffset, format.HeaderSize)
	updateHeaderChecksum(buf)

	bb, err := ParseBaseBlock(buf)
	require.NoError(t, err)
	require.ErrorContains(t, bb.Validate(len(buf)), "head/tail")
}

func Test_Validate_TailPrecedesHead(t *testing.T) {
	buf := validHeader()
	format.PutU32(buf, format.DataSizeOffset, 256)
	format.PutU32(buf, format.HeadOffset, format.HeaderSize+32)
	format.PutU32(buf, format.TailOffset, format.HeaderSize)
	updateHeaderChecksum(buf)

	bb, err := ParseBaseBlock(buf)
	require.NoError(t, err)
	require.ErrorContains(t, bb.Validate(format.HeaderSize+256), "precedes")
}

func Test_HeaderChecksum_IsXorOfLeadingDwords(t *testing.T) {
	buf := validHeader()

	var want uint32
	for i := 0; i < format.ChecksumDwords; i++ {
		want ^= format.ReadU32(buf, i*4)
	}
	require.Equal(t, want, format.ReadU32(buf, format.ChecksumOffset))
}
