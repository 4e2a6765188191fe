package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyFetchPayload(t *testing.T) {
	for _, size := range []int{4, 10, 256, 1500} {
		require.NoError(t, verifyFetchPayload(42, makeFetchPayload(42, size)))
	}
}

func TestVerifyFetchPayloadErrors(t *testing.T) {
	require.Error(t, verifyFetchPayload(1, nil))
	require.Error(t, verifyFetchPayload(1, []byte{0, 0}))

	// wrong sequence
	require.Error(t, verifyFetchPayload(2, makeFetchPayload(3, 100)))

	// single flipped byte
	data := makeFetchPayload(7, 100)
	data[50] ^= 0x01
	require.Error(t, verifyFetchPayload(7, data))
}

func TestMakeSendPayload(t *testing.T) {
	buf := makeSendPayload(0x01020304, 10)
	require.Equal(t, []byte{1, 2, 3, 4}, buf[:4])
	for i := seqSize; i < len(buf); i++ {
		require.Equal(t, byte(0x01020304+uint32(i-seqSize)), buf[i])
	}
}
