package tcpclient

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReceiveSyncShortRead(t *testing.T) {
	// 64 + 64 + 30: two full buffers, then a short read ends the
	// response. The result must contain exactly the bytes written,
	// nothing from the unread tail of the last buffer.
	payload := testPayload(158)
	host, port := startServer(t, writeThenIdle(payload))
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	got, err := conn.ReceiveSync()
	require.NoError(t, err)
	require.Len(t, got, 158)
	require.Equal(t, payload, got)
}

func TestReceiveSyncExactMultipleBlocksUntilTimeout(t *testing.T) {
	// A response of exactly one buffer looks like "there may be more":
	// the client blocks on one extra read until the deadline expires,
	// then returns the data without an error.
	payload := testPayload(64)
	host, port := startServer(t, writeThenIdle(payload))
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	start := time.Now()
	got, err := conn.ReceiveSync()
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.GreaterOrEqual(t, time.Since(start), testReadTimeout)
}

func TestReceiveSyncExactMultipleEndedByClose(t *testing.T) {
	// A remote close after a full buffer ends the response right away.
	payload := testPayload(64)
	host, port := startServer(t, func(conn net.Conn) {
		_, _ = conn.Write(payload)
	})
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	got, err := conn.ReceiveSync()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReceiveSyncTimeoutWithoutData(t *testing.T) {
	host, port := startServer(t, func(conn net.Conn) {
		time.Sleep(time.Second)
	})
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	got, err := conn.ReceiveSync()
	require.Nil(t, got)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.True(t, ioErr.Timeout())
}

func TestReceiveSyncRemoteClosedWithoutData(t *testing.T) {
	host, port := startServer(t, nil)
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	got, err := conn.ReceiveSync()
	require.Nil(t, got)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, err, io.EOF)
}

func TestRoundTrip(t *testing.T) {
	for _, size := range []int{1, 63, 64, 65, 1000} {
		t.Run(strconv.Itoa(size), func(t *testing.T) {
			payload := testPayload(size)
			host, port := startServer(t, echoExactly(size))
			r := newTestRegistry(t, nil)

			conn, err := r.GetOrCreate(host, port)
			require.NoError(t, err)

			got, err := conn.SendAndReceiveSync(payload)
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}
}

func TestRoundTripEmptyPayload(t *testing.T) {
	// An empty send produces no response bytes, so the receive ends in
	// a timeout with nothing accumulated and reports it.
	host, port := startServer(t, echoHandler)
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	got, err := conn.SendAndReceiveSync(nil)
	require.Nil(t, got)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.True(t, ioErr.Timeout())
}

func TestStringRoundTrip(t *testing.T) {
	host, port := startServer(t, echoHandler)
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	require.NoError(t, conn.SendStringSync("héllo, 世界"))

	got, err := conn.ReceiveStringSync()
	require.NoError(t, err)
	require.Equal(t, "héllo, 世界", got)
}

func TestConnAccessors(t *testing.T) {
	host, port := startServer(t, echoHandler)
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)

	require.Equal(t, EndpointKey(host, port), conn.Addr())
	require.NotNil(t, conn.RemoteAddr())
	require.False(t, conn.IsClosed())

	require.NoError(t, conn.Close())
	require.True(t, conn.IsClosed())
}

func TestConnClosedOperations(t *testing.T) {
	host, port := startServer(t, echoHandler)
	r := newTestRegistry(t, nil)

	conn, err := r.GetOrCreate(host, port)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	err = conn.SendSync([]byte("x"))
	require.ErrorIs(t, err, ErrConnClosed)

	_, err = conn.ReceiveSync()
	require.ErrorIs(t, err, ErrConnClosed)

	// Closing twice is a no-op.
	require.NoError(t, conn.Close())
}
