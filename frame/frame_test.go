package frame

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkWriter accepts at most max bytes per call, like a congested socket.
type chunkWriter struct {
	buf   bytes.Buffer
	max   int
	calls int
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.calls++
	if len(p) > w.max {
		p = p[:w.max]
	}

	return w.buf.Write(p)
}

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n >= w.after {
		return 0, errors.New("connection reset")
	}

	w.n++
	return 1, nil
}

type stalledWriter struct{}

func (stalledWriter) Write(p []byte) (int, error) { return 0, nil }

func TestCodec_Encode(t *testing.T) {
	t.Run("prefixes big-endian length", func(t *testing.T) {
		got, err := NewCodec(1024).Encode([]byte("hello\x00"))
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x06, 'h', 'e', 'l', 'l', 'o', 0x00}, got)
	})

	t.Run("length above 255 uses the high byte", func(t *testing.T) {
		got, err := NewCodec(1024).Encode(make([]byte, 300))
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x2c}, got[:HeaderSize])
		assert.Len(t, got, HeaderSize+300)
	})

	t.Run("empty payload", func(t *testing.T) {
		got, err := NewCodec(1024).Encode(nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0}, got)
	})

	t.Run("payload at the limit is accepted", func(t *testing.T) {
		_, err := NewCodec(8).Encode(make([]byte, 8))
		assert.NoError(t, err)
	})

	t.Run("payload over the limit fails", func(t *testing.T) {
		_, err := NewCodec(8).Encode(make([]byte, 9))
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})

	t.Run("zero limit falls back to the prefix maximum", func(t *testing.T) {
		_, err := Codec{}.Encode(make([]byte, MaxPayloadSize))
		assert.NoError(t, err)

		_, err = Codec{}.Encode(make([]byte, MaxPayloadSize+1))
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})
}

func TestCodec_Write(t *testing.T) {
	t.Run("loops over short writes", func(t *testing.T) {
		w := &chunkWriter{max: 3}
		require.NoError(t, NewCodec(1024).Write(w, []byte("bob: hi\x00")))

		assert.Equal(t, []byte("\x00\x08bob: hi\x00"), w.buf.Bytes())
		assert.Equal(t, 4, w.calls)
	})

	t.Run("partial write followed by error is a failure", func(t *testing.T) {
		err := NewCodec(1024).Write(&failingWriter{after: 3}, []byte("hello\x00"))
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("writer making no progress fails", func(t *testing.T) {
		err := NewCodec(1024).Write(stalledWriter{}, []byte("x"))
		assert.ErrorIs(t, err, io.ErrShortWrite)
	})

	t.Run("oversized payload writes nothing", func(t *testing.T) {
		w := &chunkWriter{max: 64}
		err := NewCodec(4).Write(w, []byte("too long"))
		assert.ErrorIs(t, err, ErrFrameTooLarge)
		assert.Zero(t, w.buf.Len())
	})
}

func TestRead(t *testing.T) {
	t.Run("round trip for payload sizes up to the maximum", func(t *testing.T) {
		codec := NewCodec(1024)
		for _, size := range []int{0, 1, 2, 255, 256, 1023, 1024} {
			payload := bytes.Repeat([]byte{'a'}, size)
			encoded, err := codec.Encode(payload)
			require.NoError(t, err)

			buf := make([]byte, 1024)
			n, err := Read(bytes.NewReader(encoded), buf)
			require.NoError(t, err, "size %d", size)
			assert.Equal(t, payload, buf[:n], "size %d", size)
		}
	})

	t.Run("consecutive frames stay separate", func(t *testing.T) {
		codec := NewCodec(64)
		var stream bytes.Buffer
		require.NoError(t, codec.Write(&stream, []byte("first\x00")))
		require.NoError(t, codec.Write(&stream, []byte("second\x00")))

		buf := make([]byte, 64)
		n, err := Read(&stream, buf)
		require.NoError(t, err)
		assert.Equal(t, "first\x00", string(buf[:n]))

		n, err = Read(&stream, buf)
		require.NoError(t, err)
		assert.Equal(t, "second\x00", string(buf[:n]))

		_, err = Read(&stream, buf)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("empty stream is a clean close", func(t *testing.T) {
		_, err := Read(bytes.NewReader(nil), make([]byte, 16))
		assert.Equal(t, io.EOF, err)
		assert.NotErrorIs(t, err, ErrProtocol)
	})

	t.Run("close inside length prefix is a protocol error", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte{0x00}), make([]byte, 16))
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("close after length prefix is a protocol error", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte{0x00, 0x05}), make([]byte, 16))
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("close inside payload is a protocol error", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte{0x00, 0x05, 'a', 'b'}), make([]byte, 16))
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("declared length over capacity fails before reading payload", func(t *testing.T) {
		r := bytes.NewReader([]byte{0x00, 0x11, 'p', 'a', 'y'})
		_, err := Read(r, make([]byte, 16))
		assert.ErrorIs(t, err, ErrProtocol)
		assert.Equal(t, 3, r.Len(), "payload bytes must stay unread")
	})

	t.Run("other transport errors are not protocol errors", func(t *testing.T) {
		_, err := Read(io.MultiReader(bytes.NewReader([]byte{0x00}), errReader{}), make([]byte, 16))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrProtocol)
		assert.ErrorContains(t, err, "boom")
	})
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestRead_overTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	require.NotNil(t, server)

	t.Run("payload split across writes is reassembled", func(t *testing.T) {
		encoded, err := NewCodec(64).Encode([]byte("Welcome to chat\x00"))
		require.NoError(t, err)

		go func() {
			for _, b := range encoded {
				_, _ = server.Write([]byte{b})
			}
		}()

		buf := make([]byte, 64)
		n, err := Read(client, buf)
		require.NoError(t, err)
		assert.Equal(t, "Welcome to chat\x00", string(buf[:n]))
	})

	t.Run("peer closing after the prefix does not block", func(t *testing.T) {
		_, err := server.Write([]byte{0x00, 0x10})
		require.NoError(t, err)
		require.NoError(t, server.Close())

		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, err = Read(client, make([]byte, 64))
		assert.ErrorIs(t, err, ErrProtocol)
	})
}
