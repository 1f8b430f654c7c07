package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinBytes(t *testing.T) {
	t.Run("multiple slices concatenated", func(t *testing.T) {
		got := JoinBytes([]byte{0x00, 0x05}, []byte("hello"))
		assert.Equal(t, []byte("\x00\x05hello"), got)
	})

	t.Run("empty slices are skipped", func(t *testing.T) {
		got := JoinBytes([]byte{}, []byte("a"), nil)
		assert.Equal(t, []byte("a"), got)
	})

	t.Run("no args returns empty", func(t *testing.T) {
		assert.Empty(t, JoinBytes())
	})

	t.Run("result does not alias inputs", func(t *testing.T) {
		in := []byte("abc")
		got := JoinBytes(in)
		got[0] = 'z'
		assert.Equal(t, []byte("abc"), in)
	})
}

func TestReadStringFromBytes(t *testing.T) {
	t.Run("stops at first NUL", func(t *testing.T) {
		assert.Equal(t, "bob: hi", ReadStringFromBytes([]byte("bob: hi\x00junk")))
	})

	t.Run("no NUL returns whole buffer", func(t *testing.T) {
		assert.Equal(t, "Welcome to chat", ReadStringFromBytes([]byte("Welcome to chat")))
	})

	t.Run("leading NUL returns empty", func(t *testing.T) {
		assert.Equal(t, "", ReadStringFromBytes([]byte{0, 'a'}))
	})

	t.Run("empty buffer", func(t *testing.T) {
		assert.Equal(t, "", ReadStringFromBytes(nil))
	})
}

func TestNULTerminated(t *testing.T) {
	t.Run("appends a single terminator", func(t *testing.T) {
		assert.Equal(t, []byte("bye\x00"), NULTerminated("bye"))
	})

	t.Run("empty string is just the terminator", func(t *testing.T) {
		assert.Equal(t, []byte{0}, NULTerminated(""))
	})

	t.Run("round trips through ReadStringFromBytes", func(t *testing.T) {
		assert.Equal(t, "alice", ReadStringFromBytes(NULTerminated("alice")))
	})
}
