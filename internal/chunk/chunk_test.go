package chunk

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Example(t *testing.T) {
	got := Split(10, []string{"12345", "67890", "abcde"})
	assert.Equal(t, []string{"12345,67890", "abcde"}, got)
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split(1000, nil))
	assert.Empty(t, Split(1000, []string{}))
}

func TestSplit_OversizedKeyEmittedAlone(t *testing.T) {
	got := Split(5, []string{"1", "123456789", "2", "3"})
	assert.Equal(t, []string{"1", "123456789", "2,3"}, got)
}

func TestSplit_RoundTripAndLimit(t *testing.T) {
	for _, maxLength := range []int{8, 13, 50, 1000} {
		keys := make([]string, 0, 300)
		for i := 0; i < 300; i++ {
			keys = append(keys, strconv.Itoa(100000+i*7))
		}

		groups := Split(maxLength, keys)
		require.NotEmpty(t, groups)

		var rejoined []string
		for _, g := range groups {
			assert.Less(t, len(g), maxLength, "group %q reaches limit %d", g, maxLength)
			rejoined = append(rejoined, strings.Split(g, ",")...)
		}
		assert.Equal(t, keys, rejoined, "maxLength=%d", maxLength)
	}
}

func TestSplit_SingleKeyPerGroupWhenTight(t *testing.T) {
	// "1234,5678" is 9 characters, which does not fit strictly under 9.
	got := Split(9, []string{"1234", "5678", "9012"})
	assert.Equal(t, []string{"1234", "5678", "9012"}, got)
}

func TestSplit_EmptyKeysKept(t *testing.T) {
	assert.Equal(t, []string{",a"}, Split(10, []string{"", "a"}))
	assert.Equal(t, []string{","}, Split(10, []string{"", ""}))
	assert.Equal(t, []string{"a,,b"}, Split(10, []string{"a", "", "b"}))
	assert.Equal(t, []string{""}, Split(10, []string{""}))

	for _, keys := range [][]string{{"", "a"}, {"", ""}, {"a", "", "b"}} {
		var rejoined []string
		for _, g := range Split(2, keys) {
			rejoined = append(rejoined, strings.Split(g, ",")...)
		}
		assert.Equal(t, keys, rejoined)
	}
}
