package window

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushKeepsNewestThreeOldestFirst(t *testing.T) {
	w := Window{Proxies: []string{}}
	for i := 1; i <= 5; i++ {
		assert.True(t, w.Push(fmt.Sprintf("p%d", i)))
		assert.LessOrEqual(t, len(w.Proxies), Capacity)
	}
	assert.Equal(t, []string{"p3", "p4", "p5"}, w.Proxies)

	cur, ok := w.Current()
	assert.True(t, ok)
	assert.Equal(t, "p5", cur)
}

func TestPushIgnoresDuplicateAndEmpty(t *testing.T) {
	w := Window{Proxies: []string{"a", "b", "c"}}
	assert.False(t, w.Push("b"))
	assert.False(t, w.Push(""))
	assert.Equal(t, []string{"a", "b", "c"}, w.Proxies)
}

func TestPushDoesNotAliasPreviousSlice(t *testing.T) {
	before := []string{"a", "b", "c"}
	w := Window{Proxies: before}
	w.Push("d")
	assert.Equal(t, []string{"a", "b", "c"}, before)
	assert.Equal(t, []string{"b", "c", "d"}, w.Proxies)
}

func TestDecodeProxiesRepairsStoredValue(t *testing.T) {
	assert.Equal(t, []string{}, decodeProxies(""))
	assert.Equal(t, []string{"a"}, decodeProxies("a"))
	assert.Equal(t, []string{"b", "c", "d"}, decodeProxies("a,a,b,c,d"))
	assert.Equal(t, "x,y", encodeProxies([]string{"x", "y"}))
}
