package version

import "testing"

import "github.com/stretchr/testify/assert"

func TestGreater(t *testing.T) {
	cases := []struct {
		a, b Version
		want bool
	}{
		{Version{1, 0}, Version{0, 5}, true},
		{Version{1, 2}, Version{1, 1}, true},
		{Version{1, 1}, Version{1, 1}, false},
		{Version{1, 1}, Version{1, 2}, false},
		{Version{0, 0}, Version{0, 0}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Greater(c.a, c.b), "%v vs %v", c.a, c.b)
	}
}

func TestSuccessor(t *testing.T) {
	assert.Equal(t, Version{Major: 5, Minor: 3}, Successor(Version{Major: 5, Minor: 2}))
	assert.True(t, Greater(Successor(Version{Major: 5, Minor: 2}), Version{Major: 5, Minor: 2}))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(Version{}, false, Zero))
	assert.False(t, Matches(Version{}, false, Version{Major: 1}))
	v := Version{Major: 10, Minor: 2}
	assert.True(t, Matches(v, true, v))
	assert.False(t, Matches(v, true, Version{Major: 10, Minor: 1}))
	assert.False(t, Matches(v, false, v))
}

func TestString(t *testing.T) {
	assert.Equal(t, "3.4", Version{Major: 3, Minor: 4}.String())
}
