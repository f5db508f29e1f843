package pose

// Cache hands out scratch pose blocks for one frame of work. Blocks stay
// valid until Clear.
type Cache struct {
	maxJointsPerPose int
	maxTotal         int
	growStep         int

	buf  []BonePose
	used int
}

func NewCache(maxJointsPerPose, maxTotal, growStep int) *Cache {
	if growStep <= 0 {
		growStep = maxJointsPerPose
	}
	return &Cache{
		maxJointsPerPose: maxJointsPerPose,
		maxTotal:         maxTotal,
		growStep:         growStep,
	}
}

// AcquireBlock returns size identity poses, or nil when size is not
// positive, exceeds the per pose limit or does not fit the total. A nil
// result leaves the cache unchanged.
func (c *Cache) AcquireBlock(size int) []BonePose {
	if size <= 0 || size > c.maxJointsPerPose {
		return nil
	}
	need := c.used + size
	if need > c.maxTotal {
		return nil
	}
	if need > len(c.buf) {
		newSize := (need + c.growStep - 1) / c.growStep * c.growStep
		if newSize > c.maxTotal {
			newSize = c.maxTotal
		}
		grown := make([]BonePose, newSize)
		copy(grown, c.buf[:c.used])
		c.buf = grown
	}

	block := c.buf[c.used:need:need]
	for i := range block {
		block[i] = Identity()
	}
	c.used = need
	return block
}

// Clear releases every block, keeping the memory.
func (c *Cache) Clear() {
	c.used = 0
}

// Reset releases every block and the memory behind them.
func (c *Cache) Reset() {
	c.used = 0
	c.buf = nil
}

func (c *Cache) Len() int {
	return c.used
}

func (c *Cache) Cap() int {
	return len(c.buf)
}
