package naming

import (
	"os"
	"sync"
)

// Claims tracks output paths handed out during a run. Dry runs write nothing,
// so a claim stands in for the file that would have been created; real runs
// use it to keep allocation and creation in one critical section. All methods
// are goroutine-safe.
type Claims struct {
	mu     sync.Mutex
	owners map[string]string // output path -> source path that owns it
	stat   func(string) bool
}

// NewClaims creates a table whose existence check also consults the
// filesystem.
func NewClaims() *Claims {
	return &Claims{
		owners: make(map[string]string),
		stat:   fileExists,
	}
}

// Owner returns the source that claimed output, if any.
func (c *Claims) Owner(output string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[output]
	return owner, ok
}

// Exists reports whether path is claimed in this run or present on disk.
func (c *Claims) Exists(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.existsLocked(path)
}

func (c *Claims) existsLocked(path string) bool {
	if _, ok := c.owners[path]; ok {
		return true
	}
	return c.stat(path)
}

// Claim records that source owns output. It returns false when a different
// source got there first.
func (c *Claims) Claim(source, output string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, ok := c.owners[output]; ok && owner != source {
		return false
	}
	c.owners[output] = source
	return true
}

// AllocateAndClaim runs Allocate under the table lock and claims the result
// for source, so no other caller can receive the same path.
func (c *Claims) AllocateAndClaim(source, base, origExt, target string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := Allocate(base, origExt, target, c.existsLocked)
	c.owners[out] = source
	return out
}

// Release drops a claim, e.g. after a failed conversion removed its output.
func (c *Claims) Release(output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.owners, output)
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
