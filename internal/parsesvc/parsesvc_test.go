package parsesvc

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/astx"
)

type countingParser struct {
	mu    sync.Mutex
	calls int
	files map[string]*astx.File
	errs  map[string]error
}

func (p *countingParser) Parse(ctx context.Context, source []byte) (*astx.File, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	s := string(source)
	if err, ok := p.errs[s]; ok {
		return nil, err
	}
	return p.files[s], nil
}

func TestCache_HitAvoidsReparsing(t *testing.T) {
	parser := &countingParser{files: map[string]*astx.File{"echo hi": {}}}
	c := NewCache(parser)

	f1, err := c.Parse(context.Background(), "echo hi")
	require.NoError(t, err)
	f2, err := c.Parse(context.Background(), "echo hi")
	require.NoError(t, err)

	require.Same(t, f1, f2)
	require.Equal(t, 1, parser.calls)
}

// spec §7.2: a failed parse is cached as an error too, so the parser is
// not retried for the same source text on a later Parse call.
func TestCache_FailureIsCachedNotRetried(t *testing.T) {
	boom := errors.New("parser crashed")
	parser := &countingParser{errs: map[string]error{"bad(": boom}}
	c := NewCache(parser)

	_, err1 := c.Parse(context.Background(), "bad(")
	_, err2 := c.Parse(context.Background(), "bad(")

	require.ErrorIs(t, err1, boom)
	require.ErrorIs(t, err2, boom)
	require.Equal(t, 1, parser.calls)
}

func TestCache_DistinctSourceTextsEachParseOnce(t *testing.T) {
	parser := &countingParser{files: map[string]*astx.File{
		"echo a": {},
		"echo b": {},
	}}
	c := NewCache(parser)

	_, err := c.Parse(context.Background(), "echo a")
	require.NoError(t, err)
	_, err = c.Parse(context.Background(), "echo b")
	require.NoError(t, err)
	_, err = c.Parse(context.Background(), "echo a")
	require.NoError(t, err)

	require.Equal(t, 2, parser.calls)
}

func TestCache_ConcurrentCallsForSameSourceShareOneParse(t *testing.T) {
	parser := &countingParser{files: map[string]*astx.File{"echo hi": {}}}
	c := NewCache(parser)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Parse(context.Background(), "echo hi")
		}()
	}
	wg.Wait()

	// singleflight dedupes concurrent callers racing on the same
	// never-before-seen source text into one subprocess invocation.
	require.Equal(t, 1, parser.calls)
}
