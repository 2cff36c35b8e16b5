// Package oracle provides external data to contracts in a way every node can
// replay. The block producer fetches answers and records them in the block;
// other nodes answer only from what the block carries.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/patrickmn/go-cache"
)

// Set of error variables for oracle reads.
var (
	ErrMissing     = errors.New("oracle answer not recorded in block")
	ErrUnavailable = errors.New("oracle unavailable")
)

// PricePrefix is the url scheme used to request a price.
const PricePrefix = "price://"

// Reader is the behavior contracts use to read external data.
type Reader interface {
	Read(time uint64, url string) ([]byte, error)
	Price(time uint64, symbol string) (*big.Int, error)
}

// Fetcher retrieves the content for a url from the outside world.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch implements the Fetcher interface.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// =============================================================================

// Cache keeps fetched answers across blocks so a producer does not hit the
// same url on every block.
type Cache struct {
	c *cache.Cache
}

// NewCache constructs a cache where answers live for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		c: cache.New(ttl, 2*ttl),
	}
}

func (c *Cache) get(url string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	v, found := c.c.Get(url)
	if !found {
		return nil, false
	}
	return v.([]byte), true
}

func (c *Cache) set(url string, content []byte) {
	if c == nil {
		return
	}
	c.c.SetDefault(url, content)
}

// =============================================================================

// BlockOracle answers reads for a single block.
type BlockOracle struct {
	mu      sync.Mutex
	entries map[string][]byte
	order   []string
	fetcher Fetcher
	cache   *Cache
	timeout time.Duration
}

// NewBlockOracle constructs an oracle seeded with the answers recorded in a
// block. When fetcher is nil, reads for unknown urls fail with ErrMissing.
func NewBlockOracle(entries []database.OracleEntry, fetcher Fetcher, cache *Cache) *BlockOracle {
	o := BlockOracle{
		entries: make(map[string][]byte, len(entries)),
		fetcher: fetcher,
		cache:   cache,
		timeout: 5 * time.Second,
	}

	for _, e := range entries {
		if _, exists := o.entries[e.URL]; !exists {
			o.order = append(o.order, e.URL)
		}
		o.entries[e.URL] = e.Content
	}

	return &o
}

// Read returns the content for the url.
func (o *BlockOracle) Read(_ uint64, url string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if content, exists := o.entries[url]; exists {
		return content, nil
	}

	if o.fetcher == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissing, url)
	}

	content, found := o.cache.get(url)
	if !found {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()

		var err error
		content, err = o.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, url, err)
		}
		o.cache.set(url, content)
	}

	o.entries[url] = content
	o.order = append(o.order, url)

	return content, nil
}

// Price returns the price of the symbol as an integer in the smallest unit.
func (o *BlockOracle) Price(t uint64, symbol string) (*big.Int, error) {
	content, err := o.Read(t, PricePrefix+strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}

	price, ok := new(big.Int).SetString(strings.TrimSpace(string(content)), 10)
	if !ok {
		return nil, fmt.Errorf("oracle: invalid price %q for %s", content, symbol)
	}

	return price, nil
}

// Entries returns the answers read so far in the order they were first read.
func (o *BlockOracle) Entries() []database.OracleEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]database.OracleEntry, len(o.order))
	for i, url := range o.order {
		out[i] = database.OracleEntry{URL: url, Content: o.entries[url]}
	}
	return out
}
