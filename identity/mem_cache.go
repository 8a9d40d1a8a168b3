package identity

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache sits in front of resolve reads. Mutations bust the affected
// entries.
type Cache interface {
	Doc(did string) (*DidDoc, bool)
	PutDoc(did string, doc *DidDoc)
	BustDoc(did string)

	DidFor(address string) (string, bool)
	PutAddr(address string, did string)
	BustAddr(address string)
}

type MemCache struct {
	docCache  *expirable.LRU[string, *DidDoc]
	addrCache *expirable.LRU[string, string]
}

func NewMemCache(size int) *MemCache {
	docCache := expirable.NewLRU[string, *DidDoc](size, nil, 5*time.Minute)
	addrCache := expirable.NewLRU[string, string](size, nil, 5*time.Minute)

	return &MemCache{
		docCache:  docCache,
		addrCache: addrCache,
	}
}

func (mc *MemCache) Doc(did string) (*DidDoc, bool) {
	return mc.docCache.Get(did)
}

func (mc *MemCache) PutDoc(did string, doc *DidDoc) {
	mc.docCache.Add(did, doc)
}

func (mc *MemCache) BustDoc(did string) {
	mc.docCache.Remove(did)
}

func (mc *MemCache) DidFor(address string) (string, bool) {
	return mc.addrCache.Get(address)
}

func (mc *MemCache) PutAddr(address string, did string) {
	mc.addrCache.Add(address, did)
}

func (mc *MemCache) BustAddr(address string) {
	mc.addrCache.Remove(address)
}
