package config

import "fmt"

type CacheKeyStruct struct{}

// ExamPayloadKey returns the cache key for an exam's question set.
func (r *CacheKeyStruct) ExamPayloadKey(examID int64) string {
	return fmt.Sprintf("exam:%d:payload", examID)
}

var CacheKey = &CacheKeyStruct{}
