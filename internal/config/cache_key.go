package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SurveyFlowKey returns the cache key for a published survey's question set.
func (r *CacheKeyStruct) SurveyFlowKey(surveyID string) string {
	return fmt.Sprintf("survey:%s:flow", surveyID)
}

// SurveyMetaKey returns the cache key for a published survey's metadata.
func (r *CacheKeyStruct) SurveyMetaKey(surveyID string) string {
	return fmt.Sprintf("survey:%s:meta", surveyID)
}

var CacheKey = NewCacheKeyStruct()
