package utils

import (
	"strconv"
)

// BuildTodosListCacheKey names one cached listing. gen is the owner's cache
// generation; bumping it orphans every older key for that owner.
func BuildTodosListCacheKey(userID string, gen int64, filter string) string {
	return "todos:list:v1:user=" + userID +
		":gen=" + strconv.FormatInt(gen, 10) +
		":filter=" + filter
}

func BuildTodosGenerationKey(userID string) string {
	return "todos:gen:v1:user=" + userID
}
