package cache

import "fmt"

// GenerateKeyWithParams builds a colon-delimited key from a prefix and the
// request parameters that shape the response, e.g. "backtest:2:0:5000".
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}
